package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/sakif/real-estate-ai/internal/analysis"
	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/model"
	"github.com/sakif/real-estate-ai/internal/repository"
	"github.com/sakif/real-estate-ai/internal/security"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// Analyzer runs the analysis pipeline. *analysis.Orchestrator satisfies it.
type Analyzer interface {
	Run(ctx context.Context, f model.Features) *analysis.Result
}

// PropertyService validates property queries, runs the analysis and
// persists the query/response pair.
type PropertyService struct {
	gate      *security.Gate
	analyzer  Analyzer
	queries   repository.QueryRepository
	responses repository.ResponseRepository
	logger    *slog.Logger
}

func NewPropertyService(
	gate *security.Gate,
	analyzer Analyzer,
	queries repository.QueryRepository,
	responses repository.ResponseRepository,
	logger *slog.Logger,
) *PropertyService {
	return &PropertyService{
		gate:      gate,
		analyzer:  analyzer,
		queries:   queries,
		responses: responses,
		logger:    logger,
	}
}

// Analyze handles POST /property/query.
//
// Steps: validate features → store the Query → run the pipeline → store the
// Response → filter the output. A pipeline failure is not an error here; it
// arrives as a degraded Result and is stored like any other. If the Response
// cannot be stored the Query is deleted again.
func (s *PropertyService) Analyze(ctx context.Context, userID int64, queryText string, raw map[string]any) (*model.PropertyAnalysis, error) {
	v := s.gate.ValidateFeatures(ctx, raw)
	if !v.Valid {
		return nil, apperror.ValidationErrors("Invalid features: "+strings.Join(v.Errors, "; "), v.Errors)
	}

	q := newQuery(userID, s.gate.SanitizeText(queryText), v.Features)
	if err := s.queries.CreateQuery(ctx, q); err != nil {
		return nil, fmt.Errorf("service/property: creating query: %w", err)
	}

	res := s.analyzer.Run(ctx, v.Features)

	resp := &model.Response{
		QueryID:        q.ID,
		EstimatedPrice: res.EstimatedPrice,
		LocationScore:  res.LocationScore,
		DealVerdict:    res.DealVerdict,
		Why:            res.Why,
		Confidence:     res.Confidence,
		Provenance:     res.Provenance,
	}
	if err := s.responses.CreateResponse(ctx, resp); err != nil {
		s.discardQuery(ctx, q.ID)
		return nil, fmt.Errorf("service/property: creating response for query %d: %w", q.ID, err)
	}

	attrs := []any{
		slog.Int64("userID", userID),
		slog.Int64("queryID", q.ID),
		slog.Int64("responseID", resp.ID),
		slog.String("verdict", res.DealVerdict),
		slog.Bool("degraded", res.Degraded),
	}
	if res.Degraded {
		attrs = append(attrs, slog.String("failedStep", string(res.FailedStep)))
	}
	s.logger.Info("property analysis completed", attrs...)

	out := s.gate.FilterOutput(model.PropertyAnalysis{
		EstimatedPrice: res.EstimatedPrice,
		LocationScore:  res.LocationScore,
		DealVerdict:    res.DealVerdict,
		Why:            res.Why,
		Provenance:     res.Provenance,
		Confidence:     res.Confidence,
		QueryID:        q.ID,
		ResponseID:     resp.ID,
		LandDetails:    res.LandDetails,
		Currency:       model.Currency,
		PricePerSqft:   res.PricePerSqft,
		LLMExplanation: res.LLMExplanation,
	})
	return &out, nil
}

// discardQuery removes a Query whose Response could not be stored. It runs
// even when ctx is already cancelled.
func (s *PropertyService) discardQuery(ctx context.Context, id int64) {
	if err := s.queries.DeleteQuery(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Error("deleting orphaned query",
			slog.Int64("queryID", id),
			slog.String("error", err.Error()),
		)
	}
}

// History lists the caller's queries newest first. limit is clamped to
// 1..MaxHistoryLimit.
func (s *PropertyService) History(ctx context.Context, userID int64, limit int) ([]model.HistoryItem, error) {
	limit = min(max(limit, 1), MaxHistoryLimit)

	items, err := s.queries.ListQueriesForUser(ctx, userID, repository.ListOptions{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("service/property: listing queries for user %d: %w", userID, err)
	}
	return items, nil
}

// GetResponse returns the stored analysis for a query the caller owns.
// Another user's query is reported exactly like a missing one.
//
// Only the persisted fields come back: land details and price per sqft are
// not stored, so they are always null here.
func (s *PropertyService) GetResponse(ctx context.Context, userID, queryID int64) (*model.PropertyAnalysis, error) {
	q, err := s.queries.GetQueryForUser(ctx, queryID, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("Query not found")
		}
		return nil, fmt.Errorf("service/property: loading query %d: %w", queryID, err)
	}

	resp, err := s.responses.GetResponseByQueryID(ctx, q.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("No response found for this query")
		}
		return nil, fmt.Errorf("service/property: loading response for query %d: %w", q.ID, err)
	}

	out := s.gate.FilterOutput(model.PropertyAnalysis{
		EstimatedPrice: resp.EstimatedPrice,
		LocationScore:  resp.LocationScore,
		DealVerdict:    resp.DealVerdict,
		Why:            resp.Why,
		Provenance:     resp.Provenance,
		Confidence:     resp.Confidence,
		QueryID:        q.ID,
		ResponseID:     resp.ID,
		Currency:       model.Currency,
	})
	return &out, nil
}

// ParseHistoryLimit reads the ?limit query value. Empty means
// DefaultHistoryLimit; anything that is not an integer is a validation error.
func ParseHistoryLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed("limit", "Invalid limit: must be an integer")
	}
	return n, nil
}

// newQuery narrows the integer-valued features for storage.
func newQuery(userID int64, text string, f model.Features) *model.Query {
	return &model.Query{
		UserID:       userID,
		QueryText:    text,
		City:         f.City,
		District:     f.District,
		PropertyType: f.PropertyType,
		Lat:          f.Lat,
		Lon:          f.Lon,
		Beds:         roundInt(f.Beds),
		Baths:        roundInt(f.Baths),
		Area:         f.Area,
		YearBuilt:    roundInt(f.YearBuilt),
		AskingPrice:  f.AskingPrice,
		LandSize:     f.LandSize,
	}
}

func roundInt(p *float64) *int {
	if p == nil {
		return nil
	}
	n := int(math.Round(*p))
	return &n
}
