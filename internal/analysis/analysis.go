// Package analysis runs the property analysis pipeline: price, location,
// deal, land details and an optional explanation, strictly in that order.
//
// Every step is recorded as a StepResult. When a required step fails or
// panics the whole run degrades to a fixed low-confidence fallback; the
// failing step and its error are kept on the Result instead of being
// returned to the caller. A failed explanation is logged and omitted.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sakif/real-estate-ai/internal/agent"
	"github.com/sakif/real-estate-ai/internal/model"
)

type PriceEstimator interface {
	Estimate(ctx context.Context, f model.Features) (*agent.PriceEstimate, error)
}

type LocationAnalyzer interface {
	Analyze(ctx context.Context, in agent.LocationInput) (*agent.LocationResult, error)
}

type DealEvaluator interface {
	Evaluate(ctx context.Context, in agent.DealInput) (*agent.DealResult, error)
}

type LandAnalyzer interface {
	Analyze(ctx context.Context, in agent.LandInput) (*model.LandDetails, error)
}

type Explainer interface {
	Explain(ctx context.Context, in agent.ExplainInput) (string, error)
}

type Step string

const (
	StepPrice       Step = "price"
	StepLocation    Step = "location"
	StepDeal        Step = "deal"
	StepLand        Step = "land_details"
	StepExplanation Step = "explanation"
)

// Fallback values used when a required step fails.
const (
	FallbackLocationScore = 0.5
	FallbackVerdict       = agent.VerdictFair
	FallbackWhy           = "Analysis incomplete due to system error"
	FallbackConfidence    = 0.3
)

var errNoResult = errors.New("step returned no result")

type StepResult struct {
	Step     Step
	Err      error
	Duration time.Duration
}

// Result is the merged output of one pipeline run.
type Result struct {
	EstimatedPrice float64
	LocationScore  float64
	DealVerdict    string
	Why            string
	Confidence     float64
	Provenance     []model.Provenance
	LandDetails    *model.LandDetails
	Currency       string
	PricePerSqft   *float64
	LLMExplanation string

	// Degraded is set when the fallback replaced the analysis. FailedStep
	// and Err describe the first failure.
	Degraded   bool
	FailedStep Step
	Err        error
	Steps      []StepResult
}

type Agents struct {
	Price     PriceEstimator
	Location  LocationAnalyzer
	Deal      DealEvaluator
	Land      LandAnalyzer
	Explainer Explainer
}

type Orchestrator struct {
	agents Agents
	logger *slog.Logger
}

func New(agents Agents, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{agents: agents, logger: logger}
}

// Run analyzes validated features. It never returns an error: failures
// surface as a degraded Result.
func (o *Orchestrator) Run(ctx context.Context, f model.Features) *Result {
	res := &Result{}
	asking := model.ValueOr(f.AskingPrice, 0)

	price, err := runStep(ctx, res, StepPrice, func(ctx context.Context) (*agent.PriceEstimate, error) {
		return o.agents.Price.Estimate(ctx, f)
	})
	if err != nil {
		return o.degrade(ctx, res, f, StepPrice, err)
	}

	location, err := runStep(ctx, res, StepLocation, func(ctx context.Context) (*agent.LocationResult, error) {
		return o.agents.Location.Analyze(ctx, agent.LocationInput{
			Lat: f.Lat, Lon: f.Lon, City: f.City, District: f.District,
		})
	})
	if err != nil {
		return o.degrade(ctx, res, f, StepLocation, err)
	}

	deal, err := runStep(ctx, res, StepDeal, func(ctx context.Context) (*agent.DealResult, error) {
		return o.agents.Deal.Evaluate(ctx, agent.DealInput{
			AskingPrice:    asking,
			EstimatedPrice: price.EstimatedPrice,
			LocationScore:  location.Score,
		})
	})
	if err != nil {
		return o.degrade(ctx, res, f, StepDeal, err)
	}

	land, err := runStep(ctx, res, StepLand, func(ctx context.Context) (*model.LandDetails, error) {
		return o.agents.Land.Analyze(ctx, agent.LandInput{
			Features:       f,
			Location:       location,
			AskingPrice:    asking,
			EstimatedPrice: price.EstimatedPrice,
		})
	})
	if err != nil {
		return o.degrade(ctx, res, f, StepLand, err)
	}

	pricePerSqft := price.PricePerSqft
	res.EstimatedPrice = price.EstimatedPrice
	res.LocationScore = location.Score
	res.DealVerdict = deal.Verdict
	res.Why = deal.Why
	res.Confidence = min(price.Confidence, deal.Confidence)
	res.Provenance = slices.Concat(location.Provenance, price.Provenance())
	if res.Provenance == nil {
		res.Provenance = []model.Provenance{}
	}
	res.LandDetails = land
	res.Currency = model.Currency
	res.PricePerSqft = &pricePerSqft

	if asking > 0 && price.EstimatedPrice > 0 && o.agents.Explainer != nil {
		text, err := runStep(ctx, res, StepExplanation, func(ctx context.Context) (string, error) {
			return o.agents.Explainer.Explain(ctx, agent.ExplainInput{
				AskingPrice:    asking,
				EstimatedPrice: price.EstimatedPrice,
				LocationScore:  location.Score,
				Features:       f,
				Location:       location,
			})
		})
		if err != nil {
			o.logger.WarnContext(ctx, "explanation unavailable", "error", err)
		} else {
			res.LLMExplanation = text
		}
	}

	o.logger.DebugContext(ctx, "analysis completed",
		"estimated_price", res.EstimatedPrice,
		"verdict", res.DealVerdict,
		"confidence", res.Confidence,
	)
	return res
}

func (o *Orchestrator) degrade(ctx context.Context, res *Result, f model.Features, step Step, err error) *Result {
	o.logger.WarnContext(ctx, "analysis degraded to fallback", "step", string(step), "error", err)

	fb := Fallback(f, step, err)
	fb.Steps = res.Steps
	return fb
}

// Fallback is the fixed result used when the pipeline cannot complete.
func Fallback(f model.Features, step Step, err error) *Result {
	return &Result{
		EstimatedPrice: model.ValueOr(f.AskingPrice, 0),
		LocationScore:  FallbackLocationScore,
		DealVerdict:    FallbackVerdict,
		Why:            FallbackWhy,
		Confidence:     FallbackConfidence,
		Provenance:     []model.Provenance{},
		LandDetails:    agent.FallbackLandDetails(),
		Currency:       model.Currency,
		Degraded:       true,
		FailedStep:     step,
		Err:            err,
	}
}

// runStep calls fn, turning a panic or a nil pointer result into an error,
// and appends the outcome to res.Steps.
func runStep[T any](ctx context.Context, res *Result, step Step, fn func(context.Context) (T, error)) (out T, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("analysis: %s step panicked: %v", step, p)
		}
		res.Steps = append(res.Steps, StepResult{Step: step, Err: err, Duration: time.Since(start)})
	}()

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("analysis: %s step: %w", step, err)
	}

	out, err = fn(ctx)
	if err != nil {
		return out, fmt.Errorf("analysis: %s step: %w", step, err)
	}
	if isNil(out) {
		return out, fmt.Errorf("analysis: %s step: %w", step, errNoResult)
	}
	return out, nil
}

func isNil(v any) bool {
	switch x := v.(type) {
	case *agent.PriceEstimate:
		return x == nil
	case *agent.LocationResult:
		return x == nil
	case *agent.DealResult:
		return x == nil
	case *model.LandDetails:
		return x == nil
	}
	return false
}
