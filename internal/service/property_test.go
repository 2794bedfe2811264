package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sakif/real-estate-ai/internal/analysis"
	"github.com/sakif/real-estate-ai/internal/apperror"
	"github.com/sakif/real-estate-ai/internal/model"
	"github.com/sakif/real-estate-ai/internal/repository"
	"github.com/sakif/real-estate-ai/internal/security"
)

type propertyFixture struct {
	svc       *PropertyService
	queries   *fakeQueryRepo
	responses *fakeResponseRepo
	analyzer  *fakeAnalyzer
}

func newPropertyFixture(t *testing.T) *propertyFixture {
	t.Helper()

	gate, err := security.NewGate()
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}
	pps := 23_538.89
	fx := &propertyFixture{
		queries: newFakeQueryRepo(),
		analyzer: &fakeAnalyzer{result: &analysis.Result{
			EstimatedPrice: 42_370_000,
			LocationScore:  0.9,
			DealVerdict:    "Good Deal",
			Why:            "Asking is <b>well</b> below the estimate",
			Confidence:     0.8,
			Provenance: []model.Provenance{
				{Source: "City Analysis", Method: "Location scoring", Confidence: 0.9, Details: "Colombo"},
				{DocID: "d1", Link: "javascript:alert(1)"},
			},
			LandDetails:    &model.LandDetails{LandAnalysis: "Prime plot", LandUseOpportunities: []string{"Residential"}},
			Currency:       model.Currency,
			PricePerSqft:   &pps,
			LLMExplanation: "Call 0771234567 for details",
		}},
	}
	fx.responses = newFakeResponseRepo(fx.queries)
	fx.svc = NewPropertyService(gate, fx.analyzer, fx.queries, fx.responses, discardLogger())
	return fx
}

func validFeatures() map[string]any {
	return map[string]any{
		"city":         "Colombo",
		"beds":         "3",
		"baths":        2.4,
		"area":         1800.0,
		"year_built":   2015.0,
		"asking_price": 35_000_000.0,
	}
}

func TestAnalyze_PersistsAndFilters(t *testing.T) {
	fx := newPropertyFixture(t)

	out, err := fx.svc.Analyze(context.Background(), 1, "<i>3 bed</i> house near 12 Galle Road", validFeatures())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if fx.analyzer.calls != 1 || fx.analyzer.got.City != "Colombo" {
		t.Errorf("analyzer saw %d calls with %+v", fx.analyzer.calls, fx.analyzer.got)
	}

	q := fx.queries.queries[out.QueryID]
	if q == nil {
		t.Fatalf("query %d not stored", out.QueryID)
	}
	if q.QueryText != "3 bed house near [PII_REDACTED]" {
		t.Errorf("stored query text = %q", q.QueryText)
	}
	if q.Beds == nil || *q.Beds != 3 || q.Baths == nil || *q.Baths != 2 || q.YearBuilt == nil || *q.YearBuilt != 2015 {
		t.Errorf("integer features not narrowed: beds=%v baths=%v year=%v", q.Beds, q.Baths, q.YearBuilt)
	}

	stored := fx.responses.responses[out.ResponseID]
	if stored == nil || stored.QueryID != out.QueryID {
		t.Fatalf("response not stored for query %d", out.QueryID)
	}
	if stored.Why != "Asking is <b>well</b> below the estimate" {
		t.Errorf("stored Why = %q, want the unfiltered agent text", stored.Why)
	}

	want := &model.PropertyAnalysis{
		EstimatedPrice: 42_370_000,
		LocationScore:  0.9,
		DealVerdict:    "Good Deal",
		Why:            "Asking is well below the estimate",
		Provenance: []model.Provenance{
			{Source: "City Analysis", Method: "Location scoring", Confidence: 0.9, Details: "Colombo"},
			{DocID: "d1"},
		},
		Confidence:     0.8,
		QueryID:        out.QueryID,
		ResponseID:     out.ResponseID,
		LandDetails:    &model.LandDetails{LandAnalysis: "Prime plot", LandUseOpportunities: []string{"Residential"}},
		Currency:       "LKR",
		PricePerSqft:   out.PricePerSqft,
		LLMExplanation: "Call [PII_REDACTED] for details",
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Analyze() mismatch (-want +got):\n%s", diff)
	}
	if out.PricePerSqft == nil || *out.PricePerSqft != 23_538.89 {
		t.Errorf("PricePerSqft = %v", out.PricePerSqft)
	}
}

func TestAnalyze_InvalidFeatures(t *testing.T) {
	fx := newPropertyFixture(t)

	_, err := fx.svc.Analyze(context.Background(), 1, "q", map[string]any{"city": "Kandy", "beds": 50.0})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Analyze() error = %v, want ErrValidation", err)
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %T is not an AppError", err)
	}
	wantDetails := []string{"Missing required field: asking_price", "Invalid beds: must be between 0 and 20"}
	if diff := cmp.Diff(wantDetails, appErr.Details); diff != "" {
		t.Errorf("details mismatch (-want +got):\n%s", diff)
	}
	if appErr.Message != "Invalid features: Missing required field: asking_price; Invalid beds: must be between 0 and 20" {
		t.Errorf("Message = %q", appErr.Message)
	}
	if fx.analyzer.calls != 0 || len(fx.queries.queries) != 0 {
		t.Error("invalid input must not reach the analyzer or the database")
	}
}

func TestAnalyze_DegradedResultIsStillStored(t *testing.T) {
	fx := newPropertyFixture(t)
	fx.analyzer.result = analysis.Fallback(model.Features{}, analysis.StepDeal, errors.New("boom"))

	out, err := fx.svc.Analyze(context.Background(), 1, "q", validFeatures())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if out.DealVerdict != "Fair" || out.Confidence != 0.3 || len(out.Provenance) != 0 {
		t.Errorf("fallback not returned: %+v", out)
	}
	if len(fx.responses.responses) != 1 {
		t.Errorf("responses stored = %d, want 1", len(fx.responses.responses))
	}
}

func TestAnalyze_ResponseFailureDeletesQuery(t *testing.T) {
	fx := newPropertyFixture(t)
	fx.responses.createErr = errDBDown

	_, err := fx.svc.Analyze(context.Background(), 1, "q", validFeatures())
	if !errors.Is(err, errDBDown) {
		t.Fatalf("Analyze() error = %v, want wrapped db error", err)
	}
	if len(fx.queries.queries) != 0 || len(fx.queries.deleted) != 1 {
		t.Errorf("query not rolled back: remaining=%d deleted=%v", len(fx.queries.queries), fx.queries.deleted)
	}
}

func TestAnalyze_QueryFailure(t *testing.T) {
	fx := newPropertyFixture(t)
	fx.queries.createErr = errDBDown

	_, err := fx.svc.Analyze(context.Background(), 1, "q", validFeatures())
	if !errors.Is(err, errDBDown) {
		t.Fatalf("Analyze() error = %v, want wrapped db error", err)
	}
	if fx.analyzer.calls != 0 {
		t.Error("analyzer ran without a stored query")
	}
}

func TestHistory_ClampsLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{10, 10},
		{0, 1},
		{-5, 1},
		{250, MaxHistoryLimit},
	}

	for _, tt := range tests {
		fx := newPropertyFixture(t)
		if _, err := fx.svc.History(context.Background(), 1, tt.in); err != nil {
			t.Fatalf("History(%d) error = %v", tt.in, err)
		}
		if fx.queries.lastOpts != (repository.ListOptions{Limit: tt.want}) {
			t.Errorf("History(%d) used %+v, want limit %d", tt.in, fx.queries.lastOpts, tt.want)
		}
	}
}

func TestHistory_NewestFirstAndFlagged(t *testing.T) {
	fx := newPropertyFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Analyze(ctx, 1, "first", validFeatures())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	// a query without a response
	if err := fx.queries.CreateQuery(ctx, &model.Query{UserID: 1, QueryText: "second"}); err != nil {
		t.Fatalf("CreateQuery() error = %v", err)
	}
	// someone else's
	if err := fx.queries.CreateQuery(ctx, &model.Query{UserID: 2, QueryText: "other"}); err != nil {
		t.Fatalf("CreateQuery() error = %v", err)
	}

	items, err := fx.svc.History(ctx, 1, DefaultHistoryLimit)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("History() returned %d items, want 2", len(items))
	}
	if items[0].QueryText != "second" || items[0].HasResponse {
		t.Errorf("items[0] = %+v, want second without response", items[0])
	}
	if items[1].ID != first.QueryID || !items[1].HasResponse {
		t.Errorf("items[1] = %+v, want first with response", items[1])
	}
}

func TestHistory_RepositoryError(t *testing.T) {
	fx := newPropertyFixture(t)
	fx.queries.listErr = errDBDown

	if _, err := fx.svc.History(context.Background(), 1, 10); !errors.Is(err, errDBDown) {
		t.Fatalf("History() error = %v, want wrapped db error", err)
	}
}

func TestGetResponse(t *testing.T) {
	fx := newPropertyFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Analyze(ctx, 1, "mine", validFeatures())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	got, err := fx.svc.GetResponse(ctx, 1, created.QueryID)
	if err != nil {
		t.Fatalf("GetResponse() error = %v", err)
	}
	if got.ResponseID != created.ResponseID || got.DealVerdict != "Good Deal" || got.Currency != "LKR" {
		t.Errorf("GetResponse() = %+v", got)
	}
	if got.LandDetails != nil || got.PricePerSqft != nil || got.LLMExplanation != "" {
		t.Errorf("unpersisted fields leaked: %+v", got)
	}
	if got.Why != "Asking is well below the estimate" {
		t.Errorf("Why = %q, want filtered text", got.Why)
	}
}

func TestGetResponse_NotFound(t *testing.T) {
	fx := newPropertyFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Analyze(ctx, 1, "mine", validFeatures())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	orphan := &model.Query{UserID: 1, QueryText: "no response yet"}
	if err := fx.queries.CreateQuery(ctx, orphan); err != nil {
		t.Fatalf("CreateQuery() error = %v", err)
	}

	tests := []struct {
		name    string
		userID  int64
		queryID int64
		wantMsg string
	}{
		{"other user's query", 2, created.QueryID, "Query not found"},
		{"missing query", 1, 999, "Query not found"},
		{"query without response", 1, orphan.ID, "No response found for this query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.svc.GetResponse(ctx, tt.userID, tt.queryID)
			if !errors.Is(err, apperror.ErrNotFound) {
				t.Fatalf("GetResponse() error = %v, want ErrNotFound", err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseHistoryLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", DefaultHistoryLimit, false},
		{"25", 25, false},
		{" 3 ", 3, false},
		{"-1", -1, false},
		{"ten", 0, true},
		{"1.5", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseHistoryLimit(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHistoryLimit(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("ParseHistoryLimit(%q) error = %v, want ErrValidation", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParseHistoryLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
