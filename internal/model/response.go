package model

import "time"

// Currency is the only currency the valuation model produces.
const Currency = "LKR"

// Provenance is one piece of supporting evidence behind a score or estimate.
// Agents fill source/method/confidence/details; document citations use
// doc_id/snippet/link. Empty strings are omitted from JSON; confidence is
// always present since 0 is a valid score.
type Provenance struct {
	Source     string  `json:"source,omitempty"`
	Method     string  `json:"method,omitempty"`
	Confidence float64 `json:"confidence"`
	Details    string  `json:"details,omitempty"`
	DocID      string  `json:"doc_id,omitempty"`
	Snippet    string  `json:"snippet,omitempty"`
	Link       string  `json:"link,omitempty"`
}

// LandDetails is the supplementary land/investment analysis.
type LandDetails struct {
	LandAnalysis         string   `json:"land_analysis"`
	DevelopmentPotential string   `json:"development_potential"`
	LandUseOpportunities []string `json:"land_use_opportunities"`
	InvestmentTimeline   string   `json:"investment_timeline,omitempty"`
	ROIProjection        string   `json:"roi_projection,omitempty"`
	Recommendation       string   `json:"recommendation,omitempty"`
	NextSteps            []string `json:"next_steps,omitempty"`
	ParsingError         bool     `json:"parsing_error,omitempty"`
}

// Response is the persisted analysis result for a Query.
type Response struct {
	ID             int64
	QueryID        int64
	EstimatedPrice float64
	LocationScore  float64
	DealVerdict    string
	Why            string
	Confidence     float64
	Provenance     []Provenance
	CreatedAt      time.Time
}

// PropertyAnalysis is the JSON body returned by POST /property/query and
// GET /property/response/{query_id}.
//
// land_details and price_per_sqft are nullable rather than omitted, so
// clients always see the same set of keys.
type PropertyAnalysis struct {
	EstimatedPrice float64      `json:"estimated_price"`
	LocationScore  float64      `json:"location_score"`
	DealVerdict    string       `json:"deal_verdict"`
	Why            string       `json:"why"`
	Provenance     []Provenance `json:"provenance"`
	Confidence     float64      `json:"confidence"`
	QueryID        int64        `json:"query_id"`
	ResponseID     int64        `json:"response_id"`
	LandDetails    *LandDetails `json:"land_details"`
	Currency       string       `json:"currency"`
	PricePerSqft   *float64     `json:"price_per_sqft"`
	LLMExplanation string       `json:"llm_explanation,omitempty"`
}
