package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/real-estate-ai/internal/agent/llm"
	"github.com/sakif/real-estate-ai/internal/model"
)

type LandInput struct {
	Features       model.Features
	Location       *LocationResult
	AskingPrice    float64
	EstimatedPrice float64
}

// LandAgent produces the supplementary land and investment analysis. With a
// generator it asks the model for a JSON document; without one, or when
// the model call fails, it derives the analysis from rules.
type LandAgent struct {
	gen    llm.Generator
	logger *slog.Logger
}

// NewLandAgent accepts a nil generator.
func NewLandAgent(gen llm.Generator, logger *slog.Logger) *LandAgent {
	return &LandAgent{gen: gen, logger: logger}
}

func (a *LandAgent) Analyze(ctx context.Context, in LandInput) (*model.LandDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.gen == nil {
		return ruleBasedLand(in), nil
	}

	text, err := a.gen.Generate(ctx, landPrompt(in))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.logger.WarnContext(ctx, "land analysis generation failed, using rules",
			"backend", a.gen.Name(), "error", err)
		return ruleBasedLand(in), nil
	}

	details, err := parseLandDetails(text)
	if err != nil {
		a.logger.WarnContext(ctx, "land analysis response was not valid JSON",
			"backend", a.gen.Name(), "error", err)
		fallback := ruleBasedLand(in)
		fallback.LandAnalysis = strings.TrimSpace(text)
		fallback.ParsingError = true
		return fallback, nil
	}
	return details, nil
}

var errNoJSONObject = errors.New("no JSON object in response")

// parseLandDetails accepts a bare JSON object or one wrapped in prose or a
// fenced code block.
func parseLandDetails(text string) (*model.LandDetails, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, errNoJSONObject
	}

	var d model.LandDetails
	if err := json.Unmarshal([]byte(text[start:end+1]), &d); err != nil {
		return nil, err
	}
	if d.LandAnalysis == "" {
		return nil, errors.New("land_analysis missing")
	}
	if d.LandUseOpportunities == nil {
		d.LandUseOpportunities = []string{}
	}
	return &d, nil
}

func landPrompt(in LandInput) string {
	f := in.Features
	var b strings.Builder
	b.WriteString("You are a Sri Lankan real estate analyst. Analyze the land and investment potential of this property.\n\n")
	fmt.Fprintf(&b, "City: %s\n", orUnknown(f.City))
	fmt.Fprintf(&b, "District: %s\n", orUnknown(f.District))
	fmt.Fprintf(&b, "Property type: %s\n", orUnknown(f.PropertyType))
	if f.LandSize != nil {
		fmt.Fprintf(&b, "Land size: %.0f sq ft\n", *f.LandSize)
	}
	if f.Area != nil {
		fmt.Fprintf(&b, "Built area: %.0f sq ft\n", *f.Area)
	}
	fmt.Fprintf(&b, "Asking price: %s\n", FormatLKR(in.AskingPrice))
	fmt.Fprintf(&b, "Estimated value: %s\n", FormatLKR(in.EstimatedPrice))
	if in.Location != nil {
		fmt.Fprintf(&b, "Location score: %.2f\n", in.Location.Score)
		fmt.Fprintf(&b, "Location summary: %s\n", in.Location.Summary)
	}
	b.WriteString(`
Respond with only a JSON object with these keys:
"land_analysis" (string), "development_potential" ("High", "Medium" or "Low"),
"land_use_opportunities" (array of strings), "investment_timeline" (string),
"roi_projection" (string), "recommendation" (string), "next_steps" (array of strings).`)
	return b.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func ruleBasedLand(in LandInput) *model.LandDetails {
	f := in.Features
	propertyType := f.PropertyType
	if propertyType == "" {
		propertyType = defaultPropertyType
	}
	score := defaultLocationScore
	if in.Location != nil {
		score = in.Location.Score
	}
	landSize := model.ValueOr(f.LandSize, 0)

	potential := "Low"
	switch {
	case score >= 0.85 || landSize >= 5000:
		potential = "High"
	case score >= 0.7 || landSize >= 1000:
		potential = "Medium"
	}

	var uses []string
	switch propertyType {
	case "Land":
		uses = []string{"Residential", "Commercial", "Mixed-use development"}
	case "Tea Estate":
		uses = []string{"Agriculture", "Agro-tourism", "Eco-lodges"}
	case "Commercial", "Office", "Shop", "Hotel":
		uses = []string{"Commercial", "Retail", "Hospitality"}
	default:
		uses = []string{"Residential", "Rental income"}
		if landSize > model.ValueOr(f.Area, defaultArea) {
			uses = append(uses, "Extension or annex construction")
		}
	}

	timeline := "5-10 years"
	roi := "4-6% annually"
	switch potential {
	case "High":
		timeline = "2-5 years"
		roi = "8-12% annually"
	case "Medium":
		timeline = "3-7 years"
		roi = "6-8% annually"
	}

	recommendation := "Proceed with standard due diligence."
	if in.EstimatedPrice > 0 && in.AskingPrice > 0 {
		switch ratio := in.AskingPrice / in.EstimatedPrice; {
		case ratio <= goodDealMaxRatio:
			recommendation = "Asking price is below estimated value; consider moving quickly."
		case ratio > fairMaxRatio:
			recommendation = "Asking price is above estimated value; negotiate before committing."
		}
	}

	place := orUnknown(f.City)
	if f.District != "" {
		place += " - " + f.District
	}
	analysis := fmt.Sprintf("%s in %s with %s development potential based on a location score of %.2f",
		propertyType, place, strings.ToLower(potential), score)
	if landSize > 0 {
		analysis += fmt.Sprintf(" and %.0f sq ft of land", landSize)
	}
	analysis += "."

	return &model.LandDetails{
		LandAnalysis:         analysis,
		DevelopmentPotential: potential,
		LandUseOpportunities: uses,
		InvestmentTimeline:   timeline,
		ROIProjection:        roi,
		Recommendation:       recommendation,
		NextSteps: []string{
			"Verify title deeds at the Land Registry",
			"Confirm zoning with the local Urban Development Authority office",
			"Commission an independent valuation",
		},
	}
}

// FallbackLandDetails is attached when the analysis pipeline fails.
func FallbackLandDetails() *model.LandDetails {
	return &model.LandDetails{
		LandAnalysis:         "Analysis unavailable due to error",
		DevelopmentPotential: "Unknown",
		LandUseOpportunities: []string{"Residential", "Commercial"},
	}
}
