package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/real-estate-ai/internal/agent/llm"
	"github.com/sakif/real-estate-ai/internal/model"
)

type ExplainInput struct {
	AskingPrice    float64
	EstimatedPrice float64
	LocationScore  float64
	Features       model.Features
	Location       *LocationResult
}

// Explainer writes a short buyer-facing paragraph about the deal.
type Explainer struct {
	gen llm.Generator
}

// NewExplainer accepts a nil generator; Explain then returns "".
func NewExplainer(gen llm.Generator) *Explainer {
	return &Explainer{gen: gen}
}

func (e *Explainer) Explain(ctx context.Context, in ExplainInput) (string, error) {
	if e.gen == nil {
		return "", nil
	}
	return e.gen.Generate(ctx, explainPrompt(in))
}

func explainPrompt(in ExplainInput) string {
	var b strings.Builder
	b.WriteString("Explain to a home buyer in Sri Lanka, in one short paragraph, whether this property is a good deal.\n\n")
	fmt.Fprintf(&b, "Asking price: %s\n", FormatLKR(in.AskingPrice))
	fmt.Fprintf(&b, "Estimated market value: %s\n", FormatLKR(in.EstimatedPrice))
	fmt.Fprintf(&b, "Location score (0-1): %.2f\n", in.LocationScore)
	fmt.Fprintf(&b, "City: %s\n", orUnknown(in.Features.City))
	if in.Features.District != "" {
		fmt.Fprintf(&b, "District: %s\n", in.Features.District)
	}
	if in.Location != nil && len(in.Location.Bullets) > 0 {
		n := min(3, len(in.Location.Bullets))
		fmt.Fprintf(&b, "Location highlights: %s\n", strings.Join(in.Location.Bullets[:n], "; "))
	}
	b.WriteString("Do not include personal data. Do not use markdown.")
	return b.String()
}
