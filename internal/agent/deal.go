package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Deal verdicts.
const (
	VerdictGoodDeal   = "Good Deal"
	VerdictFair       = "Fair"
	VerdictOverpriced = "Overpriced"
)

const (
	goodDealMaxRatio = 0.90
	fairMaxRatio     = 1.10
	// Prime locations tolerate a slightly higher premium before a listing
	// is called overpriced.
	primeFairMaxRatio  = 1.15
	primeLocationScore = 0.85
)

var errNonPositivePrice = errors.New("agent: deal evaluation needs positive asking and estimated prices")

type DealInput struct {
	AskingPrice    float64
	EstimatedPrice float64
	LocationScore  float64
}

type DealResult struct {
	Verdict    string
	Why        string
	Confidence float64
}

type DealAgent struct{}

func NewDealAgent() *DealAgent { return &DealAgent{} }

// Evaluate compares the asking price with the estimate. Confidence grows
// with the distance from the nearest verdict boundary.
func (a *DealAgent) Evaluate(ctx context.Context, in DealInput) (*DealResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.AskingPrice <= 0 || in.EstimatedPrice <= 0 {
		return nil, errNonPositivePrice
	}

	ratio := in.AskingPrice / in.EstimatedPrice
	fairMax := fairMaxRatio
	if in.LocationScore >= primeLocationScore {
		fairMax = primeFairMaxRatio
	}

	var verdict, why string
	var margin float64
	pct := math.Abs(ratio-1) * 100
	asking, estimated := FormatLKR(in.AskingPrice), FormatLKR(in.EstimatedPrice)

	switch {
	case ratio <= goodDealMaxRatio:
		verdict = VerdictGoodDeal
		margin = goodDealMaxRatio - ratio
		why = fmt.Sprintf("Asking price %s is %.1f%% below the estimated value of %s.", asking, pct, estimated)
	case ratio <= fairMax:
		verdict = VerdictFair
		margin = math.Min(ratio-goodDealMaxRatio, fairMax-ratio)
		why = fmt.Sprintf("Asking price %s is within %.1f%% of the estimated value of %s.", asking, pct, estimated)
	default:
		verdict = VerdictOverpriced
		margin = ratio - fairMax
		why = fmt.Sprintf("Asking price %s is %.1f%% above the estimated value of %s.", asking, pct, estimated)
	}

	switch {
	case in.LocationScore >= primeLocationScore:
		why += " The prime location supports a modest premium."
	case in.LocationScore < 0.6:
		why += " The location scores below average, which limits resale demand."
	}

	return &DealResult{
		Verdict:    verdict,
		Why:        why,
		Confidence: round2(0.6 + math.Min(0.3, margin*2)),
	}, nil
}
