package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealAgent_Evaluate(t *testing.T) {
	tests := []struct {
		name           string
		in             DealInput
		wantVerdict    string
		wantConfidence float64
		wantWhy        []string
	}{
		{
			name:           "well below estimate",
			in:             DealInput{AskingPrice: 40_000_000, EstimatedPrice: 50_000_000, LocationScore: 0.75},
			wantVerdict:    VerdictGoodDeal,
			wantConfidence: 0.8,
			wantWhy:        []string{"LKR 40,000,000", "20.0% below", "LKR 50,000,000"},
		},
		{
			name:           "near estimate in weak location",
			in:             DealInput{AskingPrice: 52_000_000, EstimatedPrice: 50_000_000, LocationScore: 0.5},
			wantVerdict:    VerdictFair,
			wantConfidence: 0.72,
			wantWhy:        []string{"within 4.0%", "below average"},
		},
		{
			name:           "premium tolerated in prime location",
			in:             DealInput{AskingPrice: 56_000_000, EstimatedPrice: 50_000_000, LocationScore: 0.9},
			wantVerdict:    VerdictFair,
			wantConfidence: 0.66,
			wantWhy:        []string{"prime location"},
		},
		{
			name:           "same premium elsewhere",
			in:             DealInput{AskingPrice: 56_000_000, EstimatedPrice: 50_000_000, LocationScore: 0.7},
			wantVerdict:    VerdictOverpriced,
			wantConfidence: 0.64,
			wantWhy:        []string{"12.0% above"},
		},
		{
			name:           "far above caps confidence",
			in:             DealInput{AskingPrice: 100_000_000, EstimatedPrice: 50_000_000, LocationScore: 0.7},
			wantVerdict:    VerdictOverpriced,
			wantConfidence: 0.9,
		},
	}

	a := NewDealAgent()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Evaluate(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerdict, res.Verdict)
			assert.InDelta(t, tt.wantConfidence, res.Confidence, 1e-9)
			for _, s := range tt.wantWhy {
				assert.Contains(t, res.Why, s)
			}
		})
	}
}

func TestDealAgent_RejectsNonPositivePrices(t *testing.T) {
	a := NewDealAgent()
	ctx := context.Background()

	_, err := a.Evaluate(ctx, DealInput{AskingPrice: 0, EstimatedPrice: 1})
	assert.ErrorIs(t, err, errNonPositivePrice)
	_, err = a.Evaluate(ctx, DealInput{AskingPrice: 1, EstimatedPrice: -5})
	assert.ErrorIs(t, err, errNonPositivePrice)
}
