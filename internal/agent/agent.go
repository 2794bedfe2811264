// Package agent holds the analysis agents: price estimation, location
// scoring, deal evaluation, land details and the optional natural-language
// explainer.
//
// Price and location are table-driven models of the Sri Lankan market. They
// take their clock and random source as fields so tests can pin both.
package agent

import (
	"math"
	"math/rand/v2"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RandFunc returns a float in [0, 1).
type RandFunc func() float64

func defaultRand() float64 { return rand.Float64() }

func uniform(r RandFunc, lo, hi float64) float64 {
	return lo + (hi-lo)*r()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// printer groups thousands ("LKR 45,000,000"). Grouped amounts also stay
// clear of the bare-digit phone pattern applied when output is filtered.
var printer = message.NewPrinter(language.English)

// FormatLKR renders a whole-rupee amount.
func FormatLKR(amount float64) string {
	return printer.Sprintf("LKR %.0f", math.Round(amount))
}
