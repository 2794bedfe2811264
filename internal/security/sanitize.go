package security

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/real-estate-ai/internal/model"
)

const (
	// MaxTextLength caps sanitized text, suffix included.
	MaxTextLength   = 10_000
	truncatedSuffix = "... [TRUNCATED]"

	redacted    = "[REDACTED]"
	piiRedacted = "[PII_REDACTED]"
)

var toxicPattern = regexp.MustCompile(
	`(?i)\b(kill|hate|attack|destroy|harm)\b|\b(racist|sexist|discriminatory)\b|\b(illegal|unlawful|criminal)\b`,
)

// SSN, separated and bare phone numbers, email, street address.
var piiPattern = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`\b\d{3}-\d{2}-\d{4}\b`,
	`\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`,
	`\b\d{10,11}\b`,
	`\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`,
	`\b\d{1,5}\s+[A-Z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr)\b`,
}, "|"))

// SanitizeText makes free text safe to store and echo back. HTML is
// stripped and escaped, toxic words and personal data are redacted,
// whitespace is collapsed, and the result is capped at MaxTextLength runes.
func (g *Gate) SanitizeText(s string) string {
	if s == "" {
		return ""
	}

	out := g.html.Sanitize(s)
	out = toxicPattern.ReplaceAllString(out, redacted)
	out = piiPattern.ReplaceAllString(out, piiRedacted)
	out = strings.Join(strings.Fields(out), " ")

	if utf8.RuneCountInString(out) > MaxTextLength {
		keep := MaxTextLength - len(truncatedSuffix)
		out = string([]rune(out)[:keep]) + truncatedSuffix
	}
	return out
}

// FilterOutput sanitizes every human-readable string of an analysis before
// it is returned, and drops provenance links that are not absolute
// http(s) URLs. Numbers and ids pass through untouched. The input is not
// modified.
func (g *Gate) FilterOutput(a model.PropertyAnalysis) model.PropertyAnalysis {
	a.DealVerdict = g.SanitizeText(a.DealVerdict)
	a.Why = g.SanitizeText(a.Why)
	a.LLMExplanation = g.SanitizeText(a.LLMExplanation)

	provenance := make([]model.Provenance, 0, len(a.Provenance))
	for _, p := range a.Provenance {
		p.Source = g.SanitizeText(p.Source)
		p.Method = g.SanitizeText(p.Method)
		p.Details = g.SanitizeText(p.Details)
		p.Snippet = g.SanitizeText(p.Snippet)
		if !isSafeURL(p.Link) {
			p.Link = ""
		}
		provenance = append(provenance, p)
	}
	a.Provenance = provenance

	if a.LandDetails != nil {
		ld := *a.LandDetails
		ld.LandAnalysis = g.SanitizeText(ld.LandAnalysis)
		ld.DevelopmentPotential = g.SanitizeText(ld.DevelopmentPotential)
		ld.InvestmentTimeline = g.SanitizeText(ld.InvestmentTimeline)
		ld.ROIProjection = g.SanitizeText(ld.ROIProjection)
		ld.Recommendation = g.SanitizeText(ld.Recommendation)
		ld.LandUseOpportunities = g.sanitizeAll(ld.LandUseOpportunities)
		ld.NextSteps = g.sanitizeAll(ld.NextSteps)
		a.LandDetails = &ld
	}

	return a
}

func (g *Gate) sanitizeAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = g.SanitizeText(s)
	}
	return out
}

func isSafeURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
