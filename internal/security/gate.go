// Package security is the validation and sanitization gate that sits
// between untrusted request data and the analysis pipeline.
//
// The gate is total: ValidateFeatures never panics or returns an error. It
// always yields either a valid feature set or a non-empty list of
// human-readable problems.
package security

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/qri-io/jsonschema"

	"github.com/sakif/real-estate-ai/internal/model"
)

//go:embed features.schema.json
var featuresSchema []byte

// Validation is the outcome of ValidateFeatures. Features holds only the
// fields that passed; Errors is non-empty exactly when Valid is false.
type Validation struct {
	Valid    bool
	Features model.Features
	Errors   []string
}

// Gate validates features and sanitizes text. Safe for concurrent use.
type Gate struct {
	schema *jsonschema.Schema
	html   *bluemonday.Policy
	now    func() time.Time
}

// NewGate compiles the embedded features schema.
func NewGate() (*Gate, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(featuresSchema, rs); err != nil {
		return nil, fmt.Errorf("security: parsing features schema: %w", err)
	}
	return &Gate{
		schema: rs,
		html:   bluemonday.StrictPolicy(),
		now:    time.Now,
	}, nil
}

var requiredFields = []string{"city", "asking_price"}

var stringFields = []string{"city", "district", "property_type"}

// numericRule bounds one numeric feature. The error text is reported as
// "Invalid <field>: <msg>".
type numericRule struct {
	field string
	check func(v float64, g *Gate) (ok bool, msg string)
}

func between(lo, hi float64, msg string) func(float64, *Gate) (bool, string) {
	return func(v float64, _ *Gate) (bool, string) {
		return v >= lo && v <= hi, msg
	}
}

var numericRules = []numericRule{
	{"lat", between(-90, 90, "must be between -90 and 90")},
	{"lon", between(-180, 180, "must be between -180 and 180")},
	{"beds", between(0, 20, "must be between 0 and 20")},
	{"baths", between(0, 20, "must be between 0 and 20")},
	{"area", func(v float64, _ *Gate) (bool, string) {
		return v > 0 && v <= 100_000, "must be between 0 and 100,000"
	}},
	{"year_built", func(v float64, g *Gate) (bool, string) {
		maxYear := g.now().Year() + 5
		return v >= 1800 && v <= float64(maxYear), fmt.Sprintf("must be between 1800 and %d", maxYear)
	}},
	{"asking_price", func(v float64, _ *Gate) (bool, string) {
		return v > 0, "must be greater than 0"
	}},
	{"land_size", between(0, 10_000_000, "must be between 0 and 10,000,000")},
}

// ValidateFeatures checks raw against the features schema, coerces numeric
// strings, enforces bounds, and sanitizes string fields. Unknown keys are
// dropped. Fields that fail are left out of the result and reported.
func (g *Gate) ValidateFeatures(ctx context.Context, raw map[string]any) (v Validation) {
	defer func() {
		if r := recover(); r != nil {
			v = Validation{Errors: []string{fmt.Sprintf("Validation error: %v", r)}}
		}
	}()

	if raw == nil {
		raw = map[string]any{}
	}

	var errs []string

	typeFailed, err := g.schemaFailures(ctx, raw)
	if err != nil {
		return Validation{Errors: []string{fmt.Sprintf("Validation error: %v", err)}}
	}

	for _, field := range requiredFields {
		if val, ok := raw[field]; !ok || val == nil {
			errs = append(errs, "Missing required field: "+field)
		}
	}

	var out model.Features
	for _, field := range stringFields {
		val, ok := raw[field]
		if !ok || val == nil {
			continue
		}
		if typeFailed[field] {
			errs = append(errs, fmt.Sprintf("Invalid %s: must be a string", field))
			continue
		}
		s := g.SanitizeText(fmt.Sprint(val))
		if s == "" {
			continue
		}
		switch field {
		case "city":
			out.City = s
		case "district":
			out.District = s
		case "property_type":
			out.PropertyType = s
		}
	}

	for _, rule := range numericRules {
		val, ok := raw[rule.field]
		if !ok || val == nil {
			continue
		}
		n, ok := toFloat(val)
		if !ok || typeFailed[rule.field] {
			errs = append(errs, fmt.Sprintf("Invalid %s: must be a number", rule.field))
			continue
		}
		if valid, msg := rule.check(n, g); !valid {
			errs = append(errs, fmt.Sprintf("Invalid %s: %s", rule.field, msg))
			continue
		}
		setNumeric(&out, rule.field, n)
	}

	return Validation{Valid: len(errs) == 0, Features: out, Errors: errs}
}

// schemaFailures returns the top-level fields the schema rejected.
func (g *Gate) schemaFailures(ctx context.Context, raw map[string]any) (map[string]bool, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding features: %w", err)
	}

	keyErrs, err := g.schema.ValidateBytes(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("checking features schema: %w", err)
	}

	failed := make(map[string]bool, len(keyErrs))
	for _, ke := range keyErrs {
		field := strings.TrimPrefix(ke.PropertyPath, "/")
		if i := strings.IndexByte(field, '/'); i >= 0 {
			field = field[:i]
		}
		failed[field] = true
	}
	return failed, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func setNumeric(f *model.Features, field string, v float64) {
	p := &v
	switch field {
	case "lat":
		f.Lat = p
	case "lon":
		f.Lon = p
	case "beds":
		f.Beds = p
	case "baths":
		f.Baths = p
	case "area":
		f.Area = p
	case "year_built":
		f.YearBuilt = p
	case "asking_price":
		f.AskingPrice = p
	case "land_size":
		f.LandSize = p
	}
}
