package agent

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sakif/real-estate-ai/internal/model"
)

const basePricePerSqft = 25_000

// Defaults for features the caller left out.
const (
	defaultArea         = 1000
	defaultBeds         = 2
	defaultBaths        = 2
	defaultYearBuilt    = 2000
	defaultPropertyType = "House"
)

var propertyTypeMultipliers = map[string]float64{
	"House":      1.0,
	"Apartment":  0.9,
	"Commercial": 1.2,
	"Land":       0.7,
	"Tea Estate": 0.8,
	"Villa":      1.3,
	"Penthouse":  1.4,
	"Office":     1.3,
	"Shop":       1.1,
	"Hotel":      1.5,
}

var cityPriceMultipliers = map[string]float64{
	"Colombo":      1.8,
	"Kandy":        1.4,
	"Galle":        1.3,
	"Jaffna":       1.1,
	"Negombo":      1.2,
	"Matara":       1.1,
	"Anuradhapura": 1.0,
	"Polonnaruwa":  0.9,
	"Trincomalee":  1.1,
	"Batticaloa":   1.0,
	"Ratnapura":    0.9,
	"Kurunegala":   1.0,
	"Badulla":      0.9,
	"Monaragala":   0.8,
	"Vavuniya":     0.9,
	"Mullaitivu":   0.8,
	"Kilinochchi":  0.8,
	"Ampara":       0.9,
	"Puttalam":     1.0,
	"Hambantota":   1.1,
	"Kalutara":     1.2,
	"Gampaha":      1.3,
	"Nuwara Eliya": 1.2,
	"Kegalle":      1.0,
}

// District multipliers replace the city multiplier when they match.
var districtPriceMultipliers = map[string]map[string]float64{
	"Colombo": {
		"Colombo 1":  2.2,
		"Colombo 2":  2.0,
		"Colombo 3":  1.9,
		"Colombo 4":  1.8,
		"Colombo 5":  1.7,
		"Colombo 6":  1.6,
		"Colombo 7":  2.1,
		"Colombo 8":  1.5,
		"Colombo 9":  1.4,
		"Colombo 10": 1.3,
		"Colombo 11": 1.2,
		"Colombo 12": 1.1,
		"Colombo 13": 1.0,
		"Colombo 14": 0.9,
		"Colombo 15": 0.8,
	},
	"Kandy": {
		"Peradeniya":  1.5,
		"Katugastota": 1.3,
		"Mahaiyawa":   1.2,
		"Asgiriya":    1.4,
		"Malwatte":    1.4,
	},
	"Galle": {
		"Galle Fort": 1.6,
		"Unawatuna":  1.5,
		"Hikkaduwa":  1.4,
		"Mirissa":    1.5,
		"Weligama":   1.4,
	},
}

// PriceEstimate is the output of PriceAgent.Estimate. Amounts are LKR.
type PriceEstimate struct {
	EstimatedPrice float64
	Confidence     float64
	PricePerSqft   float64
	FeaturesUsed   []string
	Comps          []Comparable
	Currency       string
}

// Comparable is a synthetic recent sale near the subject property.
type Comparable struct {
	ID           string
	Price        float64
	PriceLKR     string
	Area         float64
	Beds         float64
	Baths        float64
	City         string
	PropertyType string
	Distance     float64 // km
	PricePerSqft float64
}

type PriceAgent struct {
	now  func() time.Time
	rand RandFunc
}

func NewPriceAgent() *PriceAgent {
	return &PriceAgent{now: time.Now, rand: defaultRand}
}

// Estimate values a property from its features. Missing features fall back
// to typical values and lower the confidence.
func (a *PriceAgent) Estimate(ctx context.Context, f model.Features) (*PriceEstimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	area := model.ValueOr(f.Area, defaultArea)
	beds := model.ValueOr(f.Beds, defaultBeds)
	baths := model.ValueOr(f.Baths, defaultBaths)
	yearBuilt := model.ValueOr(f.YearBuilt, defaultYearBuilt)
	landSize := model.ValueOr(f.LandSize, 0)
	propertyType := f.PropertyType
	if propertyType == "" {
		propertyType = defaultPropertyType
	}

	base := area * basePricePerSqft * typeMultiplier(propertyType)
	bedAdj := (beds - 2) * 500_000
	bathAdj := (baths - 1) * 300_000

	age := float64(a.now().Year()) - yearBuilt
	ageAdj := math.Max(0, (30-age)*100_000)

	landAdj := 0.0
	if propertyType == "House" && landSize > 0 {
		landAdj = (landSize - area) * 15_000
	}

	estimated := (base + bedAdj + bathAdj + ageAdj + landAdj) * cityPriceMultiplier(f.City, f.District)
	if math.IsNaN(estimated) || math.IsInf(estimated, 0) {
		return nil, fmt.Errorf("agent: price estimate is not a finite number")
	}
	estimated = round2(estimated)

	est := &PriceEstimate{
		EstimatedPrice: estimated,
		Confidence:     priceConfidence(f),
		FeaturesUsed:   featuresUsed(f),
		Currency:       model.Currency,
	}
	if area > 0 {
		est.PricePerSqft = round2(estimated / area)
	}
	est.Comps = a.comparables(f, estimated, area, beds, baths, propertyType)

	return est, nil
}

// Provenance lists the evidence behind the estimate: the features the
// model used and each comparable sale.
func (e *PriceEstimate) Provenance() []model.Provenance {
	var prov []model.Provenance
	if len(e.FeaturesUsed) > 0 {
		prov = append(prov, model.Provenance{
			Source:     "Price Model",
			Method:     "Sri Lankan market valuation",
			Confidence: e.Confidence,
			Details:    "Estimated from " + strings.Join(e.FeaturesUsed, ", "),
		})
	}
	for _, c := range e.Comps {
		prov = append(prov, model.Provenance{
			Source:     "Comparable Sales",
			Method:     "Nearby recent sale",
			Confidence: e.Confidence,
			Details: printer.Sprintf("%s: %s for %.0f sqft, %.0f bed, %.0f bath, %.1f km away",
				c.ID, c.PriceLKR, c.Area, c.Beds, c.Baths, c.Distance),
		})
	}
	return prov
}

func typeMultiplier(propertyType string) float64 {
	if m, ok := propertyTypeMultipliers[propertyType]; ok {
		return m
	}
	return 1.0
}

func cityPriceMultiplier(city, district string) float64 {
	if district != "" {
		if m, ok := districtPriceMultipliers[city][district]; ok {
			return m
		}
	}
	if m, ok := cityPriceMultipliers[city]; ok {
		return m
	}
	return 1.0
}

// priceConfidence rewards completeness: up to 0.4 for the five core
// features, up to 0.1 for the local extras, capped at 0.95.
func priceConfidence(f model.Features) float64 {
	core := 0
	for _, present := range []bool{f.Area != nil, f.Beds != nil, f.Baths != nil, f.YearBuilt != nil, f.City != ""} {
		if present {
			core++
		}
	}
	bonus := 0
	for _, present := range []bool{f.District != "", f.PropertyType != "", f.LandSize != nil} {
		if present {
			bonus++
		}
	}

	c := 0.5 + float64(core)/5*0.4 + math.Min(0.1, float64(bonus)*0.02)
	return round2(math.Min(0.95, c))
}

func featuresUsed(f model.Features) []string {
	var used []string
	add := func(name string, present bool) {
		if present {
			used = append(used, name)
		}
	}
	add("city", f.City != "")
	add("district", f.District != "")
	add("property_type", f.PropertyType != "")
	add("lat", f.Lat != nil)
	add("lon", f.Lon != nil)
	add("beds", f.Beds != nil)
	add("baths", f.Baths != nil)
	add("area", f.Area != nil)
	add("year_built", f.YearBuilt != nil)
	add("asking_price", f.AskingPrice != nil)
	add("land_size", f.LandSize != nil)
	return used
}

func (a *PriceAgent) comparables(f model.Features, estimated, area, beds, baths float64, propertyType string) []Comparable {
	city := f.City
	if city == "" {
		city = "Unknown"
	}

	comps := make([]Comparable, 0, 3)
	for i := range 3 {
		price := estimated * uniform(a.rand, 0.8, 1.2)
		compArea := area * uniform(a.rand, 0.9, 1.1)
		c := Comparable{
			ID:           fmt.Sprintf("comp_%d", i+1),
			Price:        round2(price),
			PriceLKR:     FormatLKR(price),
			Area:         round2(compArea),
			Beds:         beds,
			Baths:        baths,
			City:         city,
			PropertyType: propertyType,
			Distance:     math.Round(uniform(a.rand, 0.1, 2.0)*10) / 10,
		}
		if compArea > 0 {
			c.PricePerSqft = round2(price / compArea)
		}
		comps = append(comps, c)
	}
	return comps
}
