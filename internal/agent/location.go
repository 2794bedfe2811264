package agent

import (
	"context"
	"fmt"
	"math"

	"github.com/sakif/real-estate-ai/internal/model"
)

const defaultLocationScore = 0.5

var cityLocationScores = map[string]float64{
	"Colombo":      0.95,
	"Kandy":        0.90,
	"Galle":        0.85,
	"Jaffna":       0.80,
	"Negombo":      0.85,
	"Matara":       0.80,
	"Anuradhapura": 0.75,
	"Polonnaruwa":  0.70,
	"Trincomalee":  0.80,
	"Batticaloa":   0.75,
	"Ratnapura":    0.70,
	"Kurunegala":   0.75,
	"Badulla":      0.70,
	"Monaragala":   0.65,
	"Vavuniya":     0.70,
	"Mullaitivu":   0.65,
	"Kilinochchi":  0.65,
	"Ampara":       0.70,
	"Puttalam":     0.75,
	"Hambantota":   0.80,
	"Kalutara":     0.80,
	"Gampaha":      0.85,
	"Nuwara Eliya": 0.80,
	"Kegalle":      0.75,
}

var districtLocationScores = map[string]map[string]float64{
	"Colombo": {
		"Colombo 1":  0.98,
		"Colombo 2":  0.97,
		"Colombo 3":  0.96,
		"Colombo 4":  0.95,
		"Colombo 5":  0.94,
		"Colombo 6":  0.93,
		"Colombo 7":  0.97,
		"Colombo 8":  0.92,
		"Colombo 9":  0.91,
		"Colombo 10": 0.90,
		"Colombo 11": 0.89,
		"Colombo 12": 0.88,
		"Colombo 13": 0.87,
		"Colombo 14": 0.86,
		"Colombo 15": 0.85,
	},
	"Kandy": {
		"Peradeniya":  0.92,
		"Katugastota": 0.88,
		"Mahaiyawa":   0.85,
		"Asgiriya":    0.90,
		"Malwatte":    0.89,
	},
	"Galle": {
		"Galle Fort": 0.95,
		"Unawatuna":  0.90,
		"Hikkaduwa":  0.88,
		"Mirissa":    0.92,
		"Weligama":   0.89,
	},
}

// cityCentre is a proximity hotspot. Properties within innerKm of the
// centre earn innerBonus; Colombo also rewards a wider ring.
type cityCentre struct {
	name       string
	lat, lon   float64
	innerKm    float64
	innerBonus float64
	outerKm    float64
	outerBonus float64
}

var cityCentres = []cityCentre{
	{name: "Colombo", lat: 6.9271, lon: 79.8612, innerKm: 11, innerBonus: 0.05, outerKm: 22, outerBonus: 0.03},
	{name: "Kandy", lat: 7.2906, lon: 80.6337, innerKm: 11, innerBonus: 0.03},
	{name: "Galle", lat: 6.0535, lon: 80.2210, innerKm: 11, innerBonus: 0.02},
}

var cityBullets = map[string][]string{
	"Colombo": {
		"Capital city with excellent infrastructure",
		"Close to Bandaranaike International Airport",
		"Major business and financial hub",
		"Good public transportation (buses, trains)",
		"International schools and universities",
		"Modern shopping malls and restaurants",
		"Healthcare facilities and hospitals",
		"Port city with trade opportunities",
	},
	"Kandy": {
		"Cultural and historical significance",
		"Pleasant climate and scenic beauty",
		"Major tourist destination",
		"Peradeniya University area",
		"Temple of the Tooth Relic",
		"Botanical Gardens",
		"Tea plantations nearby",
		"Cooler climate than coastal areas",
	},
	"Galle": {
		"Coastal city with beautiful beaches",
		"UNESCO World Heritage site (Galle Fort)",
		"Tourism and hospitality focus",
		"Relaxed lifestyle",
		"Historical Portuguese and Dutch influence",
		"Good for retirement and tourism",
		"Fishing industry",
		"Close to other beach destinations",
	},
	"Jaffna": {
		"Northern cultural center",
		"Growing economic opportunities",
		"Unique cultural heritage",
		"Development potential",
		"University of Jaffna",
		"Historical significance",
		"Agricultural land",
		"Peaceful environment",
	},
	"Negombo": {
		"Beach city near airport",
		"Tourist-friendly area",
		"Fishing industry",
		"Good for expats and tourists",
		"Historical churches",
		"Lagoon and beach activities",
		"Growing real estate market",
		"Easy access to Colombo",
	},
	"Matara": {
		"Southern coastal city",
		"Beautiful beaches",
		"Historical significance",
		"University of Ruhuna",
		"Growing development",
		"Good investment potential",
		"Tourist attractions",
		"Peaceful lifestyle",
	},
	"Anuradhapura": {
		"Ancient capital of Sri Lanka",
		"UNESCO World Heritage site",
		"Buddhist pilgrimage site",
		"Historical significance",
		"Agricultural land",
		"Growing tourism",
		"Cultural heritage",
		"Investment potential",
	},
}

var defaultBullets = []string{
	"Developing area with potential",
	"Local amenities available",
	"Growing community",
	"Investment opportunities",
}

var colomboDistrictBullets = map[string][]string{
	"Colombo 1": {"Prime business district", "Financial institutions", "Government offices", "High commercial value"},
	"Colombo 3": {"Upscale residential area", "Close to beach", "International schools", "High-end restaurants"},
	"Colombo 5": {"Upscale residential", "Good schools", "Shopping areas", "Family-friendly"},
	"Colombo 7": {"Most prestigious area", "Diplomatic missions", "Luxury residences", "Exclusive clubs"},
}

type LocationInput struct {
	Lat      *float64
	Lon      *float64
	City     string
	District string
}

type LocationResult struct {
	Score      float64
	Bullets    []string
	Summary    string
	Provenance []model.Provenance
}

type LocationAgent struct {
	rand RandFunc
}

func NewLocationAgent() *LocationAgent {
	return &LocationAgent{rand: defaultRand}
}

// Analyze scores a location in [0, 1] from the city and district tables,
// a proximity bonus near the major centres, and ±0.05 of market noise.
func (a *LocationAgent) Analyze(ctx context.Context, in LocationInput) (*LocationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	score := tableScore(in.City, in.District)
	if in.Lat != nil && in.Lon != nil {
		score += proximityBonus(*in.Lat, *in.Lon)
	}
	score += uniform(a.rand, -0.05, 0.05)
	score = round2(clamp(score, 0, 1))

	return &LocationResult{
		Score:      score,
		Bullets:    locationBullets(in),
		Summary:    locationSummary(score, in.City, in.District),
		Provenance: locationProvenance(in),
	}, nil
}

func tableScore(city, district string) float64 {
	if district != "" {
		if s, ok := districtLocationScores[city][district]; ok {
			return s
		}
	}
	if s, ok := cityLocationScores[city]; ok {
		return s
	}
	return defaultLocationScore
}

func proximityBonus(lat, lon float64) float64 {
	bonus := 0.0
	for _, c := range cityCentres {
		d := haversineKm(lat, lon, c.lat, c.lon)
		switch {
		case d < c.innerKm:
			bonus += c.innerBonus
		case c.outerKm > 0 && d < c.outerKm:
			bonus += c.outerBonus
		}
	}
	return bonus
}

// haversineKm is the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func locationBullets(in LocationInput) []string {
	var bullets []string
	if in.City != "" {
		src, ok := cityBullets[in.City]
		if !ok {
			src = defaultBullets
		}
		bullets = append(bullets, src...)
	}
	if in.City == "Colombo" {
		bullets = append(bullets, colomboDistrictBullets[in.District]...)
	}
	if in.Lat != nil && in.Lon != nil {
		bullets = append(bullets, fmt.Sprintf("Coordinates: %.4f, %.4f", *in.Lat, *in.Lon))
	}
	return bullets
}

func locationSummary(score float64, city, district string) string {
	place := city
	if place == "" {
		place = "the area"
	}
	if district != "" {
		place += " - " + district
	}

	switch {
	case score >= 0.9:
		return fmt.Sprintf("Excellent location in %s. Prime area with high investment potential and excellent amenities.", place)
	case score >= 0.8:
		return fmt.Sprintf("Very good location in %s. Desirable area with good infrastructure and growth potential.", place)
	case score >= 0.7:
		return fmt.Sprintf("Good location in %s. Well-established area with decent amenities and investment value.", place)
	case score >= 0.6:
		return fmt.Sprintf("Fair location in %s. Developing area with potential for growth and improvement.", place)
	default:
		return fmt.Sprintf("Basic location in %s. Area with basic amenities and potential for development.", place)
	}
}

func locationProvenance(in LocationInput) []model.Provenance {
	var prov []model.Provenance
	if in.City != "" {
		prov = append(prov, model.Provenance{
			Source:     "City Analysis",
			Method:     "Sri Lankan city scoring system",
			Confidence: 0.9,
			Details:    fmt.Sprintf("Analyzed %s based on local market data", in.City),
		})
	}
	if in.District != "" {
		prov = append(prov, model.Provenance{
			Source:     "District Analysis",
			Method:     "Local area scoring",
			Confidence: 0.85,
			Details:    fmt.Sprintf("Evaluated %s within %s", in.District, in.City),
		})
	}
	if in.Lat != nil && in.Lon != nil {
		prov = append(prov, model.Provenance{
			Source:     "Coordinate Analysis",
			Method:     "Geographic proximity scoring",
			Confidence: 0.8,
			Details:    fmt.Sprintf("Analyzed location at coordinates %.4f, %.4f", *in.Lat, *in.Lon),
		})
	}
	return append(prov, model.Provenance{
		Source:     "Sri Lanka Market Data",
		Method:     "Local real estate analysis",
		Confidence: 0.9,
		Details:    "Based on Sri Lankan property market trends",
	})
}
