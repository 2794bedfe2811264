package model

import "time"

// Features is the sanitized set of property attributes produced by the
// validation gate. Every numeric field is optional; nil means "not supplied".
//
// Numbers stay float64 here because that is what the gate coerces to. The
// repository narrows beds, baths and year_built to integers when persisting.
type Features struct {
	City         string   `json:"city,omitempty"`
	District     string   `json:"district,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	Beds         *float64 `json:"beds,omitempty"`
	Baths        *float64 `json:"baths,omitempty"`
	Area         *float64 `json:"area,omitempty"`
	YearBuilt    *float64 `json:"year_built,omitempty"`
	AskingPrice  *float64 `json:"asking_price,omitempty"`
	LandSize     *float64 `json:"land_size,omitempty"`
}

// ValueOr returns *p, or def when p is nil.
func ValueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Query is one submitted property description. Immutable after creation.
type Query struct {
	ID           int64
	UserID       int64
	QueryText    string
	City         string
	District     string
	PropertyType string
	Lat          *float64
	Lon          *float64
	Beds         *int
	Baths        *int
	Area         *float64
	YearBuilt    *int
	AskingPrice  *float64
	LandSize     *float64
	CreatedAt    time.Time
}

// HistoryItem is one row of GET /property/history.
type HistoryItem struct {
	ID          int64     `json:"id"`
	QueryText   string    `json:"query_text"`
	CreatedAt   time.Time `json:"created_at"`
	HasResponse bool      `json:"has_response"`
}
