// internal/places/models.go
package places

import (
	"fmt"
	"strings"
)

// Category selects which weight set and provider type filter a request uses.
type Category string

const (
	CategoryHotel      Category = "hotel"
	CategoryRestaurant Category = "restaurant"
)

// ParseCategory accepts the canonical names plus the provider's type names.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hotel", "hotels", "lodging":
		return CategoryHotel, nil
	case "restaurant", "restaurants", "food":
		return CategoryRestaurant, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

func (c Category) Valid() bool {
	return c == CategoryHotel || c == CategoryRestaurant
}

// IncludedType is the provider type filter for the category.
func (c Category) IncludedType() string {
	if c == CategoryHotel {
		return "lodging"
	}
	return "restaurant"
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Viewport is a lat/lng rectangle given by its south-west (Low) and north-east (High) corners.
type Viewport struct {
	Low  Coordinates `json:"low"`
	High Coordinates `json:"high"`
}

// Contains reports whether c lies strictly inside the viewport. Points on an edge are outside.
func (v Viewport) Contains(c Coordinates) bool {
	return c.Latitude > v.Low.Latitude && c.Latitude < v.High.Latitude &&
		c.Longitude > v.Low.Longitude && c.Longitude < v.High.Longitude
}

func (v Viewport) Valid() bool {
	return v.Low.Valid() && v.High.Valid() &&
		v.Low.Latitude <= v.High.Latitude && v.Low.Longitude <= v.High.Longitude
}

// Candidate is a raw place record as returned by a search transport, normalized at the
// transport boundary. Optional numeric fields are pointers so "missing" and "zero" differ.
type Candidate struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Location     Coordinates `json:"location"`
	Address      string      `json:"address,omitempty"`
	Rating       *float64    `json:"rating,omitempty"`
	ReviewCount  *int        `json:"reviewCount,omitempty"`
	PriceLevel   PriceLevel  `json:"priceLevel,omitempty"`
	Description  string      `json:"description,omitempty"`
	Types        []string    `json:"types,omitempty"`
	LanguageCode string      `json:"languageCode,omitempty"`
	Photos       []string    `json:"photos,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with c.
func (c Candidate) Clone() Candidate {
	if c.Rating != nil {
		c.Rating = Float64(*c.Rating)
	}
	if c.ReviewCount != nil {
		c.ReviewCount = Int(*c.ReviewCount)
	}
	if c.Types != nil {
		c.Types = append([]string(nil), c.Types...)
	}
	if c.Photos != nil {
		c.Photos = append([]string(nil), c.Photos...)
	}
	return c
}

// Valid reports whether the candidate carries the identifying fields ranking relies on.
func (c Candidate) Valid() bool {
	return strings.TrimSpace(c.ID) != ""
}

// RatingOr returns the rating or def when absent.
func (c Candidate) RatingOr(def float64) float64 {
	if c.Rating == nil {
		return def
	}
	return *c.Rating
}

func (c Candidate) ReviewCountOr(def int) int {
	if c.ReviewCount == nil {
		return def
	}
	return *c.ReviewCount
}

// Float64 and Int are helpers for building candidates with optional fields.
func Float64(v float64) *float64 { return &v }

func Int(v int) *int { return &v }
