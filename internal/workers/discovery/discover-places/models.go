// internal/workers/discovery/discover-places/models.go
package discoverplaces

import "place-discovery/internal/places"

type Input struct {
	RequestID string         `json:"requestId,omitempty"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Category  string         `json:"category"`
	Viewport  *ViewportInput `json:"viewport,omitempty"`
	Refresh   bool           `json:"refresh,omitempty"`
}

type ViewportInput struct {
	Low  places.Coordinates `json:"low"`
	High places.Coordinates `json:"high"`
}

type Output struct {
	RequestID string        `json:"requestId"`
	Category  string        `json:"category"`
	FromCache bool          `json:"fromCache"`
	CacheKey  string        `json:"cacheKey"`
	Count     int           `json:"count"`
	Places    []PlaceOutput `json:"places"`
}

type PlaceOutput struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Address      string                 `json:"address,omitempty"`
	Location     places.Coordinates     `json:"location"`
	Rating       *float64               `json:"rating,omitempty"`
	ReviewCount  *int                   `json:"reviewCount,omitempty"`
	PriceLevel   string                 `json:"priceLevel,omitempty"`
	PriceLabel   string                 `json:"priceLabel,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Types        []string               `json:"types,omitempty"`
	Photos       []string               `json:"photos,omitempty"`
	TotalScore   float64                `json:"totalScore"`
	DisplayScore float64                `json:"displayScore"`
	Badge        places.Badge           `json:"badge"`
	Breakdown    places.ScoreBreakdown  `json:"breakdown"`
	Highlights   []places.LabeledFactor `json:"highlights"`
}
