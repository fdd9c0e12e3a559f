package cache

import (
	"fmt"
	"math"
	"strings"

	"place-discovery/internal/places"
)

// DefaultPrecision rounds coordinates to four decimal places (about 11 m).
const DefaultPrecision = 4

// QuantizedViewport is a viewport with corners in the same scaled units as Key.
type QuantizedViewport struct {
	LowLat, LowLng, HighLat, HighLng int64
}

// Key identifies a cached result list. Two requests whose coordinates round to the
// same grid cell, with the same category and viewport, share a key.
type Key struct {
	Category  places.Category
	Precision int
	Lat, Lng  int64
	Viewport  *QuantizedViewport
}

// String renders the stable storage key, e.g. places:hotel:p4:488566:23522.
func (k Key) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "places:%s:p%d:%d:%d", k.Category, k.Precision, k.Lat, k.Lng)
	if k.Viewport != nil {
		fmt.Fprintf(&b, ":vp:%d:%d:%d:%d",
			k.Viewport.LowLat, k.Viewport.LowLng, k.Viewport.HighLat, k.Viewport.HighLng)
	}
	return b.String()
}

// Quantizer builds keys at a fixed coordinate precision.
type Quantizer struct {
	Precision int
}

func (q Quantizer) precision() int {
	if q.Precision <= 0 {
		return DefaultPrecision
	}
	return q.Precision
}

func (q Quantizer) scale(v float64) int64 {
	return int64(math.Round(v * math.Pow10(q.precision())))
}

// Key quantizes coordinates and the optional viewport.
func (q Quantizer) Key(coords places.Coordinates, category places.Category, viewport *places.Viewport) Key {
	k := Key{
		Category:  category,
		Precision: q.precision(),
		Lat:       q.scale(coords.Latitude),
		Lng:       q.scale(coords.Longitude),
	}
	if viewport != nil {
		k.Viewport = &QuantizedViewport{
			LowLat:  q.scale(viewport.Low.Latitude),
			LowLng:  q.scale(viewport.Low.Longitude),
			HighLat: q.scale(viewport.High.Latitude),
			HighLng: q.scale(viewport.High.Longitude),
		}
	}
	return k
}
