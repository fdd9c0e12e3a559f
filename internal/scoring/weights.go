// Package scoring computes the six-factor desirability breakdown for a place.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"place-discovery/internal/places"
)

// TermWeight is one entry of an ordered term dictionary. Order matters: earlier
// terms win when a match limit or first-match rule applies.
type TermWeight struct {
	Term  string  `json:"term"`
	Delta float64 `json:"delta"`
}

// WeightsConfig is the versionable record for one category's weights, as stored in
// configs/weights.json or the scoring_weights table.
type WeightsConfig struct {
	Version           string             `json:"version,omitempty"`
	Category          places.Category    `json:"category"`
	BrandBonus        float64            `json:"brandBonus"`
	Brands            []string           `json:"brands"`
	PriceCurve        map[string]float64 `json:"priceCurve"`
	Keywords          []TermWeight       `json:"keywords"`
	MaxKeywordMatches int                `json:"maxKeywordMatches"`
	ViewportBonus     float64            `json:"viewportBonus"`
	LocationHints     []TermWeight       `json:"locationHints"`
	CategoryWeights   map[string]float64 `json:"categoryWeights"`
	MinRating         float64            `json:"minRating"`
	ReviewScale       float64            `json:"reviewScale"`
	LowRatingPenalty  float64            `json:"lowRatingPenalty"`
}

type term struct {
	match   string // lowercased
	display string
	delta   float64
}

// Weights is a compiled, read-only weight set. Build it with Compile.
type Weights struct {
	version           string
	category          places.Category
	brandBonus        float64
	brands            []term
	priceCurve        map[places.PriceLevel]float64
	keywords          []term
	maxKeywordMatches int
	viewportBonus     float64
	locationHints     []term
	categoryWeights   map[string]float64
	minRating         float64
	reviewScale       float64
	lowRatingPenalty  float64
}

// Compile validates cfg and builds the immutable weight set scoring reads from.
func Compile(cfg WeightsConfig) (*Weights, error) {
	if !cfg.Category.Valid() {
		return nil, fmt.Errorf("unknown category %q", cfg.Category)
	}
	if cfg.MinRating < 0 || cfg.MinRating >= 5 {
		return nil, fmt.Errorf("minRating must be in [0, 5), got %v", cfg.MinRating)
	}
	if cfg.ReviewScale < 0 {
		return nil, fmt.Errorf("reviewScale must not be negative")
	}
	if cfg.LowRatingPenalty < 0 {
		return nil, fmt.Errorf("lowRatingPenalty is a magnitude and must not be negative")
	}
	if cfg.MaxKeywordMatches < 0 {
		return nil, fmt.Errorf("maxKeywordMatches must not be negative")
	}
	for name, v := range map[string]float64{
		"brandBonus":       cfg.BrandBonus,
		"viewportBonus":    cfg.ViewportBonus,
		"reviewScale":      cfg.ReviewScale,
		"lowRatingPenalty": cfg.LowRatingPenalty,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s must be finite", name)
		}
	}

	w := &Weights{
		version:           cfg.Version,
		category:          cfg.Category,
		brandBonus:        cfg.BrandBonus,
		priceCurve:        make(map[places.PriceLevel]float64, len(cfg.PriceCurve)),
		maxKeywordMatches: cfg.MaxKeywordMatches,
		viewportBonus:     cfg.ViewportBonus,
		categoryWeights:   make(map[string]float64, len(cfg.CategoryWeights)),
		minRating:         cfg.MinRating,
		reviewScale:       cfg.ReviewScale,
		lowRatingPenalty:  cfg.LowRatingPenalty,
	}

	var err error
	brands := make([]TermWeight, len(cfg.Brands))
	for i, b := range cfg.Brands {
		brands[i] = TermWeight{Term: b}
	}
	if w.brands, err = compileTerms("brands", brands); err != nil {
		return nil, err
	}
	if w.keywords, err = compileTerms("keywords", cfg.Keywords); err != nil {
		return nil, err
	}
	if w.locationHints, err = compileTerms("locationHints", cfg.LocationHints); err != nil {
		return nil, err
	}

	for name, delta := range cfg.PriceCurve {
		level, err := places.ParsePriceLevel(name)
		if err != nil || !level.Known() {
			return nil, fmt.Errorf("priceCurve: unknown price level %q", name)
		}
		if _, dup := w.priceCurve[level]; dup {
			return nil, fmt.Errorf("priceCurve: level %q given twice", name)
		}
		w.priceCurve[level] = delta
	}

	for tag, weight := range cfg.CategoryWeights {
		key := strings.ToLower(strings.TrimSpace(tag))
		if key == "" {
			return nil, fmt.Errorf("categoryWeights: empty tag")
		}
		w.categoryWeights[key] = weight
	}

	return w, nil
}

func compileTerms(field string, in []TermWeight) ([]term, error) {
	out := make([]term, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tw := range in {
		display := strings.TrimSpace(tw.Term)
		match := strings.ToLower(display)
		if match == "" {
			return nil, fmt.Errorf("%s: empty term", field)
		}
		if _, dup := seen[match]; dup {
			return nil, fmt.Errorf("%s: duplicate term %q", field, display)
		}
		seen[match] = struct{}{}
		out = append(out, term{match: match, display: display, delta: tw.Delta})
	}
	return out, nil
}

func (w *Weights) Version() string { return w.version }

func (w *Weights) Category() places.Category { return w.category }

// WeightSet holds the compiled weights for every category.
type WeightSet struct {
	Hotel      *Weights
	Restaurant *Weights
}

// For returns the weights for category, or nil for an unknown category.
func (s WeightSet) For(category places.Category) *Weights {
	switch category {
	case places.CategoryHotel:
		return s.Hotel
	case places.CategoryRestaurant:
		return s.Restaurant
	}
	return nil
}

// CompileSet compiles both category configs.
func CompileSet(hotel, restaurant WeightsConfig) (WeightSet, error) {
	h, err := Compile(hotel)
	if err != nil {
		return WeightSet{}, fmt.Errorf("hotel weights: %w", err)
	}
	r, err := Compile(restaurant)
	if err != nil {
		return WeightSet{}, fmt.Errorf("restaurant weights: %w", err)
	}
	if h.category != places.CategoryHotel || r.category != places.CategoryRestaurant {
		return WeightSet{}, fmt.Errorf("weight set categories mismatched: %s/%s", h.category, r.category)
	}
	return WeightSet{Hotel: h, Restaurant: r}, nil
}

// DefaultSet compiles the built-in weights.
func DefaultSet() WeightSet {
	set, err := CompileSet(DefaultHotelConfig(), DefaultRestaurantConfig())
	if err != nil {
		panic(fmt.Sprintf("built-in weights invalid: %v", err))
	}
	return set
}
