package scoring

import "place-discovery/internal/places"

// DefaultVersion tags the built-in weight sets.
const DefaultVersion = "builtin-1"

// DefaultHotelConfig returns the built-in hotel weights. configs/weights.json ships
// the same values.
func DefaultHotelConfig() WeightsConfig {
	return WeightsConfig{
		Version:    DefaultVersion,
		Category:   places.CategoryHotel,
		BrandBonus: 2.0,
		Brands: []string{
			"Ritz-Carlton", "Four Seasons", "St. Regis", "Mandarin Oriental",
			"Waldorf Astoria", "Park Hyatt", "Peninsula", "Rosewood",
			"Conrad", "JW Marriott", "InterContinental", "Fairmont", "Kimpton",
			"Hilton", "Hyatt", "Marriott", "Sheraton", "Westin", "Sofitel",
		},
		PriceCurve: map[string]float64{
			"free":           -1.0,
			"inexpensive":    -0.5,
			"moderate":       0.5,
			"expensive":      1.0,
			"very_expensive": 1.5,
		},
		Keywords: []TermWeight{
			{Term: "luxury", Delta: 1.0},
			{Term: "boutique", Delta: 0.5},
			{Term: "palace", Delta: 0.5},
			{Term: "resort", Delta: 0.5},
			{Term: "spa", Delta: 0.5},
			{Term: "suites", Delta: 0.3},
			{Term: "historic", Delta: 0.3},
			{Term: "grand", Delta: 0.3},
			{Term: "budget", Delta: -0.5},
			{Term: "motel", Delta: -0.5},
			{Term: "hostel", Delta: -0.5},
			{Term: "cheap", Delta: -0.5},
		},
		MaxKeywordMatches: 3,
		ViewportBonus:     0.5,
		LocationHints: []TermWeight{
			{Term: "downtown", Delta: 0.5},
			{Term: "waterfront", Delta: 0.5},
			{Term: "beach", Delta: 0.5},
			{Term: "old town", Delta: 0.3},
			{Term: "airport", Delta: -0.3},
			{Term: "highway", Delta: -0.5},
		},
		CategoryWeights: map[string]float64{
			"lodging":             0.0,
			"hotel":               0.2,
			"resort_hotel":        1.0,
			"spa":                 0.5,
			"bed_and_breakfast":   0.3,
			"extended_stay_hotel": -0.2,
			"motel":               -0.5,
			"hostel":              -1.0,
		},
		MinRating:        3.5,
		ReviewScale:      0.5,
		LowRatingPenalty: 0.5,
	}
}

// DefaultRestaurantConfig returns the built-in restaurant weights. Restaurants carry
// no brand list, so their brand factor never applies.
func DefaultRestaurantConfig() WeightsConfig {
	return WeightsConfig{
		Version:    DefaultVersion,
		Category:   places.CategoryRestaurant,
		BrandBonus: 0,
		Brands:     nil,
		PriceCurve: map[string]float64{
			"free":           -0.5,
			"inexpensive":    0.0,
			"moderate":       0.5,
			"expensive":      0.8,
			"very_expensive": 1.0,
		},
		Keywords: []TermWeight{
			{Term: "michelin", Delta: 1.0},
			{Term: "fine dining", Delta: 0.8},
			{Term: "tasting menu", Delta: 0.5},
			{Term: "chef", Delta: 0.5},
			{Term: "farm-to-table", Delta: 0.5},
			{Term: "wine", Delta: 0.3},
			{Term: "authentic", Delta: 0.3},
			{Term: "organic", Delta: 0.3},
			{Term: "fast food", Delta: -0.8},
			{Term: "drive-thru", Delta: -0.5},
			{Term: "buffet", Delta: -0.3},
		},
		MaxKeywordMatches: 3,
		ViewportBonus:     0.5,
		LocationHints: []TermWeight{
			{Term: "waterfront", Delta: 0.5},
			{Term: "rooftop", Delta: 0.5},
			{Term: "old town", Delta: 0.3},
			{Term: "downtown", Delta: 0.3},
			{Term: "food court", Delta: -0.5},
			{Term: "gas station", Delta: -0.8},
		},
		CategoryWeights: map[string]float64{
			"restaurant":             0.0,
			"fine_dining_restaurant": 1.0,
			"french_restaurant":      0.5,
			"japanese_restaurant":    0.5,
			"sushi_restaurant":       0.5,
			"italian_restaurant":     0.4,
			"steak_house":            0.4,
			"seafood_restaurant":     0.4,
			"wine_bar":               0.3,
			"cafe":                   0.0,
			"meal_takeaway":          -0.5,
			"fast_food_restaurant":   -1.0,
		},
		MinRating:        3.5,
		ReviewScale:      0.5,
		LowRatingPenalty: 0.5,
	}
}
