package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "place-discovery/internal/common/errors"
	"place-discovery/internal/places"
)

// ==========================================
// Compile
// ==========================================

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WeightsConfig)
	}{
		{"unknown category", func(c *WeightsConfig) { c.Category = "bar" }},
		{"min rating at five", func(c *WeightsConfig) { c.MinRating = 5 }},
		{"negative penalty", func(c *WeightsConfig) { c.LowRatingPenalty = -1 }},
		{"negative review scale", func(c *WeightsConfig) { c.ReviewScale = -0.1 }},
		{"bad price level", func(c *WeightsConfig) { c.PriceCurve = map[string]float64{"lavish": 2} }},
		{"duplicate keyword", func(c *WeightsConfig) {
			c.Keywords = []TermWeight{{Term: "Spa", Delta: 1}, {Term: "spa", Delta: 2}}
		}},
		{"empty hint", func(c *WeightsConfig) { c.LocationHints = []TermWeight{{Term: " "}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultHotelConfig()
			tt.mutate(&cfg)
			_, err := Compile(cfg)
			assert.Error(t, err)
		})
	}
}

func TestCompile_IsolatedFromConfigMutation(t *testing.T) {
	cfg := DefaultHotelConfig()
	w, err := Compile(cfg)
	require.NoError(t, err)

	before := Score(ritzCarlton(), w, nil)
	cfg.Brands[0] = "Nothing"
	cfg.PriceCurve["very_expensive"] = -9
	cfg.Keywords[0].Delta = -9

	assert.Equal(t, before, Score(ritzCarlton(), w, nil))
}

func TestWeightSet_For(t *testing.T) {
	set := DefaultSet()
	assert.Equal(t, places.CategoryHotel, set.For(places.CategoryHotel).Category())
	assert.Equal(t, places.CategoryRestaurant, set.For(places.CategoryRestaurant).Category())
	assert.Nil(t, set.For("bar"))
	assert.Equal(t, DefaultVersion, set.Hotel.Version())
}

func TestCompileSet_RejectsSwappedCategories(t *testing.T) {
	_, err := CompileSet(DefaultRestaurantConfig(), DefaultHotelConfig())
	assert.Error(t, err)
}

// ==========================================
// File loading
// ==========================================

func TestLoadFile_ShippedWeightsMatchBuiltins(t *testing.T) {
	set, err := LoadFile("../../configs/weights.json")
	require.NoError(t, err)

	assert.Equal(t, DefaultSet(), set)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("does-not-exist.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrWeightsInvalid))
}

func TestParse_SchemaViolations(t *testing.T) {
	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"version":    "v-test",
			"hotel":      DefaultHotelConfig(),
			"restaurant": DefaultRestaurantConfig(),
		}
	}

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing restaurant", func(doc map[string]interface{}) { delete(doc, "restaurant") }},
		{"min rating out of range", func(doc map[string]interface{}) {
			cfg := DefaultHotelConfig()
			cfg.MinRating = 7
			doc["hotel"] = cfg
		}},
		{"unknown field", func(doc map[string]interface{}) {
			doc["hotel"] = map[string]interface{}{
				"category": "hotel", "priceCurve": map[string]float64{},
				"minRating": 3.5, "reviewScale": 0.5, "lowRatingPenalty": 0.5,
				"surprise": true,
			}
		}},
		{"bad price key", func(doc map[string]interface{}) {
			cfg := DefaultRestaurantConfig()
			cfg.PriceCurve = map[string]float64{"PRICE_LEVEL_MODERATE": 1}
			doc["restaurant"] = cfg
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			tt.mutate(doc)
			data, err := json.Marshal(doc)
			require.NoError(t, err)

			_, err = Parse(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrWeightsInvalid))
		})
	}
}

func TestParse_InheritsFileVersion(t *testing.T) {
	hotel := DefaultHotelConfig()
	hotel.Version = ""
	data, err := json.Marshal(map[string]interface{}{
		"version":    "2025-06",
		"hotel":      hotel,
		"restaurant": DefaultRestaurantConfig(),
	})
	require.NoError(t, err)

	set, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "2025-06", set.Hotel.Version())
	assert.Equal(t, DefaultVersion, set.Restaurant.Version())
}

// ==========================================
// Database loading
// ==========================================

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestLoadFromDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hotel := DefaultHotelConfig()
	hotel.BrandBonus = 3.0

	mock.ExpectQuery(regexp.QuoteMeta(selectWeightsSQL)).
		WithArgs("v7").
		WillReturnRows(sqlmock.NewRows([]string{"category", "config"}).
			AddRow("hotel", mustJSON(t, hotel)).
			AddRow("restaurant", mustJSON(t, DefaultRestaurantConfig())))

	set, err := LoadFromDB(context.Background(), db, "v7")
	require.NoError(t, err)

	b := Score(ritzCarlton(), set.Hotel, nil)
	assert.Equal(t, 3.0, b.Brand.Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFromDB_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(sqlmock.Sqlmock)
	}{
		{"query error", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(regexp.QuoteMeta(selectWeightsSQL)).WillReturnError(errors.New("connection refused"))
		}},
		{"no rows", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(regexp.QuoteMeta(selectWeightsSQL)).
				WillReturnRows(sqlmock.NewRows([]string{"category", "config"}))
		}},
		{"missing category", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(regexp.QuoteMeta(selectWeightsSQL)).
				WillReturnRows(sqlmock.NewRows([]string{"category", "config"}).
					AddRow("hotel", []byte(`{"category":"hotel","priceCurve":{},"minRating":3.5,"reviewScale":0.5,"lowRatingPenalty":0.5}`)))
		}},
		{"unknown category", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(regexp.QuoteMeta(selectWeightsSQL)).
				WillReturnRows(sqlmock.NewRows([]string{"category", "config"}).AddRow("bar", []byte(`{}`)))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.setup(mock)
			_, err = LoadFromDB(context.Background(), db, "v1")
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrWeightsInvalid))
		})
	}
}
