package places

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{in: "hotel", want: CategoryHotel},
		{in: " Lodging ", want: CategoryHotel},
		{in: "RESTAURANTS", want: CategoryRestaurant},
		{in: "bar", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "lodging", CategoryHotel.IncludedType())
	assert.Equal(t, "restaurant", CategoryRestaurant.IncludedType())
}

func TestViewport_ContainsIsStrict(t *testing.T) {
	vp := Viewport{
		Low:  Coordinates{Latitude: 10, Longitude: 20},
		High: Coordinates{Latitude: 11, Longitude: 21},
	}

	assert.True(t, vp.Contains(Coordinates{Latitude: 10.5, Longitude: 20.5}))
	assert.False(t, vp.Contains(Coordinates{Latitude: 10, Longitude: 20.5}), "south edge")
	assert.False(t, vp.Contains(Coordinates{Latitude: 10.5, Longitude: 21}), "east edge")
	assert.False(t, vp.Contains(Coordinates{Latitude: 12, Longitude: 20.5}))
	assert.True(t, vp.Valid())
	assert.False(t, Viewport{Low: vp.High, High: vp.Low}.Valid())
}

func TestCandidate_Valid(t *testing.T) {
	assert.True(t, Candidate{ID: "abc"}.Valid())
	assert.False(t, Candidate{ID: "  ", Name: "No id"}.Valid())
}

func TestParsePriceLevel(t *testing.T) {
	tests := map[string]PriceLevel{
		"PRICE_LEVEL_FREE":           PriceFree,
		"PRICE_LEVEL_INEXPENSIVE":    PriceInexpensive,
		"moderate":                   PriceModerate,
		"3":                          PriceExpensive,
		"very-expensive":             PriceVeryExpensive,
		"PRICE_LEVEL_VERY_EXPENSIVE": PriceVeryExpensive,
		"PRICE_LEVEL_UNSPECIFIED":    PriceUnspecified,
		"":                           PriceUnspecified,
	}
	for in, want := range tests {
		got, err := ParsePriceLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePriceLevel("cheap-ish")
	assert.Error(t, err)
}

func TestPriceLevel_Display(t *testing.T) {
	assert.Equal(t, "$$$$", PriceVeryExpensive.Symbol())
	assert.Equal(t, "Free", PriceFree.Symbol())
	assert.Equal(t, "Moderate", PriceModerate.Label())
	assert.Empty(t, PriceUnspecified.Symbol())
	assert.False(t, PriceUnspecified.Known())
	assert.True(t, PriceFree.Known())
}

func TestPriceLevel_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		P PriceLevel `json:"p"`
	}{P: PriceExpensive})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"expensive"}`, string(data))

	var decoded struct {
		P PriceLevel `json:"p"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"p":"PRICE_LEVEL_MODERATE"}`), &decoded))
	assert.Equal(t, PriceModerate, decoded.P)

	require.NoError(t, json.Unmarshal([]byte(`{"p":4}`), &decoded))
	assert.Equal(t, PriceVeryExpensive, decoded.P)

	assert.Error(t, json.Unmarshal([]byte(`{"p":"lavish"}`), &decoded))
}

func TestScoreBreakdown_TotalAndSignificant(t *testing.T) {
	b := ScoreBreakdown{
		Brand:    Applied(2, "Recognized brand: hilton"),
		Price:    Applied(-0.5, "Inexpensive"),
		Keywords: NotApplicable("no notable keywords"),
		Location: Applied(0, "neutral"),
		Category: Applied(1, "best tag"),
		Reviews:  NotApplicable("no review data"),
	}

	assert.InDelta(t, 2.5, b.Total(), 1e-9)

	sig := b.Significant()
	require.Len(t, sig, 3)
	assert.Equal(t, "brand", sig[0].Name)
	assert.Equal(t, "price", sig[1].Name)
	assert.Equal(t, "category", sig[2].Name)

	assert.True(t, b.Location.Applicable)
	assert.False(t, b.Keywords.Applicable)
}

func TestScoredPlace_DisplayAndBadge(t *testing.T) {
	p := ScoredPlace{TotalScore: -1.25}
	assert.Equal(t, 0.0, p.DisplayScore(0))
	assert.Equal(t, -1.25, p.TotalScore)
	assert.Equal(t, BadgeNegative, p.Badge())

	assert.Equal(t, BadgeStrong, BadgeFor(1.0))
	assert.Equal(t, BadgeMild, BadgeFor(0.4))
}
