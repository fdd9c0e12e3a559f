package googleplaces

// Wire types for the Places API (New). Only the fields in fieldMask are populated.

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type rectangle struct {
	Low  latLng `json:"low"`
	High latLng `json:"high"`
}

type locationRestriction struct {
	Circle    *circle    `json:"circle,omitempty"`
	Rectangle *rectangle `json:"rectangle,omitempty"`
}

type nearbyRequest struct {
	IncludedTypes       []string            `json:"includedTypes"`
	MaxResultCount      int                 `json:"maxResultCount,omitempty"`
	LanguageCode        string              `json:"languageCode,omitempty"`
	RankPreference      string              `json:"rankPreference,omitempty"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
}

type textRequest struct {
	TextQuery           string              `json:"textQuery"`
	IncludedType        string              `json:"includedType,omitempty"`
	StrictTypeFiltering bool                `json:"strictTypeFiltering,omitempty"`
	PageSize            int                 `json:"pageSize,omitempty"`
	LanguageCode        string              `json:"languageCode,omitempty"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
}

type localizedText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type photo struct {
	Name string `json:"name"`
}

type place struct {
	ID               string         `json:"id"`
	DisplayName      *localizedText `json:"displayName"`
	FormattedAddress string         `json:"formattedAddress"`
	Location         *latLng        `json:"location"`
	Rating           *float64       `json:"rating"`
	UserRatingCount  *int           `json:"userRatingCount"`
	PriceLevel       string         `json:"priceLevel"`
	Types            []string       `json:"types"`
	EditorialSummary *localizedText `json:"editorialSummary"`
	Photos           []photo        `json:"photos"`
}

type searchResponse struct {
	Places []place `json:"places"`
}
