// Package googleplaces searches the Google Places API (New).
package googleplaces

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"place-discovery/internal/common/config"
	apphttp "place-discovery/internal/common/http"
	"place-discovery/internal/common/logger"
	"place-discovery/internal/places"
	"place-discovery/internal/transport"
)

const (
	Name           = "googleplaces"
	DefaultBaseURL = "https://places.googleapis.com/v1"

	// maxResultCount is the most the API returns for one request.
	maxResultCount = 20
)

var fieldMask = strings.Join([]string{
	"places.id",
	"places.displayName",
	"places.formattedAddress",
	"places.location",
	"places.rating",
	"places.userRatingCount",
	"places.priceLevel",
	"places.types",
	"places.editorialSummary",
	"places.photos",
}, ",")

type Config struct {
	BaseURL      string
	APIKey       string
	LanguageCode string
	RadiusMeters float64
	MaxResults   int
	Timeout      time.Duration
}

// ConfigFrom maps the provider section of the service configuration.
func ConfigFrom(p config.ProviderConfig) Config {
	return Config{
		BaseURL:      p.BaseURL,
		APIKey:       p.APIKey,
		LanguageCode: p.LanguageCode,
		RadiusMeters: p.RadiusMeters,
		MaxResults:   p.MaxResults,
		Timeout:      time.Duration(p.Timeout) * time.Millisecond,
	}
}

type Client struct {
	config Config
	http   *apphttp.Client
	logger logger.Logger
}

// New builds a client. rt may be nil; tests point BaseURL at an httptest server instead.
func New(cfg Config, log logger.Logger, rt http.RoundTripper) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = 5000
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > maxResultCount {
		cfg.MaxResults = maxResultCount
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		config: cfg,
		http:   apphttp.NewClient(cfg.Timeout, rt),
		logger: log.WithFields(map[string]interface{}{"transport": Name}),
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) CheckCredentials() error {
	if strings.TrimSpace(c.config.APIKey) == "" {
		return transport.ErrMissingCredential
	}
	return nil
}

// Search runs searchNearby around the center, or searchText restricted to the viewport
// when one is given.
func (c *Client) Search(ctx context.Context, q transport.Query) ([]places.Candidate, error) {
	if err := c.CheckCredentials(); err != nil {
		return nil, err
	}

	headers := map[string]string{
		"X-Goog-Api-Key":   c.config.APIKey,
		"X-Goog-FieldMask": fieldMask,
	}

	var (
		endpoint string
		body     interface{}
	)
	if q.Viewport != nil {
		endpoint = c.config.BaseURL + "/places:searchText"
		body = c.textRequest(q)
	} else {
		endpoint = c.config.BaseURL + "/places:searchNearby"
		body = c.nearbyRequest(q)
	}

	var resp searchResponse
	if err := c.http.PostJSON(ctx, endpoint, headers, body, &resp); err != nil {
		if credentialRejected(err) {
			return nil, fmt.Errorf("%s: %w: %w", Name, transport.ErrRejectedCredential, err)
		}
		return nil, fmt.Errorf("%s: %w", Name, err)
	}

	candidates := make([]places.Candidate, 0, len(resp.Places))
	for _, p := range resp.Places {
		candidates = append(candidates, c.normalize(p))
	}

	c.logger.Debug("search completed", map[string]interface{}{
		"category": q.Category,
		"viewport": q.Viewport != nil,
		"results":  len(candidates),
	})
	return candidates, nil
}

// credentialRejected reports whether the API refused the key itself. An invalid key
// comes back as 400 with reason API_KEY_INVALID; a revoked or restricted one as 401 or 403.
func credentialRejected(err error) bool {
	var statusErr *apphttp.StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	case http.StatusBadRequest:
		return strings.Contains(statusErr.Body, "API_KEY_INVALID")
	}
	return false
}

func (c *Client) limit(q transport.Query) int {
	if q.MaxResults > 0 && q.MaxResults < c.config.MaxResults {
		return q.MaxResults
	}
	return c.config.MaxResults
}

func (c *Client) nearbyRequest(q transport.Query) nearbyRequest {
	radius := q.RadiusMeters
	if radius <= 0 {
		radius = c.config.RadiusMeters
	}
	return nearbyRequest{
		IncludedTypes:  []string{q.Category.IncludedType()},
		MaxResultCount: c.limit(q),
		LanguageCode:   c.config.LanguageCode,
		RankPreference: "POPULARITY",
		LocationRestriction: locationRestriction{
			Circle: &circle{
				Center: latLng{Latitude: q.Center.Latitude, Longitude: q.Center.Longitude},
				Radius: radius,
			},
		},
	}
}

func (c *Client) textRequest(q transport.Query) textRequest {
	vp := q.Viewport
	return textRequest{
		TextQuery:           string(q.Category) + "s",
		IncludedType:        q.Category.IncludedType(),
		StrictTypeFiltering: true,
		PageSize:            c.limit(q),
		LanguageCode:        c.config.LanguageCode,
		LocationRestriction: locationRestriction{
			Rectangle: &rectangle{
				Low:  latLng{Latitude: vp.Low.Latitude, Longitude: vp.Low.Longitude},
				High: latLng{Latitude: vp.High.Latitude, Longitude: vp.High.Longitude},
			},
		},
	}
}

// normalize maps the API payload onto a Candidate. Absent optional fields stay absent.
func (c *Client) normalize(p place) places.Candidate {
	cand := places.Candidate{
		ID:          strings.TrimSpace(p.ID),
		Address:     p.FormattedAddress,
		Rating:      p.Rating,
		ReviewCount: p.UserRatingCount,
		Types:       p.Types,
	}
	if p.DisplayName != nil {
		cand.Name = p.DisplayName.Text
		cand.LanguageCode = p.DisplayName.LanguageCode
	}
	if p.Location != nil {
		cand.Location = places.Coordinates{Latitude: p.Location.Latitude, Longitude: p.Location.Longitude}
	}
	if p.EditorialSummary != nil {
		cand.Description = p.EditorialSummary.Text
	}
	for _, ph := range p.Photos {
		if ph.Name != "" {
			cand.Photos = append(cand.Photos, ph.Name)
		}
	}
	if p.PriceLevel != "" {
		level, err := places.ParsePriceLevel(p.PriceLevel)
		if err != nil {
			c.logger.Debug("ignoring unknown price level", map[string]interface{}{
				"placeId":    cand.ID,
				"priceLevel": p.PriceLevel,
			})
		}
		cand.PriceLevel = level
	}
	return cand
}
