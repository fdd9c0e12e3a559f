// Package esindex searches a self-hosted Elasticsearch place index.
package esindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"place-discovery/internal/common/logger"
	"place-discovery/internal/places"
	"place-discovery/internal/transport"
)

const (
	Name         = "elasticsearch"
	DefaultIndex = "places"

	defaultRadiusMeters = 5000
	defaultSize         = 20
)

// Document is one indexed place. location is a geo_point; category is a keyword.
type Document struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Category    places.Category   `json:"category"`
	Location    GeoPoint          `json:"location"`
	Address     string            `json:"address,omitempty"`
	Rating      *float64          `json:"rating,omitempty"`
	ReviewCount *int              `json:"reviewCount,omitempty"`
	PriceLevel  places.PriceLevel `json:"priceLevel,omitempty"`
	Description string            `json:"description,omitempty"`
	Types       []string          `json:"types,omitempty"`
	Language    string            `json:"language,omitempty"`
	Photos      []string          `json:"photos,omitempty"`
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Index struct {
	es     *elasticsearch.Client
	index  string
	radius float64
	size   int
	logger logger.Logger
}

func New(es *elasticsearch.Client, index string, radiusMeters float64, size int, log logger.Logger) *Index {
	if index == "" {
		index = DefaultIndex
	}
	if radiusMeters <= 0 {
		radiusMeters = defaultRadiusMeters
	}
	if size <= 0 {
		size = defaultSize
	}
	return &Index{
		es:     es,
		index:  index,
		radius: radiusMeters,
		size:   size,
		logger: log.WithFields(map[string]interface{}{"transport": Name, "index": index}),
	}
}

func (x *Index) Name() string { return Name }

func (x *Index) Search(ctx context.Context, q transport.Query) ([]places.Candidate, error) {
	body, err := json.Marshal(x.buildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("%s: encode query: %w", Name, err)
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", Name, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%s: search failed: %s: %s", Name, res.Status(), bytes.TrimSpace(snippet))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string   `json:"_id"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", Name, err)
	}

	candidates := make([]places.Candidate, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		candidates = append(candidates, doc.Candidate())
	}

	x.logger.Debug("search completed", map[string]interface{}{
		"category": q.Category,
		"results":  len(candidates),
	})
	return candidates, nil
}

// buildQuery filters by category and by either the viewport box or a radius around the
// center, nearest first.
func (x *Index) buildQuery(q transport.Query) map[string]interface{} {
	center := map[string]interface{}{"lat": q.Center.Latitude, "lon": q.Center.Longitude}

	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"category": string(q.Category)}},
	}
	if vp := q.Viewport; vp != nil {
		filters = append(filters, map[string]interface{}{
			"geo_bounding_box": map[string]interface{}{
				"location": map[string]interface{}{
					"top_left":     map[string]interface{}{"lat": vp.High.Latitude, "lon": vp.Low.Longitude},
					"bottom_right": map[string]interface{}{"lat": vp.Low.Latitude, "lon": vp.High.Longitude},
				},
			},
		})
	} else {
		radius := q.RadiusMeters
		if radius <= 0 {
			radius = x.radius
		}
		filters = append(filters, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%gm", radius),
				"location": center,
			},
		})
	}

	size := x.size
	if q.MaxResults > 0 && q.MaxResults < size {
		size = q.MaxResults
	}

	return map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"bool": map[string]interface{}{"filter": filters}},
		"sort": []interface{}{
			map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					"location": center,
					"order":    "asc",
					"unit":     "m",
				},
			},
		},
	}
}

// Candidate converts the document to the ranking input.
func (d Document) Candidate() places.Candidate {
	return places.Candidate{
		ID:           d.ID,
		Name:         d.Name,
		Location:     places.Coordinates{Latitude: d.Location.Lat, Longitude: d.Location.Lon},
		Address:      d.Address,
		Rating:       d.Rating,
		ReviewCount:  d.ReviewCount,
		PriceLevel:   d.PriceLevel,
		Description:  d.Description,
		Types:        d.Types,
		LanguageCode: d.Language,
		Photos:       d.Photos,
	}
}
