// Package discovery answers "what's good nearby" requests: cache first, otherwise one
// transport call whose candidates are ranked and cached.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"place-discovery/internal/cache"
	apperrors "place-discovery/internal/common/errors"
	"place-discovery/internal/common/logger"
	"place-discovery/internal/common/metrics"
	"place-discovery/internal/common/observability"
	"place-discovery/internal/places"
	"place-discovery/internal/ranking"
	"place-discovery/internal/scoring"
	"place-discovery/internal/transport"
)

const DefaultMaxResults = 20

const (
	sourceCache    = "cache"
	sourceUpstream = "upstream"
	sourceError    = "error"
)

// Request is one discovery lookup. Viewport is optional.
type Request struct {
	Coordinates places.Coordinates
	Category    places.Category
	Viewport    *places.Viewport
}

// Result is a ranked list plus where it came from.
type Result struct {
	Places    []places.ScoredPlace
	FromCache bool
	CacheKey  string
	Stats     ranking.Stats
}

type Service struct {
	transport    transport.Transport
	cache        cache.Store
	weights      scoring.WeightSet
	quantizer    cache.Quantizer
	maxResults   int
	radiusMeters float64
	coalesce     bool
	group        singleflight.Group
	obs          *observability.Observability
	logger       logger.Logger
}

type Option func(*Service)

func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

func WithPrecision(p int) Option {
	return func(s *Service) { s.quantizer = cache.Quantizer{Precision: p} }
}

func WithRadius(meters float64) Option {
	return func(s *Service) { s.radiusMeters = meters }
}

// WithCoalescing makes concurrent misses on one key share a single transport call.
func WithCoalescing(enabled bool) Option {
	return func(s *Service) { s.coalesce = enabled }
}

func WithObservability(o *observability.Observability) Option {
	return func(s *Service) { s.obs = o }
}

func New(t transport.Transport, store cache.Store, weights scoring.WeightSet, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		transport:  t,
		cache:      store,
		weights:    weights,
		quantizer:  cache.Quantizer{Precision: cache.DefaultPrecision},
		maxResults: DefaultMaxResults,
		logger:     log.WithFields(map[string]interface{}{"component": "discovery", "provider": t.Name()}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover returns the ranked places near coords. Errors are *apperrors.StandardError
// with code INVALID_REQUEST, MISCONFIGURED or UPSTREAM_UNAVAILABLE.
func (s *Service) Discover(ctx context.Context, coords places.Coordinates, category places.Category, viewport *places.Viewport) ([]places.ScoredPlace, error) {
	res, err := s.Execute(ctx, Request{Coordinates: coords, Category: category, Viewport: viewport})
	if err != nil {
		return nil, err
	}
	return res.Places, nil
}

// Refresh drops the cached list for the request and discovers again.
func (s *Service) Refresh(ctx context.Context, coords places.Coordinates, category places.Category, viewport *places.Viewport) ([]places.ScoredPlace, error) {
	req := Request{Coordinates: coords, Category: category, Viewport: viewport}
	if err := validate(req); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, s.key(req))
	return s.Discover(ctx, coords, category, viewport)
}

// Invalidate drops the cached list for the request, if any.
func (s *Service) Invalidate(ctx context.Context, coords places.Coordinates, category places.Category, viewport *places.Viewport) error {
	req := Request{Coordinates: coords, Category: category, Viewport: viewport}
	if err := validate(req); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, s.key(req))
	return nil
}

// Execute is Discover with provenance, for callers that report cache hits and drops.
func (s *Service) Execute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.execute(ctx, req)

	source, outcome := sourceError, "ok"
	switch {
	case err != nil:
		outcome = string(apperrors.CodeOf(err))
	case res.FromCache:
		source = sourceCache
	default:
		source = sourceUpstream
	}
	elapsed := time.Since(start)
	metrics.DiscoverDuration.WithLabelValues(string(req.Category), source).Observe(elapsed.Seconds())
	s.obs.RecordDiscover(ctx, string(req.Category), source, outcome, elapsed)

	return res, err
}

func (s *Service) execute(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if checker, ok := s.transport.(transport.CredentialChecker); ok {
		if err := checker.CheckCredentials(); err != nil {
			return nil, apperrors.NewMisconfiguredError(err.Error())
		}
	}
	weights := s.weights.For(req.Category)
	if weights == nil {
		return nil, apperrors.NewMisconfiguredError(fmt.Sprintf("no scoring weights for category %s", req.Category))
	}

	key := s.key(req)
	if entry, ok := s.cache.Get(ctx, key); ok {
		metrics.CacheLookups.WithLabelValues(string(req.Category), "hit").Inc()
		return &Result{Places: entry.Places, FromCache: true, CacheKey: key.String()}, nil
	}
	metrics.CacheLookups.WithLabelValues(string(req.Category), "miss").Inc()

	var (
		f   *fetched
		err error
	)
	if s.coalesce {
		f, err = s.fetchShared(ctx, key, req, weights)
	} else {
		f, err = s.fetch(ctx, key, req, weights)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Places: f.places, CacheKey: key.String(), Stats: f.stats}, nil
}

func validate(req Request) error {
	if !req.Category.Valid() {
		return apperrors.NewInvalidRequestError(fmt.Sprintf("unknown category %q", req.Category))
	}
	if !req.Coordinates.Valid() {
		return apperrors.NewInvalidRequestError(fmt.Sprintf("coordinates out of range: %v,%v",
			req.Coordinates.Latitude, req.Coordinates.Longitude))
	}
	if req.Viewport != nil && !req.Viewport.Valid() {
		return apperrors.NewInvalidRequestError("viewport corners are out of range or inverted")
	}
	return nil
}

func (s *Service) key(req Request) cache.Key {
	return s.quantizer.Key(req.Coordinates, req.Category, req.Viewport)
}

type fetched struct {
	places []places.ScoredPlace
	stats  ranking.Stats
}

// fetch calls the transport under ctx, ranks and caches. Nothing is cached when the
// call fails or ctx ends first.
func (s *Service) fetch(ctx context.Context, key cache.Key, req Request, w *scoring.Weights) (*fetched, error) {
	candidates, err := s.search(ctx, req)
	if err != nil {
		return nil, err
	}

	ranked, stats := ranking.Rank(candidates, w, req.Viewport)
	s.recordDropped(stats)
	ranked = ranking.Limit(ranked, s.maxResults)

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewUpstreamUnavailableError(s.transport.Name(), err)
	}
	s.cache.Put(ctx, key, ranked)

	s.logger.Debug("discovered places", map[string]interface{}{
		"key":        key.String(),
		"candidates": stats.Input,
		"returned":   len(ranked),
	})
	return &fetched{places: ranked, stats: stats}, nil
}

// fetchShared runs one fetch per key for all concurrent callers. The shared call is
// detached from any single caller's cancellation; each caller still stops waiting when
// its own ctx ends.
func (s *Service) fetchShared(ctx context.Context, key cache.Key, req Request, w *scoring.Weights) (*fetched, error) {
	ch := s.group.DoChan(key.String(), func() (interface{}, error) {
		return s.fetch(context.WithoutCancel(ctx), key, req, w)
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.NewUpstreamUnavailableError(s.transport.Name(), ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		f := r.Val.(*fetched)
		if !r.Shared {
			return f, nil
		}
		out := make([]places.ScoredPlace, len(f.places))
		copy(out, f.places)
		return &fetched{places: out, stats: f.stats}, nil
	}
}

func (s *Service) search(ctx context.Context, req Request) ([]places.Candidate, error) {
	name := s.transport.Name()
	ctx, span := s.obs.StartSpan(ctx, "transport.search",
		attribute.String("provider", name),
		attribute.String("category", string(req.Category)),
		attribute.Bool("viewport", req.Viewport != nil),
	)
	defer span.End()

	start := time.Now()
	candidates, err := s.transport.Search(ctx, transport.Query{
		Center:       req.Coordinates,
		Category:     req.Category,
		Viewport:     req.Viewport,
		RadiusMeters: s.radiusMeters,
		MaxResults:   s.maxResults,
	})
	metrics.TransportDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, transport.ErrMissingCredential) || errors.Is(err, transport.ErrRejectedCredential) {
			metrics.TransportCalls.WithLabelValues(name, "misconfigured").Inc()
			return nil, apperrors.NewMisconfiguredError(err.Error())
		}

		outcome := "error"
		if ctx.Err() != nil {
			outcome = "cancelled"
		}
		metrics.TransportCalls.WithLabelValues(name, outcome).Inc()
		s.logger.WithError(err).Warn("transport search failed", map[string]interface{}{
			"category": req.Category,
			"outcome":  outcome,
		})
		return nil, apperrors.NewUpstreamUnavailableError(name, err)
	}

	metrics.TransportCalls.WithLabelValues(name, "ok").Inc()
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	return candidates, nil
}

func (s *Service) recordDropped(stats ranking.Stats) {
	if stats.Duplicates > 0 {
		metrics.CandidatesDropped.WithLabelValues("duplicate").Add(float64(stats.Duplicates))
	}
	if stats.Invalid > 0 {
		metrics.CandidatesDropped.WithLabelValues("invalid").Add(float64(stats.Invalid))
		err := apperrors.NewInvalidCandidateError(fmt.Sprintf("%d candidates without an identifier", stats.Invalid))
		s.logger.WithError(err).Warn("dropped invalid candidates", map[string]interface{}{
			"code":  err.Code,
			"count": stats.Invalid,
		})
	}
}
