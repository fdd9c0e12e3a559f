// Package transport defines the search backend contract used by discovery.
package transport

import (
	"context"
	"errors"

	"place-discovery/internal/places"
)

// ErrMissingCredential is returned when the backend cannot be called because no
// credential is configured. Discovery reports it as a configuration error, not an outage.
var ErrMissingCredential = errors.New("transport credential not configured")

// ErrRejectedCredential is returned when the backend refuses the configured credential.
// Like ErrMissingCredential it is a configuration error and retrying will not help.
var ErrRejectedCredential = errors.New("transport credential rejected")

// Query is one nearby search.
type Query struct {
	Center       places.Coordinates
	Category     places.Category
	Viewport     *places.Viewport
	RadiusMeters float64
	MaxResults   int
}

// Transport returns raw candidates near a point. Implementations honour ctx and do
// not retry; candidates are normalized at this boundary.
type Transport interface {
	Search(ctx context.Context, q Query) ([]places.Candidate, error)
	Name() string
}

// CredentialChecker is implemented by transports that can tell, without a network
// call, that they are not configured.
type CredentialChecker interface {
	CheckCredentials() error
}

// Func adapts a function to Transport, mainly for tests.
type Func func(ctx context.Context, q Query) ([]places.Candidate, error)

func (f Func) Search(ctx context.Context, q Query) ([]places.Candidate, error) {
	return f(ctx, q)
}

func (f Func) Name() string { return "func" }
