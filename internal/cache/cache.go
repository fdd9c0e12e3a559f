// Package cache holds recently discovered place lists keyed by quantized location.
package cache

import (
	"context"
	"time"

	"place-discovery/internal/places"
)

// DefaultTTL is how long a result list stays fresh.
const DefaultTTL = 10 * time.Minute

// Entry is one cached result list. Entries are never mutated after insertion.
type Entry struct {
	Key        Key                  `json:"-"`
	Places     []places.ScoredPlace `json:"places"`
	InsertedAt time.Time            `json:"insertedAt"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.InsertedAt) < ttl
}

// Store is a result cache. Implementations never surface errors: a failing backend
// logs and behaves as a miss.
type Store interface {
	// Get returns a fresh entry. An entry whose age is at least the TTL is never returned.
	Get(ctx context.Context, key Key) (*Entry, bool)
	// Put creates or replaces the entry for key, stamped with the current time.
	Put(ctx context.Context, key Key, ranked []places.ScoredPlace)
	Invalidate(ctx context.Context, key Key)
}

// copyPlaces deep-copies in so no slice or pointer is shared with the caller.
func copyPlaces(in []places.ScoredPlace) []places.ScoredPlace {
	out := make([]places.ScoredPlace, len(in))
	for i, p := range in {
		p.Candidate = p.Candidate.Clone()
		out[i] = p
	}
	return out
}
