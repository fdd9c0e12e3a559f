package cache

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"place-discovery/internal/common/logger"
	"place-discovery/internal/common/metrics"
	"place-discovery/internal/places"
)

// MemoryStore is the default in-process cache. Each key maps to an immutable *Entry,
// so a reader sees either the previous or the new complete list, and operations on
// different keys never block each other.
type MemoryStore struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     logger.Logger

	entries sync.Map // string -> *Entry
	size    atomic.Int64
	evictMu sync.Mutex // one capacity pass at a time; readers never take it
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// WithMaxEntries bounds the store; zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(m *MemoryStore) { m.maxEntries = n }
}

func NewMemoryStore(ttl time.Duration, log logger.Logger, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &MemoryStore{
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "cache", "backend": "memory"}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, key Key) (*Entry, bool) {
	k := key.String()
	v, ok := m.entries.Load(k)
	if !ok {
		return nil, false
	}
	e := v.(*Entry)
	if !e.Fresh(m.now(), m.ttl) {
		if m.remove(k, e) {
			metrics.CacheEvictions.WithLabelValues("expired").Inc()
		}
		return nil, false
	}
	return &Entry{Key: e.Key, Places: copyPlaces(e.Places), InsertedAt: e.InsertedAt}, true
}

func (m *MemoryStore) Put(_ context.Context, key Key, ranked []places.ScoredPlace) {
	k := key.String()
	e := &Entry{Key: key, Places: copyPlaces(ranked), InsertedAt: m.now()}
	if _, loaded := m.entries.Swap(k, e); !loaded {
		m.size.Add(1)
		metrics.CacheEntries.Inc()
	}

	if m.maxEntries > 0 && m.size.Load() > int64(m.maxEntries) {
		m.enforceCapacity(k, key.Category)
	}
}

func (m *MemoryStore) Invalidate(_ context.Context, key Key) {
	if _, loaded := m.entries.LoadAndDelete(key.String()); loaded {
		m.size.Add(-1)
		metrics.CacheEntries.Dec()
	}
}

// Len returns the number of stored entries, fresh or not yet swept.
func (m *MemoryStore) Len() int {
	return int(m.size.Load())
}

// Sweep removes every expired entry and returns how many it removed.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	removed := 0
	m.entries.Range(func(k, v any) bool {
		if e := v.(*Entry); !e.Fresh(now, m.ttl) && m.remove(k.(string), e) {
			removed++
		}
		return true
	})
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues("expired").Add(float64(removed))
	}
	return removed
}

// DefaultSweepInterval replaces a non-positive Run interval.
const DefaultSweepInterval = time.Minute

// Run sweeps expired entries every interval until ctx is done.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		m.logger.Warn("non-positive sweep interval, using default", map[string]interface{}{
			"interval": interval.String(),
			"default":  DefaultSweepInterval.String(),
		})
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("swept expired entries", map[string]interface{}{
					"removed": n,
					"entries": m.Len(),
				})
			}
		}
	}
}

// remove deletes k only if it still holds e, so a concurrent Put is never lost.
func (m *MemoryStore) remove(k string, e *Entry) bool {
	if m.entries.CompareAndDelete(k, e) {
		m.size.Add(-1)
		metrics.CacheEntries.Dec()
		return true
	}
	return false
}

type agedEntry struct {
	key   string
	entry *Entry
}

// enforceCapacity brings the store back under maxEntries: expired entries first, then
// the oldest entries of other categories, then the oldest of keep's own category.
func (m *MemoryStore) enforceCapacity(keep string, category places.Category) {
	m.evictMu.Lock()
	defer m.evictMu.Unlock()

	if m.size.Load() <= int64(m.maxEntries) {
		return
	}
	m.Sweep()

	var others, same []agedEntry
	m.entries.Range(func(k, v any) bool {
		ks, e := k.(string), v.(*Entry)
		if ks == keep {
			return true
		}
		if e.Key.Category == category {
			same = append(same, agedEntry{ks, e})
		} else {
			others = append(others, agedEntry{ks, e})
		}
		return true
	})

	evicted := 0
	for _, group := range [][]agedEntry{others, same} {
		sort.Slice(group, func(i, j int) bool {
			return group[i].entry.InsertedAt.Before(group[j].entry.InsertedAt)
		})
		for _, a := range group {
			if m.size.Load() <= int64(m.maxEntries) {
				break
			}
			if m.remove(a.key, a.entry) {
				evicted++
			}
		}
	}

	if evicted > 0 {
		metrics.CacheEvictions.WithLabelValues("capacity").Add(float64(evicted))
		m.logger.Debug("evicted entries over capacity", map[string]interface{}{
			"evicted":    evicted,
			"maxEntries": m.maxEntries,
		})
	}
}
