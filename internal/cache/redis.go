package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"place-discovery/internal/common/logger"
	"place-discovery/internal/common/metrics"
	"place-discovery/internal/places"
)

// RedisStore shares results between worker replicas. Entries still expire with the
// TTL; Redis expiry and an insertedAt check on read both enforce it.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

type redisEntry struct {
	Places     []places.ScoredPlace `json:"places"`
	InsertedAt time.Time            `json:"insertedAt"`
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "cache", "backend": "redis"}),
	}
}

// WithClock replaces time.Now, for tests.
func (r *RedisStore) WithClock(now func() time.Time) *RedisStore {
	r.now = now
	return r
}

func (r *RedisStore) Get(ctx context.Context, key Key) (*Entry, bool) {
	k := key.String()
	data, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.backendError("get", k, err)
		return nil, false
	}

	var stored redisEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		r.backendError("decode", k, err)
		return nil, false
	}

	e := &Entry{Key: key, Places: stored.Places, InsertedAt: stored.InsertedAt}
	if !e.Fresh(r.now(), r.ttl) {
		return nil, false
	}
	if e.Places == nil {
		e.Places = []places.ScoredPlace{}
	}
	return e, true
}

func (r *RedisStore) Put(ctx context.Context, key Key, ranked []places.ScoredPlace) {
	k := key.String()
	data, err := json.Marshal(redisEntry{Places: copyPlaces(ranked), InsertedAt: r.now().UTC()})
	if err != nil {
		r.backendError("encode", k, err)
		return
	}
	if err := r.client.Set(ctx, k, data, r.ttl).Err(); err != nil {
		r.backendError("set", k, err)
	}
}

func (r *RedisStore) Invalidate(ctx context.Context, key Key) {
	k := key.String()
	if err := r.client.Del(ctx, k).Err(); err != nil {
		r.backendError("del", k, err)
	}
}

func (r *RedisStore) backendError(op, key string, err error) {
	metrics.CacheBackendErrors.WithLabelValues("redis", op).Inc()
	r.logger.WithError(err).Warn("cache backend error, treating as miss", map[string]interface{}{
		"op":  op,
		"key": key,
	})
}
