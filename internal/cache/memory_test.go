package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"place-discovery/internal/common/logger"
	"place-discovery/internal/places"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func scored(ids ...string) []places.ScoredPlace {
	out := make([]places.ScoredPlace, len(ids))
	for i, id := range ids {
		out[i] = places.ScoredPlace{Candidate: places.Candidate{ID: id, Name: "Place " + id}, TotalScore: float64(len(ids) - i)}
	}
	return out
}

var paris = places.Coordinates{Latitude: 48.85661, Longitude: 2.35222}

func hotelKey(lat, lng float64) Key {
	return Quantizer{Precision: 4}.Key(places.Coordinates{Latitude: lat, Longitude: lng}, places.CategoryHotel, nil)
}

// ==========================================
// Keys
// ==========================================

func TestQuantizer_NearbyCoordinatesShareKey(t *testing.T) {
	q := Quantizer{Precision: 4}

	a := q.Key(places.Coordinates{Latitude: 48.85661, Longitude: 2.35222}, places.CategoryHotel, nil)
	b := q.Key(places.Coordinates{Latitude: 48.85659, Longitude: 2.35218}, places.CategoryHotel, nil)
	c := q.Key(places.Coordinates{Latitude: 48.85700, Longitude: 2.35222}, places.CategoryHotel, nil)
	d := q.Key(places.Coordinates{Latitude: 48.85661, Longitude: 2.35222}, places.CategoryRestaurant, nil)

	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), c.String())
	assert.NotEqual(t, a.String(), d.String())
	assert.Equal(t, "places:hotel:p4:488566:23522", a.String())
}

func TestQuantizer_ViewportIsPartOfKey(t *testing.T) {
	q := Quantizer{}
	vp := &places.Viewport{
		Low:  places.Coordinates{Latitude: 48.80, Longitude: 2.30},
		High: places.Coordinates{Latitude: 48.90, Longitude: 2.40},
	}

	without := q.Key(paris, places.CategoryHotel, nil)
	with := q.Key(paris, places.CategoryHotel, vp)

	assert.NotEqual(t, without.String(), with.String())
	assert.Equal(t, DefaultPrecision, with.Precision)
	assert.Contains(t, with.String(), ":vp:488000:23000:489000:24000")
}

// ==========================================
// Get / Put / TTL
// ==========================================

func TestMemoryStore_PutGet(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(10*time.Minute, logger.NewTestLogger(t), WithClock(clock.Now))
	ctx := context.Background()
	key := hotelKey(paris.Latitude, paris.Longitude)

	_, ok := store.Get(ctx, key)
	assert.False(t, ok)

	store.Put(ctx, key, scored("a", "b"))

	entry, ok := store.Get(ctx, key)
	require.True(t, ok)
	assert.Len(t, entry.Places, 2)
	assert.Equal(t, clock.Now(), entry.InsertedAt)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ExpiresAtTTL(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(10*time.Minute, logger.NewNoOpLogger(), WithClock(clock.Now))
	ctx := context.Background()
	key := hotelKey(1, 1)

	store.Put(ctx, key, scored("a"))

	clock.Advance(10*time.Minute - time.Nanosecond)
	_, ok := store.Get(ctx, key)
	assert.True(t, ok, "just under the TTL is fresh")

	clock.Advance(time.Nanosecond)
	_, ok = store.Get(ctx, key)
	assert.False(t, ok, "age equal to the TTL is stale")
	assert.Equal(t, 0, store.Len(), "stale entry removed lazily")
}

func TestMemoryStore_PutOverwritesAndRestampsEntry(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, logger.NewNoOpLogger(), WithClock(clock.Now))
	ctx := context.Background()
	key := hotelKey(1, 1)

	store.Put(ctx, key, scored("old"))
	clock.Advance(50 * time.Second)
	store.Put(ctx, key, scored("new"))
	clock.Advance(50 * time.Second)

	entry, ok := store.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "new", entry.Places[0].Candidate.ID)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(time.Minute, logger.NewNoOpLogger())
	ctx := context.Background()
	key := hotelKey(1, 1)

	input := scored("a", "b")
	store.Put(ctx, key, input)
	input[0].Candidate.ID = "mutated-input"

	first, _ := store.Get(ctx, key)
	first.Places[1].Candidate.ID = "mutated-output"

	second, _ := store.Get(ctx, key)
	assert.Equal(t, "a", second.Places[0].Candidate.ID)
	assert.Equal(t, "b", second.Places[1].Candidate.ID)
}

func TestMemoryStore_ReturnsDeepCopies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *places.ScoredPlace)
	}{
		{name: "types", mutate: func(p *places.ScoredPlace) { p.Candidate.Types[0] = "mutated" }},
		{name: "photos", mutate: func(p *places.ScoredPlace) { p.Candidate.Photos[0] = "mutated" }},
		{name: "rating", mutate: func(p *places.ScoredPlace) { *p.Candidate.Rating = 1.0 }},
		{name: "review count", mutate: func(p *places.ScoredPlace) { *p.Candidate.ReviewCount = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(time.Minute, logger.NewNoOpLogger())
			ctx := context.Background()
			key := hotelKey(1, 1)

			input := []places.ScoredPlace{{Candidate: places.Candidate{
				ID:          "a",
				Types:       []string{"lodging"},
				Photos:      []string{"photo-1"},
				Rating:      places.Float64(4.5),
				ReviewCount: places.Int(120),
			}}}
			store.Put(ctx, key, input)
			tt.mutate(&input[0])

			first, ok := store.Get(ctx, key)
			require.True(t, ok)
			tt.mutate(&first.Places[0])

			second, _ := store.Get(ctx, key)
			got := second.Places[0].Candidate
			assert.Equal(t, []string{"lodging"}, got.Types)
			assert.Equal(t, []string{"photo-1"}, got.Photos)
			assert.Equal(t, 4.5, *got.Rating)
			assert.Equal(t, 120, *got.ReviewCount)
		})
	}
}

func TestMemoryStore_Invalidate(t *testing.T) {
	store := NewMemoryStore(time.Minute, logger.NewNoOpLogger())
	ctx := context.Background()
	key := hotelKey(1, 1)

	store.Put(ctx, key, scored("a"))
	store.Invalidate(ctx, key)
	store.Invalidate(ctx, key)

	_, ok := store.Get(ctx, key)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, logger.NewNoOpLogger(), WithClock(clock.Now))
	ctx := context.Background()

	store.Put(ctx, hotelKey(1, 1), scored("a"))
	store.Put(ctx, hotelKey(2, 2), scored("b"))
	clock.Advance(30 * time.Second)
	store.Put(ctx, hotelKey(3, 3), scored("c"))
	clock.Advance(45 * time.Second)

	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(ctx, hotelKey(3, 3))
	assert.True(t, ok)
}

func TestMemoryStore_RunStopsWithContext(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, logger.NewNoOpLogger(), WithClock(clock.Now))
	store.Put(context.Background(), hotelKey(1, 1), scored("a"))
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestMemoryStore_RunWithNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		t.Run(interval.String(), func(t *testing.T) {
			store := NewMemoryStore(time.Minute, logger.NewNoOpLogger())
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})

			go func() {
				defer close(done)
				assert.NotPanics(t, func() { store.Run(ctx, interval) })
			}()

			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("janitor did not stop")
			}
		})
	}
}

// ==========================================
// Capacity
// ==========================================

func TestMemoryStore_EvictsExpiredFirst(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Minute, logger.NewNoOpLogger(), WithClock(clock.Now), WithMaxEntries(2))
	ctx := context.Background()

	store.Put(ctx, hotelKey(1, 1), scored("stale"))
	clock.Advance(2 * time.Minute)
	store.Put(ctx, hotelKey(2, 2), scored("fresh"))
	store.Put(ctx, hotelKey(3, 3), scored("newest"))

	assert.Equal(t, 2, store.Len())
	_, ok := store.Get(ctx, hotelKey(2, 2))
	assert.True(t, ok)
	_, ok = store.Get(ctx, hotelKey(3, 3))
	assert.True(t, ok)
}

func TestMemoryStore_EvictsOtherCategoriesBeforeOwn(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(time.Hour, logger.NewNoOpLogger(), WithClock(clock.Now), WithMaxEntries(3))
	ctx := context.Background()
	q := Quantizer{}

	oldHotel := q.Key(places.Coordinates{Latitude: 1, Longitude: 1}, places.CategoryHotel, nil)
	restaurant := q.Key(places.Coordinates{Latitude: 2, Longitude: 2}, places.CategoryRestaurant, nil)
	hotel2 := q.Key(places.Coordinates{Latitude: 3, Longitude: 3}, places.CategoryHotel, nil)
	hotel3 := q.Key(places.Coordinates{Latitude: 4, Longitude: 4}, places.CategoryHotel, nil)

	for _, k := range []Key{oldHotel, restaurant, hotel2} {
		store.Put(ctx, k, scored("x"))
		clock.Advance(time.Second)
	}
	store.Put(ctx, hotel3, scored("x"))

	assert.Equal(t, 3, store.Len())
	_, ok := store.Get(ctx, restaurant)
	assert.False(t, ok, "other category evicted even though the oldest hotel is older")
	for _, k := range []Key{oldHotel, hotel2, hotel3} {
		_, ok := store.Get(ctx, k)
		assert.True(t, ok, k.String())
	}

	// with no other category left, the oldest same-category entry goes
	hotel4 := q.Key(places.Coordinates{Latitude: 5, Longitude: 5}, places.CategoryHotel, nil)
	clock.Advance(time.Second)
	store.Put(ctx, hotel4, scored("x"))

	_, ok = store.Get(ctx, oldHotel)
	assert.False(t, ok)
	_, ok = store.Get(ctx, hotel4)
	assert.True(t, ok)
}

// ==========================================
// Concurrency
// ==========================================

func TestMemoryStore_ConcurrentSameKey(t *testing.T) {
	store := NewMemoryStore(time.Minute, logger.NewNoOpLogger())
	ctx := context.Background()
	key := hotelKey(1, 1)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			store.Put(ctx, key, scored(fmt.Sprintf("w%d-a", i), fmt.Sprintf("w%d-b", i)))
		}(i)
		go func() {
			defer wg.Done()
			if e, ok := store.Get(ctx, key); ok {
				// a reader sees one writer's complete list, never a mix
				require.Len(t, e.Places, 2)
				assert.Equal(t, e.Places[0].Candidate.ID[:len(e.Places[0].Candidate.ID)-2],
					e.Places[1].Candidate.ID[:len(e.Places[1].Candidate.ID)-2])
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
}
