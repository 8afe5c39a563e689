package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/upskeel/lms/internal/cache"
)

// RateStore coordinates fixed-window counters for a key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// memoryRateStore keeps counters in process. Expired windows are swept on
// every sweepEvery-th increment.
type memoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	calls int
	clock func() time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

const sweepEvery = 256

// NewMemoryRateStore constructs an in-memory rate store for single instance
// deployments and tests.
func NewMemoryRateStore() RateStore {
	return &memoryRateStore{
		data:  make(map[string]*memoryCounter),
		clock: time.Now,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls%sweepEvery == 0 {
		for k, counter := range s.data {
			if now.After(counter.windowEnd) {
				delete(s.data, k)
			}
		}
	}

	counter, ok := s.data[key]
	if !ok || now.After(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}

// storeRateStore keeps counters in the shared cache (Redis or the SQL table)
// so limits hold across instances.
type storeRateStore struct {
	store cache.Store
}

// NewCacheRateStore wraps a cache store in a RateStore implementation.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

func (s *storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, "ratelimit:"+key, window)
	return int(count), ttl, err
}
