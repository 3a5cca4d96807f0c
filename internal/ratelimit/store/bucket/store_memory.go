package bucket

import (
	"context"
	"sync"
	"time"

	"placeclaim/internal/ratelimit/models"
)

// InMemoryBucketStore implements a sliding-window store in process memory.
// It serves tests and single-instance deployments; multi-instance
// deployments use the Redis store so every node shares the same counters.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
}

// slidingWindow tracks admitted request timestamps in ascending order.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

// NewInMemoryBucketStore creates a new in-memory bucket store.
func NewInMemoryBucketStore() *InMemoryBucketStore {
	return &InMemoryBucketStore{
		buckets: make(map[string]*slidingWindow),
	}
}

// AllowAll checks every bucket and increments all of them only if each has room.
func (s *InMemoryBucketStore) AllowAll(_ context.Context, now time.Time, reqs []models.BucketRequest) (*models.RateLimitResult, error) {
	if err := validateRequests(reqs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	windows := make([]*slidingWindow, len(reqs))
	for i, r := range reqs {
		sw := s.getOrCreateBucket(r.Key, r.Window)
		sw.cleanup(now)
		if len(sw.timestamps)+1 > r.Limit {
			return deniedResult(r, sw.timestamps[0], now), nil
		}
		windows[i] = sw
	}

	counts := make([]int, len(reqs))
	oldest := make([]time.Time, len(reqs))
	for i, sw := range windows {
		sw.timestamps = append(sw.timestamps, now)
		counts[i] = len(sw.timestamps)
		oldest[i] = sw.timestamps[0]
	}
	return allowedResult(reqs, counts, oldest), nil
}

// Reset clears the counter for a key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// currentCount returns the number of admitted requests still inside the window.
func (s *InMemoryBucketStore) currentCount(_ context.Context, now time.Time, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.buckets[key]
	if sw == nil {
		return 0, nil
	}
	sw.window = window
	sw.cleanup(now)
	return len(sw.timestamps), nil
}

// cleanup drops timestamps at or before the window's trailing edge.
func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// getOrCreateBucket must be called while holding s.mu.
func (s *InMemoryBucketStore) getOrCreateBucket(key string, window time.Duration) *slidingWindow {
	if sw := s.buckets[key]; sw != nil {
		sw.window = window
		return sw
	}
	sw := &slidingWindow{window: window}
	s.buckets[key] = sw
	return sw
}
