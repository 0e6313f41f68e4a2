package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryStorage keeps buckets in a map. A background goroutine drops
// buckets idle for more than twice their window.
type InMemoryStorage struct {
	mu          sync.Mutex
	buckets     map[string]*tokenBucket
	cleanup     *time.Ticker
	stopCleanup chan struct{}
	now         func() time.Time
}

func NewInMemoryStorage() *InMemoryStorage {
	s := &InMemoryStorage{
		buckets:     make(map[string]*tokenBucket),
		cleanup:     time.NewTicker(5 * time.Minute),
		stopCleanup: make(chan struct{}),
		now:         time.Now,
	}

	go s.cleanupUnusedBuckets()

	return s
}

// Stop stops the background cleanup goroutine.
func (s *InMemoryStorage) Stop() {
	s.cleanup.Stop()
	close(s.stopCleanup)
}

func (s *InMemoryStorage) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	if limit.Requests <= 0 || limit.Window <= 0 {
		return false, fmt.Errorf("invalid rate limit %d/%s", limit.Requests, limit.Window)
	}

	now := s.now()
	bucketKey := fmt.Sprintf("%s:%s", key, limit.Window)

	s.mu.Lock()
	bucket, ok := s.buckets[bucketKey]
	if !ok {
		bucket = newTokenBucket(limit, now)
		s.buckets[bucketKey] = bucket
	}
	s.mu.Unlock()

	return bucket.consume(1, now), nil
}

func (s *InMemoryStorage) cleanupUnusedBuckets() {
	for {
		select {
		case <-s.cleanup.C:
			s.mu.Lock()
			now := s.now()
			for key, bucket := range s.buckets {
				bucket.mu.Lock()
				if now.Sub(bucket.lastRefill) > bucket.window*2 {
					delete(s.buckets, key)
				}
				bucket.mu.Unlock()
			}
			s.mu.Unlock()
		case <-s.stopCleanup:
			return
		}
	}
}
