// Package ratelimit throttles requests per key with token buckets. Buckets
// live in process memory or, for multi-instance deployments, in Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limit allows Requests per Window for a single key.
type Limit struct {
	Requests int64
	Window   time.Duration
}

// Storage keeps bucket state and consumes a token per Allow call.
type Storage interface {
	Allow(ctx context.Context, key string, limit Limit) (bool, error)
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	capacity   float64
	refillRate float64 // tokens per second
	window     time.Duration
}

func newTokenBucket(limit Limit, now time.Time) *tokenBucket {
	capacity := float64(limit.Requests)
	return &tokenBucket{
		tokens:     capacity,
		lastRefill: now,
		capacity:   capacity,
		refillRate: capacity / limit.Window.Seconds(),
		window:     limit.Window,
	}
}

// consume refills by elapsed time and takes n tokens if available.
func (tb *tokenBucket) consume(n float64, now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}

	return false
}
