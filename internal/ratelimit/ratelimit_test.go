package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStorage_Allow(t *testing.T) {
	s := NewInMemoryStorage()
	defer s.Stop()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	limit := Limit{Requests: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := s.Allow(ctx, "10.0.0.1", limit)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	ok, err := s.Allow(ctx, "10.0.0.1", limit)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other keys have their own bucket.
	ok, err = s.Allow(ctx, "10.0.0.2", limit)
	require.NoError(t, err)
	assert.True(t, ok)

	// One token refills every 20s.
	now = now.Add(20 * time.Second)
	ok, err = s.Allow(ctx, "10.0.0.1", limit)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Allow(ctx, "10.0.0.1", limit)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryStorage_InvalidLimit(t *testing.T) {
	s := NewInMemoryStorage()
	defer s.Stop()

	_, err := s.Allow(context.Background(), "k", Limit{Requests: 0, Window: time.Minute})
	assert.Error(t, err)
}
