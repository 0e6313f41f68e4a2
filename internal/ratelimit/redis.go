package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and consumes atomically so that every instance
// sharing the Redis server sees the same bucket.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refillRate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local windowSeconds = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'lastRefill')
	local tokens = tonumber(bucket[1])
	local lastRefill = tonumber(bucket[2])
	if tokens == nil then
		tokens = capacity
	end
	if lastRefill == nil then
		lastRefill = now
	end

	local elapsed = (now - lastRefill) / 1000000000
	if elapsed > 0 then
		tokens = math.min(capacity, tokens + elapsed * refillRate)
	end

	local allowed = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HSET', key, 'tokens', tostring(tokens), 'lastRefill', tostring(now))
	redis.call('EXPIRE', key, math.ceil(windowSeconds * 1.1))

	return allowed
`)

type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStorage uses keyPrefix for every bucket key, "rate_limit:" when empty.
func NewRedisStorage(client *redis.Client, keyPrefix string) *RedisStorage {
	if keyPrefix == "" {
		keyPrefix = "rate_limit:"
	}

	return &RedisStorage{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisStorage) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	if limit.Requests <= 0 || limit.Window <= 0 {
		return false, fmt.Errorf("invalid rate limit %d/%s", limit.Requests, limit.Window)
	}

	capacity := float64(limit.Requests)
	bucketKey := fmt.Sprintf("%s%s:%s", r.keyPrefix, key, limit.Window)

	result, err := tokenBucketScript.Run(ctx, r.client, []string{bucketKey},
		capacity,
		capacity/limit.Window.Seconds(),
		time.Now().UnixNano(),
		limit.Window.Seconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return result == 1, nil
}

// Ping checks if the Redis connection is healthy.
func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
