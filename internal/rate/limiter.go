package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FixedWindow counts hits per key in Redis. Keys are namespaced by prefix.
type FixedWindow struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a [FixedWindow] backed by the given Redis client.
func New(redisClient redis.UniversalClient, prefix string) *FixedWindow {
	return &FixedWindow{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Key joins parts under the window's prefix.
func (w *FixedWindow) Key(parts ...string) string {
	key := w.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Hit increments key and returns ErrRateLimited when the count for the
// current window exceeds limit. The hit is counted either way.
func (w *FixedWindow) Hit(ctx context.Context, key string, limit int, window time.Duration) error {
	count, err := w.incrementWithTTL(ctx, key, window)
	if err != nil {
		return err
	}
	if count > int64(limit) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the given counters.
func (w *FixedWindow) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := w.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (w *FixedWindow) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := w.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := w.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
