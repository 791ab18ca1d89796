package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"callqa-backend/internal/shared/telemetry"
)

// ErrMiss is returned when a key is not present in the cache.
var ErrMiss = errors.New("cache miss")

// Cache wraps a redis client. A nil *Cache is valid and behaves as a
// cache that always misses, so callers never need to branch on setup.
type Cache struct {
	client *redis.Client
}

// New connects to redis at addr. Returns nil when addr is empty so the
// application can run without a cache.
func New(ctx context.Context, addr string) *Cache {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		telemetry.Error("cache.connect_failed", map[string]any{"addr": addr, "error": err.Error()})
		return nil
	}

	telemetry.Info("cache.connected", map[string]any{"addr": addr})
	return &Cache{client: client}
}

// Get fetches the raw value for key, or ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if c == nil {
		return "", ErrMiss
	}
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set stores the value under key with a TTL. Failures are logged, not returned,
// since caching is best-effort.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		telemetry.Error("cache.set_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// Invalidate removes keys from the cache.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		telemetry.Error("cache.invalidate_failed", map[string]any{"error": err.Error()})
	}
}

// Close releases the underlying connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
