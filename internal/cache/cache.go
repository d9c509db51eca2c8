package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is the Redis capability the API needs besides the job queue:
// fixed-window request counters for rate limiting.
// Implementations must be safe for concurrent use.
type Counter interface {
	Ping(ctx context.Context) error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
}

// RedisCache implements Counter using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewClient parses a redis:// URL and returns a client. The API shares one
// client between the rate limiter and the job queue producer.
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// IncrWithExpiry increments key and starts its expiry on first use. Later
// increments in the same window leave the expiry alone.
func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
