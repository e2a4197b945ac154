// Package cache provides the Redis access layer. Its main user is the token
// revocation set, which is consulted on every authenticated request.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pool and timeout defaults for revocation lookups. Each applies only when
// the Redis URL leaves it unset (for example ?pool_size=50 wins).
const (
	defaultPoolSize     = 20
	defaultMinIdleConns = 4
	defaultPoolTimeout  = time.Second
	defaultDialTimeout  = 2 * time.Second
	defaultOpTimeout    = 500 * time.Millisecond
	defaultIdleTime     = 5 * time.Minute
	defaultMaxRetries   = 1
)

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	applyDefaults(opt)

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// applyDefaults keeps a slow Redis from stalling authentication: a lookup
// fails after one short retry instead of waiting on go-redis' 3s defaults.
func applyDefaults(opt *redis.Options) {
	if opt.PoolSize == 0 {
		opt.PoolSize = defaultPoolSize
	}
	if opt.MinIdleConns == 0 {
		opt.MinIdleConns = defaultMinIdleConns
	}
	if opt.PoolTimeout == 0 {
		opt.PoolTimeout = defaultPoolTimeout
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = defaultDialTimeout
	}
	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = defaultOpTimeout
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = defaultOpTimeout
	}
	if opt.ConnMaxIdleTime == 0 {
		opt.ConnMaxIdleTime = defaultIdleTime
	}
	if opt.MaxRetries == 0 {
		opt.MaxRetries = defaultMaxRetries
	}
}

// Ping checks Redis connectivity for /readyz.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for test setup.
func (c *Cache) Client() *redis.Client {
	return c.client
}
