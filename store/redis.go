package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/mcpgate/resilience"
)

// RedisConfig configures a RedisCounter.
type RedisConfig struct {
	// Prefix namespaces every key.
	// Default: "mcpgate:"
	Prefix string

	// Timeout bounds each store round trip.
	// Default: 2 seconds
	Timeout time.Duration
}

// RedisCounter stores counters in Redis and increments them with INCRBY.
type RedisCounter struct {
	client  redis.UniversalClient
	prefix  string
	timeout *resilience.Timeout
}

// NewRedisCounter wraps an existing client. The caller owns the client.
func NewRedisCounter(client redis.UniversalClient, config ...RedisConfig) *RedisCounter {
	var cfg RedisConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "mcpgate:"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &RedisCounter{
		client:  client,
		prefix:  cfg.Prefix,
		timeout: resilience.NewTimeout(resilience.TimeoutConfig{Name: "redis", Timeout: cfg.Timeout}),
	}
}

// OpenRedis creates a counter for the redis:// or rediss:// URL. The client
// dials lazily, so an unreachable server is only reported by Ping or the
// first operation. Close releases the client.
func OpenRedis(url string, config ...RedisConfig) (*RedisCounter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}
	return NewRedisCounter(redis.NewClient(opts), config...), nil
}

// Key returns the Redis key that holds name.
func (c *RedisCounter) Key(name string) string {
	return c.prefix + name
}

// Get returns the current value of name. A missing key reads as 0.
func (c *RedisCounter) Get(ctx context.Context, name string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, fmt.Errorf("store: get %q: %w", name, err)
	}
	v, err := resilience.Call(ctx, c.timeout, func(ctx context.Context) (int64, error) {
		v, err := c.client.Get(ctx, c.Key(name)).Int64()
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return v, err
	})
	if err != nil {
		return 0, fmt.Errorf("store: get %q: %w", name, err)
	}
	return v, nil
}

// Increment adds delta to name atomically on the server.
func (c *RedisCounter) Increment(ctx context.Context, name string, delta int64) (int64, error) {
	if err := checkIncrement(name, delta); err != nil {
		return 0, fmt.Errorf("store: increment %q: %w", name, err)
	}
	v, err := resilience.Call(ctx, c.timeout, func(ctx context.Context) (int64, error) {
		return c.client.IncrBy(ctx, c.Key(name), delta).Result()
	})
	if err != nil && strings.Contains(err.Error(), "would overflow") {
		err = ErrOverflow
	}
	if err != nil {
		return 0, fmt.Errorf("store: increment %q: %w", name, err)
	}
	return v, nil
}

// Ping checks that the server answers.
func (c *RedisCounter) Ping(ctx context.Context) error {
	err := c.timeout.Execute(ctx, func(ctx context.Context) error {
		return c.client.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

var (
	_ Counter = (*RedisCounter)(nil)
	_ Pinger  = (*RedisCounter)(nil)
)
