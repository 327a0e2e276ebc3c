// Package dedup provides a Redis-backed advisory cache of recently seen
// event ids. It only short-circuits the store pre-check on the hot path;
// the storage layer's uniqueness constraint remains the dedup guarantee,
// so cache misses and Redis outages are safe.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "payment_event:"

type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	config *Config
}

type Config struct {
	Address  string        `json:"address"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	PoolSize int           `json:"pool_size"`
	TTL      time.Duration `json:"ttl"`
}

// NewCache connects to Redis and returns the cache, or an error when the
// server is unreachable
func NewCache(config *Config) (*Cache, error) {
	if config == nil {
		return nil, fmt.Errorf("redis config is required")
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}
	if config.TTL == 0 {
		config.TTL = 24 * time.Hour
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		rdb:    rdb,
		ttl:    config.TTL,
		config: config,
	}, nil
}

// Seen reports whether the event id was recently marked. Errors are
// returned so the caller can log them, but callers must treat any error as
// "unknown" and fall through to the store.
func (c *Cache) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup cache: %w", err)
	}
	return n > 0, nil
}

// Mark records the event id for the configured TTL
func (c *Cache) Mark(ctx context.Context, eventID string) error {
	if err := c.rdb.Set(ctx, keyPrefix+eventID, "1", c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark event in dedup cache: %w", err)
	}
	return nil
}

func (c *Cache) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
