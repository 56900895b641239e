package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache implements ports.Cache on Redis strings with server-side expiry
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache creates a new Redis cache
func NewCache(client *redis.Client) *Cache {
	return &Cache{
		client: client,
		prefix: "eduvid:cache:",
	}
}

// Get returns the value stored under key
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return data, true, nil
}

// Set replaces the value under key and resets its expiry
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}
