// Package cache provides cache facade implementations and the JSON
// serialization boundary used by cached pipeline stages.
//
// Implementations:
//   - redis: shared cache with server-side expiry
//   - memory: process-local cache with expiry evaluated on read
//   - Nop: always misses
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/eduvid/internal/ports"
)

// Key joins a namespace and its parts into a deterministic cache key.
func Key(namespace string, parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

// GetJSON reads key and decodes it into out. A payload that cannot be decoded
// is reported as a miss together with the decode error.
func GetJSON(ctx context.Context, c ports.Cache, key string, out interface{}) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key
func SetJSON(ctx context.Context, c ports.Cache, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}

// Nop is a cache that never stores anything
type Nop struct{}

func (Nop) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error { return nil }
