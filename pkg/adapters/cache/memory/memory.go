package memory

import (
	"context"
	"sync"
	"time"
)

type item struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a process-local cache. Expired entries are ignored on read and
// overwritten by the next set; there is no background eviction.
type Cache struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

// NewCache creates a new in-memory cache
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]item),
		now:   time.Now,
	}
}

// Get returns the value stored under key if it has not expired
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(it.expiresAt) {
		return nil, false, nil
	}

	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, true, nil
}

// Set replaces the value under key and resets its expiry
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.items[key] = item{value: stored, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}
