package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value      V
	expiration time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return now.After(e.expiration)
}

// TTLCache is an in-memory cache whose entries expire after a fixed duration.
type TTLCache[V any] struct {
	items map[string]entry[V]
	mutex sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
}

// NewTTLCache creates a cache. Expired entries are swept every interval until
// ctx is done; a zero interval disables the sweeper.
func NewTTLCache[V any](ctx context.Context, ttl, interval time.Duration) *TTLCache[V] {
	c := &TTLCache[V]{
		items: make(map[string]entry[V]),
		ttl:   ttl,
		now:   time.Now,
	}

	if interval > 0 {
		go c.sweep(ctx, interval)
	}

	return c
}

// Set stores a value in the cache
func (c *TTLCache[V]) Set(key string, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = entry[V]{value: value, expiration: c.now().Add(c.ttl)}
}

// Get retrieves a value from the cache
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[key]
	if !exists || e.expired(c.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrSet returns the live value for key, storing create() first when
// there is none. Either way the entry's expiry is refreshed.
func (c *TTLCache[V]) GetOrSet(key string, create func() V) V {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	e, exists := c.items[key]
	if !exists || e.expired(now) {
		e.value = create()
	}
	e.expiration = now.Add(c.ttl)
	c.items[key] = e
	return e.value
}

// Size returns the number of items in the cache, expired or not
func (c *TTLCache[V]) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// Purge removes expired entries and returns how many were dropped
func (c *TTLCache[V]) Purge() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.items {
		if e.expired(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

func (c *TTLCache[V]) sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}
