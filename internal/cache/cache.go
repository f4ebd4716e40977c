// v1
// internal/cache/cache.go
package cache

import (
	"sync"
	"time"
)

// Observer is notified of lookup outcomes so hit rates land in metrics.
type Observer interface {
	CacheHit()
	CacheMiss()
}

type item[T any] struct {
	value    T
	deadline time.Time
}

// Cache holds recomputed-wholesale query responses for a fixed TTL. Expiry is
// checked on read, with no background sweeper: the engine drops the whole
// cache on every mutation, so the TTL only bounds staleness for readers that
// race a mutation.
type Cache[T any] struct {
	mu    sync.RWMutex
	items map[string]item[T]
	ttl   time.Duration
	obs   Observer
}

func New[T any](ttl time.Duration, obs Observer) *Cache[T] {
	return &Cache[T]{items: make(map[string]item[T]), ttl: ttl, obs: obs}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(it.deadline) {
		c.hit()
		return it.value, true
	}
	var zero T
	c.miss()
	return zero, false
}

func (c *Cache[T]) Set(key string, v T) {
	deadline := time.Now().Add(c.ttl)
	c.mu.Lock()
	c.items[key] = item[T]{value: v, deadline: deadline}
	c.mu.Unlock()
}

// Invalidate drops every entry.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	c.items = make(map[string]item[T])
	c.mu.Unlock()
}

func (c *Cache[T]) hit() {
	if c.obs != nil {
		c.obs.CacheHit()
	}
}

func (c *Cache[T]) miss() {
	if c.obs != nil {
		c.obs.CacheMiss()
	}
}
