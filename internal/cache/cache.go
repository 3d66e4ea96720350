// Package cache memoizes slow lookups such as trend keywords and per-author
// styles for a fixed time, collapsing concurrent loads of the same key.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Options configures a Cache
type Options struct {
	TTL        time.Duration
	MaxEntries int
}

// Hooks are optional callbacks for cache events, labelled by key
type Hooks struct {
	OnHit   func(key string)
	OnMiss  func(key string)
	OnError func(key string)
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL cache with FIFO eviction. Failed loads are not stored.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]*entry[V]
	order []string
	opts  Options
	hooks Hooks
	sf    singleflight.Group
	now   func() time.Time
}

// Loader fetches the value for key on a miss
type Loader[V any] func(ctx context.Context, key string) (V, error)

// New creates a cache
func New[V any](opts Options, hooks Hooks) *Cache[V] {
	return &Cache[V]{
		items: make(map[string]*entry[V]),
		opts:  opts,
		hooks: hooks,
		now:   time.Now,
	}
}

// Get returns the cached value for key or loads it. Concurrent misses on the
// same key share one load.
func (c *Cache[V]) Get(ctx context.Context, key string, loader Loader[V]) (V, error) {
	if v, ok := c.Peek(key); ok {
		if c.hooks.OnHit != nil {
			c.hooks.OnHit(key)
		}
		return v, nil
	}

	if c.hooks.OnMiss != nil {
		c.hooks.OnMiss(key)
	}
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		v, err := loader(ctx, key)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		if c.hooks.OnError != nil {
			c.hooks.OnError(key)
		}
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Peek returns a live cached value without loading
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the cache TTL
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = &entry[V]{value: v, expiresAt: c.now().Add(c.opts.TTL)}
	c.evictIfNeeded()
}

// Delete removes key
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	c.removeFromOrder(key)
}

// Len returns the number of stored entries, expired or not
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *Cache[V]) evictIfNeeded() {
	if c.opts.MaxEntries <= 0 {
		return
	}
	for len(c.items) > c.opts.MaxEntries && len(c.order) > 0 {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.items, victim)
	}
}
