// Package cache is a process-wide read cache with a fixed time-to-live.
//
// Entries are keyed by data-source identity (for example spreadsheet id
// plus tab). Concurrent misses for one key share a single load.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/familyfund/internal/metrics"
)

// LoadFunc fetches a fresh value on a miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value   T
	expires time.Time
}

// Cache is safe for concurrent use.
type Cache[T any] struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]entry[T]
	// gen is bumped by Invalidate so loads started earlier don't
	// repopulate a stale value.
	gen map[string]uint64

	group singleflight.Group
}

// New creates a cache. name labels its metrics.
func New[T any](name string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		name:    name,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[T]),
		gen:     make(map[string]uint64),
	}
}

// Get returns the cached value for key, calling load on a miss or after
// expiry. Errors are not cached.
func (c *Cache[T]) Get(ctx context.Context, key string, load LoadFunc[T]) (T, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		metrics.CacheLookups.WithLabelValues(c.name, "hit").Inc()
		return e.value, nil
	}
	gen := c.gen[key]
	c.mu.Unlock()
	metrics.CacheLookups.WithLabelValues(c.name, "miss").Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		value, err := load(ctx)
		if err != nil {
			return value, err
		}
		c.mu.Lock()
		if c.gen[key] == gen {
			c.entries[key] = entry[T]{value: value, expires: c.now().Add(c.ttl)}
		}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops key so the next Get reloads it.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gen[key]++
	c.mu.Unlock()
	c.group.Forget(key)
}

// Clear drops every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	for k := range c.entries {
		delete(c.entries, k)
		c.gen[k]++
	}
	c.mu.Unlock()
}
