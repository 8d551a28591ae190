// Package cache provides a generic in-memory store with per-entry expiry.
//
// Expiry is checked lazily on read. Expired entries stay in the map until
// they are replaced, deleted, or cleared, so callers can still Peek at a
// stale value when a refresh fails.
package cache

import (
	"sync"
	"time"

	"github.com/facebookgo/clock"
)

// DefaultTTL is used when a cache is created without an explicit TTL.
const DefaultTTL = time.Hour

// Entry is a cached value plus the instant it stops being active.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Active reports whether the entry is still fresh at now.
func (e Entry[V]) Active(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Cache maps string keys to values with a time-to-live.
// It is safe for concurrent use.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	ttl     time.Duration
	clock   clock.Clock
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the time source, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// New creates a cache whose entries live for ttl by default.
// A non-positive ttl falls back to DefaultTTL.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		entries: make(map[string]Entry[V]),
		ttl:     ttl,
		clock:   o.clock,
	}
}

// TTL returns the default time-to-live.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Now returns the cache's notion of the current time.
func (c *Cache[V]) Now() time.Time {
	return c.clock.Now()
}

// Get returns the value for key if present and active.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !e.Active(c.clock.Now()) {
		var zero V
		return zero, false
	}
	return e.Value, true
}

// Peek returns the entry for key whether or not it has expired.
func (c *Cache[V]) Peek(key string) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// Contains reports whether key holds an active entry.
func (c *Cache[V]) Contains(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Put stores value under key, replacing any previous entry, for ttl.
func (c *Cache[V]) Put(key string, value V, ttl time.Duration) {
	e := Entry[V]{Value: value, ExpiresAt: c.clock.Now().Add(ttl)}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.Put(key, value, c.ttl)
}

// GetOrFetch returns the active value for key, or calls fetch, stores its
// result with the default TTL, and returns it. A failed fetch leaves the
// existing entry untouched and returns the error.
func (c *Cache[V]) GetOrFetch(key string, fetch func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := fetch()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry[V])
	c.mu.Unlock()
}

// Keys returns every stored key, active or not, in no particular order.
func (c *Cache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored entries, active or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
