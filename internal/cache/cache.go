// Package cache provides a generic TTL cache
package cache

import (
	"sync"
	"time"
)

// item wraps a cached value with its expiration time
type item[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a generic thread-safe cache with TTL expiration
type Cache[T any] struct {
	items map[string]item[T]
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now     func() time.Time
	cleanup bool
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithoutCleanup disables the background sweep; expired items are then only
// dropped on access.
func WithoutCleanup() Option {
	return func(o *options) { o.cleanup = false }
}

// New creates a cache with the specified TTL
func New[T any](ttl time.Duration, opts ...Option) *Cache[T] {
	o := options{now: time.Now, cleanup: true}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache[T]{
		items: make(map[string]item[T]),
		ttl:   ttl,
		now:   o.now,
		stop:  make(chan struct{}),
	}
	if o.cleanup && ttl > 0 {
		go c.cleanup()
	}
	return c
}

// Get retrieves a value, returning (value, true) if found and not expired
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || c.expired(item) {
		var zero T
		return zero, false
	}
	return item.value, true
}

// Set stores a value with the cache's TTL
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[T]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes a key from the cache
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Close stops the background cleanup goroutine. It is safe to call twice.
func (c *Cache[T]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[T]) expired(it item[T]) bool {
	return !c.now().Before(it.expiresAt)
}

// cleanup runs periodically to remove expired items
func (c *Cache[T]) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[T]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if c.expired(item) {
			delete(c.items, key)
		}
	}
}
