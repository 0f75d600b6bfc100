package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"
)

// Config holds the configuration for the in-memory cache.
type Config struct {
	DefaultTTL time.Duration
	MaxItems   int
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a bounded in-memory cache backed by otter.
type Cache struct {
	store      *otter.Cache[string, entry]
	defaultTTL time.Duration
}

// New creates an in-memory cache.
func New(config Config) *Cache {
	if config.MaxItems <= 0 {
		config.MaxItems = 1000
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	return &Cache{
		store: otter.Must(&otter.Options[string, entry]{
			MaximumSize:      config.MaxItems,
			InitialCapacity:  min(config.MaxItems, 128),
			ExpiryCalculator: otter.ExpiryWriting[string, entry](config.DefaultTTL),
		}),
		defaultTTL: config.DefaultTTL,
	}
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) {
	c.SetWithTTL(ctx, key, value, c.defaultTTL)
}

// SetWithTTL stores value under key. A ttl longer than the default is capped
// by the cache-wide expiry.
func (c *Cache) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.store.Set(key, entry{value: value, expiresAt: time.Now().Add(ttl)})
}

// Get returns the value stored under key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := c.store.GetIfPresent(key)
	if !ok {
		return nil, false
	}
	// Per-entry TTLs shorter than the cache-wide expiry are checked here.
	if time.Now().After(e.expiresAt) {
		c.store.Invalidate(key)
		return nil, false
	}
	return e.value, true
}

// Delete removes key.
func (c *Cache) Delete(_ context.Context, key string) {
	c.store.Invalidate(key)
}

// Clear removes every entry.
func (c *Cache) Clear(_ context.Context) {
	c.store.InvalidateAll()
}

// Size returns the approximate number of entries.
func (c *Cache) Size() int {
	return c.store.EstimatedSize()
}

// Close releases the cache.
func (c *Cache) Close() error {
	c.store.InvalidateAll()
	return nil
}
