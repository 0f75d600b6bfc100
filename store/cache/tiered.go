package cache

import (
	"context"
	"time"
)

// TieredCache implements a three-tier caching strategy:
//   - L1: in-memory cache (fast, small, always on)
//   - L2: Redis cache (shared, optional)
//   - L3: the fetcher passed to Get, usually the database
//
// Without a Redis address only L1 is used.
type TieredCache struct {
	l1    *Cache
	l2    RedisCacheInterface
	l2TTL time.Duration
}

// L3Fetcher fetches a value from the source of truth. It reports found=false
// for a missing key; errors are not cached.
type L3Fetcher func(ctx context.Context, key string) (value []byte, found bool, err error)

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxItems int
	L1TTL      time.Duration
	L2TTL      time.Duration
	// RedisAddr enables L2 when set.
	RedisAddr string
}

// DefaultTieredConfig returns the default tiered cache configuration.
func DefaultTieredConfig() *TieredCacheConfig {
	return &TieredCacheConfig{
		L1MaxItems: 1000,
		L1TTL:      10 * time.Minute,
		L2TTL:      30 * time.Minute,
	}
}

// NewTieredCache creates a tiered cache, connecting to Redis when configured.
func NewTieredCache(ctx context.Context, config *TieredCacheConfig) (*TieredCache, error) {
	if config == nil {
		config = DefaultTieredConfig()
	}
	tc := &TieredCache{
		l1:    New(Config{DefaultTTL: config.L1TTL, MaxItems: config.L1MaxItems}),
		l2:    NewNilRedisCache(),
		l2TTL: config.L2TTL,
	}
	if config.RedisAddr != "" {
		redisConfig := DefaultRedisConfig(config.RedisAddr)
		redisConfig.DefaultTTL = config.L2TTL
		l2, err := NewRedisCache(ctx, redisConfig)
		if err != nil {
			return nil, err
		}
		tc.l2 = l2
	}
	return tc, nil
}

// NewTieredCacheWithL2 builds a tiered cache around an existing L2.
func NewTieredCacheWithL2(config *TieredCacheConfig, l2 RedisCacheInterface) *TieredCache {
	if config == nil {
		config = DefaultTieredConfig()
	}
	if l2 == nil {
		l2 = NewNilRedisCache()
	}
	return &TieredCache{
		l1:    New(Config{DefaultTTL: config.L1TTL, MaxItems: config.L1MaxItems}),
		l2:    l2,
		l2TTL: config.L2TTL,
	}
}

// Get checks L1, then L2, then the fetcher, back-filling the faster tiers.
func (t *TieredCache) Get(ctx context.Context, key string, fetcher L3Fetcher) ([]byte, bool, error) {
	if value, ok := t.l1.Get(ctx, key); ok {
		return value, true, nil
	}
	if value, ok := t.l2.Get(ctx, key); ok {
		t.l1.Set(ctx, key, value)
		return value, true, nil
	}
	if fetcher == nil {
		return nil, false, nil
	}
	value, found, err := fetcher(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	t.Set(ctx, key, value, 0)
	return value, true, nil
}

// Set writes through both tiers. A positive ttl caps the entry lifetime.
func (t *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl > 0 {
		t.l1.SetWithTTL(ctx, key, value, ttl)
		t.l2.SetWithTTL(ctx, key, value, min(ttl, t.l2TTL))
		return
	}
	t.l1.Set(ctx, key, value)
	t.l2.Set(ctx, key, value)
}

// Delete removes key from both tiers.
func (t *TieredCache) Delete(ctx context.Context, key string) {
	t.l1.Delete(ctx, key)
	t.l2.Delete(ctx, key)
}

// Clear empties both tiers.
func (t *TieredCache) Clear(ctx context.Context) {
	t.l1.Clear(ctx)
	t.l2.Clear(ctx)
}

// Close releases both tiers.
func (t *TieredCache) Close() error {
	_ = t.l1.Close()
	return t.l2.Close()
}
