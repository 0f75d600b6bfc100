package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Drgblack/timemeaning/internal/profile"
	"github.com/Drgblack/timemeaning/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
	now     func() time.Time

	shareCache *cache.TieredCache
}

// New creates a new instance of Store. A nil shareCache gets an L1-only cache.
func New(driver Driver, profile *profile.Profile, shareCache *cache.TieredCache) *Store {
	if shareCache == nil {
		shareCache = cache.NewTieredCacheWithL2(cache.DefaultTieredConfig(), nil)
	}
	return &Store{
		driver:     driver,
		profile:    profile,
		now:        time.Now,
		shareCache: shareCache,
	}
}

// WithClock replaces the store clock, for expiry tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.GetDB().PingContext(ctx)
}

func (s *Store) Close() error {
	_ = s.shareCache.Close()
	return s.driver.Close()
}

func encodeSharedResult(r *SharedResult) ([]byte, error) {
	return json.Marshal(r)
}

func decodeSharedResult(data []byte) (*SharedResult, error) {
	r := &SharedResult{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}
