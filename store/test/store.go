package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Drgblack/timemeaning/internal/profile"
	"github.com/Drgblack/timemeaning/store"
	"github.com/Drgblack/timemeaning/store/db"
)

// getDriverFromEnv returns DRIVER, defaulting to sqlite.
func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}

// NewTestingProfile returns a dev profile for driver with a throwaway database.
func NewTestingProfile(t *testing.T, driver string) *profile.Profile {
	t.Helper()
	p := &profile.Profile{
		Mode:     "dev",
		Driver:   driver,
		Data:     t.TempDir(),
		ShareTTL: profile.DefaultShareTTL,
	}
	switch driver {
	case "sqlite":
		p.DSN = filepath.Join(p.Data, "timemeaning_test.db")
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	}
	return p
}

// NewTestingStore opens and migrates a store for the DRIVER under test.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	return NewTestingStoreWithDriver(ctx, t, getDriverFromEnv())
}

func NewTestingStoreWithDriver(ctx context.Context, t *testing.T, driver string) *store.Store {
	t.Helper()
	p := NewTestingProfile(t, driver)
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	s := store.New(dbDriver, p, nil)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
