package db

import (
	"github.com/pkg/errors"

	"github.com/Drgblack/timemeaning/internal/profile"
	"github.com/Drgblack/timemeaning/store"
	"github.com/Drgblack/timemeaning/store/db/postgres"
	"github.com/Drgblack/timemeaning/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile. SQLite backs a single
// instance; PostgreSQL lets several instances share one share store.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
