package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)

	// SharedResult model related methods.
	// UpsertSharedResult keeps the existing row for a content hash and
	// refreshes its payload and expiry.
	UpsertSharedResult(ctx context.Context, upsert *SharedResult) (*SharedResult, error)
	ListSharedResults(ctx context.Context, find *FindSharedResult) ([]*SharedResult, error)
	DeleteSharedResult(ctx context.Context, delete *DeleteSharedResult) (int64, error)
}
