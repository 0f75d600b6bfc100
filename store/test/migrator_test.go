package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_FreshDatabaseIsStamped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	current, err := ts.GetCurrentSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", current)

	recorded, err := ts.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, current, recorded)
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	require.NoError(t, ts.Migrate(ctx))
	require.NoError(t, ts.Migrate(ctx))

	recorded, err := ts.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", recorded)
}

func TestMigrate_AppliesPendingMigrations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStoreWithDriver(ctx, t, "sqlite")

	_, err := ts.GetDriver().GetDB().ExecContext(ctx, "DROP INDEX idx_shared_result_expires_ts")
	require.NoError(t, err)
	_, err = ts.GetDriver().GetDB().ExecContext(ctx, "UPDATE system_setting SET value = '0.3.0' WHERE name = 'schema_version'")
	require.NoError(t, err)

	require.NoError(t, ts.Migrate(ctx))

	recorded, err := ts.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", recorded)

	var count int
	require.NoError(t, ts.GetDriver().GetDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_shared_result_expires_ts'").Scan(&count))
	assert.Equal(t, 1, count)
}
