package test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drgblack/timemeaning/store"
)

func TestSharedResultStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	hash := store.ContentHash("3pm EST on Friday", "2025-03-01T12:00:00Z")
	created, err := ts.CreateSharedResult(ctx, &store.SharedResult{
		ContentHash: hash,
		Payload:     []byte(`{"confidence":"high"}`),
		Markdown:    "# Resolved time",
	})
	require.NoError(t, err)
	assert.Equal(t, store.ShareID(hash), created.ID)
	assert.Greater(t, created.ExpiresTs, created.CreatedTs)

	got, err := ts.GetSharedResult(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, hash, got.ContentHash)
	assert.JSONEq(t, `{"confidence":"high"}`, string(got.Payload))
	assert.Equal(t, "# Resolved time", got.Markdown)

	_, err = ts.GetSharedResult(ctx, "does-not-exist")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSharedResultStore_SameContentSameID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	hash := store.ContentHash("noon PST", "")
	first, err := ts.CreateSharedResult(ctx, &store.SharedResult{ContentHash: hash, Payload: []byte(`{"v":1}`)})
	require.NoError(t, err)
	second, err := ts.CreateSharedResult(ctx, &store.SharedResult{ContentHash: hash, Payload: []byte(`{"v":2}`)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := ts.GetDriver().ListSharedResults(ctx, &store.FindSharedResult{ContentHash: &hash})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, `{"v":2}`, string(list[0].Payload))
}

func TestSharedResultStore_ExpiredPurgedOnRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ts.WithClock(func() time.Time { return now })

	hash := store.ContentHash("tomorrow at 9am JST", "")
	created, err := ts.CreateSharedResult(ctx, &store.SharedResult{
		ContentHash: hash,
		Payload:     []byte(`{}`),
		ExpiresTs:   now.Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	_, err = ts.GetSharedResult(ctx, created.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = ts.GetSharedResult(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := ts.GetDriver().ListSharedResults(ctx, &store.FindSharedResult{ID: &created.ID})
	require.NoError(t, err)
	assert.Empty(t, list, "expired row is deleted on read")
}

func TestSharedResultStore_PurgeExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ts.WithClock(func() time.Time { return now })

	for i, ttl := range []time.Duration{time.Minute, time.Hour, 48 * time.Hour} {
		_, err := ts.CreateSharedResult(ctx, &store.SharedResult{
			ContentHash: store.ContentHash("input", time.Duration(i).String()),
			Payload:     []byte(`{}`),
			ExpiresTs:   now.Add(ttl).Unix(),
		})
		require.NoError(t, err)
	}

	now = now.Add(2 * time.Hour)
	purged, err := ts.PurgeExpiredSharedResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	list, err := ts.GetDriver().ListSharedResults(ctx, &store.FindSharedResult{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSharedResultStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()
	ts := NewTestingStoreWithDriver(ctx, t, "postgres")

	hash := store.ContentHash("3pm EST on Friday", "2025-03-01T12:00:00Z")
	created, err := ts.CreateSharedResult(ctx, &store.SharedResult{ContentHash: hash, Payload: []byte(`{"a":1}`)})
	require.NoError(t, err)

	got, err := ts.GetSharedResult(ctx, created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got.Payload))
}
