package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapL2 struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMapL2() *mapL2 {
	return &mapL2{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mapL2) Set(ctx context.Context, key string, value []byte) {
	m.SetWithTTL(ctx, key, value, 0)
}

func (m *mapL2) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
}

func (m *mapL2) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mapL2) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *mapL2) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = map[string][]byte{}
}

func (m *mapL2) Close() error { return nil }

func TestCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 10})

	c.Set(ctx, "a", []byte("1"))
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	c.Delete(ctx, "a")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestCache_PerEntryTTL(t *testing.T) {
	ctx := context.Background()
	c := New(Config{DefaultTTL: time.Minute})

	c.SetWithTTL(ctx, "short", []byte("x"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)

	c.SetWithTTL(ctx, "never", []byte("x"), 0)
	_, ok = c.Get(ctx, "never")
	assert.False(t, ok)
}

func TestTieredCache_PromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l2 := newMapL2()
	l2.Set(ctx, "k", []byte("from-l2"))
	tc := NewTieredCacheWithL2(nil, l2)

	v, ok, err := tc.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("from-l2"), v)

	l2.Clear(ctx)
	v, ok, err = tc.Get(ctx, "k", nil)
	require.NoError(t, err)
	require.True(t, ok, "promoted into L1")
	assert.Equal(t, []byte("from-l2"), v)
}

func TestTieredCache_Fetcher(t *testing.T) {
	ctx := context.Background()
	l2 := newMapL2()
	tc := NewTieredCacheWithL2(nil, l2)

	calls := 0
	fetch := func(_ context.Context, key string) ([]byte, bool, error) {
		calls++
		if key == "missing" {
			return nil, false, nil
		}
		if key == "broken" {
			return nil, false, errors.New("db down")
		}
		return []byte("db:" + key), true, nil
	}

	v, ok, err := tc.Get(ctx, "row", fetch)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("db:row"), v)
	_, inL2 := l2.Get(ctx, "row")
	assert.True(t, inL2)

	_, _, _ = tc.Get(ctx, "row", fetch)
	assert.Equal(t, 1, calls)

	_, ok, err = tc.Get(ctx, "missing", fetch)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = tc.Get(ctx, "broken", fetch)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestTieredCache_SetCapsL2TTL(t *testing.T) {
	ctx := context.Background()
	l2 := newMapL2()
	tc := NewTieredCacheWithL2(&TieredCacheConfig{L1TTL: time.Minute, L2TTL: time.Minute}, l2)

	tc.Set(ctx, "k", []byte("v"), time.Hour)
	assert.Equal(t, time.Minute, l2.ttls["k"])

	tc.Delete(ctx, "k")
	_, ok, _ := tc.Get(ctx, "k", nil)
	assert.False(t, ok)
}
