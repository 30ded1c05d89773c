package projection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SetAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	err := store.Set(ctx, "k1", []byte("hello"), 0)
	require.NoError(t, err)

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), val)
}

func TestInMemoryStore_KeyNotFound(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = store.Set(ctx, "k1", []byte("data"), 0)
	_ = store.Delete(ctx, "k1")

	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestInMemoryStore_TTLExpiry(t *testing.T) {
	store := NewInMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Set(ctx, "k1", []byte("data"), time.Second)
	_, err := store.Get(ctx, "k1")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrMiss)
}

type overview struct {
	Users int `json:"users"`
}

func newTestCache(store Store) *Cache {
	return NewCache(store, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestReadThrough_LoadsOnceThenServesCached(t *testing.T) {
	c := newTestCache(NewInMemoryStore())
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (*overview, error) {
		calls++
		return &overview{Users: calls}, nil
	}

	first, err := ReadThrough(ctx, c, KeyAdminOverview, load)
	require.NoError(t, err)
	second, err := ReadThrough(ctx, c, KeyAdminOverview, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestReadThrough_InvalidateReloads(t *testing.T) {
	c := newTestCache(NewInMemoryStore())
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (*overview, error) {
		calls++
		return &overview{Users: calls}, nil
	}

	_, _ = ReadThrough(ctx, c, KeyAdminOverview, load)
	c.Invalidate(ctx, KeyAdminOverview)
	got, err := ReadThrough(ctx, c, KeyAdminOverview, load)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Users)
}

func TestReadThrough_LoadErrorNotCached(t *testing.T) {
	store := NewInMemoryStore()
	c := newTestCache(store)
	ctx := context.Background()
	boom := errors.New("db down")

	_, err := ReadThrough(ctx, c, KeyAdminOverview, func(context.Context) (*overview, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, KeyAdminOverview)
	assert.ErrorIs(t, err, ErrMiss)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenStore) Delete(context.Context, string) error { return errors.New("connection refused") }

func TestReadThrough_StoreFailureFallsBackToLoad(t *testing.T) {
	c := newTestCache(brokenStore{})

	got, err := ReadThrough(context.Background(), c, KeyAdminOverview, func(context.Context) (*overview, error) {
		return &overview{Users: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Users)
}
