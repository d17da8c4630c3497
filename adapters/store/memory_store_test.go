package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/layer-3/portal/adapters/store"
	"github.com/layer-3/portal/core"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Set(ctx, "request:1", "snapshot", 0))
	val, err := s.Get(ctx, "request:1")
	require.NoError(t, err)
	require.Equal(t, "snapshot", val)

	require.NoError(t, s.Set(ctx, "request:1", "updated", time.Minute))
	val, err = s.Get(ctx, "request:1")
	require.NoError(t, err)
	require.Equal(t, "updated", val)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Set(ctx, "short", "v", 20*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := s.Get(ctx, "short")
		return err == core.ErrNotFound
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryStoreRewriteOutlivesCleanup(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Set(ctx, "key", "old", 20*time.Millisecond))
	require.NoError(t, s.Set(ctx, "key", "new", time.Hour))

	time.Sleep(60 * time.Millisecond)
	val, err := s.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, "new", val)
}
