package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/repository/memory"
)

func TestStore_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(59 * time.Second)
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
	assert.Equal(t, 1, store.Len())

	now = now.Add(time.Second)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	original := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", original, time.Minute))
	original[0] = 'x'

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(value))
}

func TestStore_DeleteMissingKey(t *testing.T) {
	store := memory.New()
	assert.NoError(t, store.Delete(context.Background(), "missing"))
}

func TestStore_SweepDropsUnreadExpiredKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewWithClock(func() time.Time { return now })
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		require.NoError(t, store.Set(ctx, "ratelimit:api:"+ip, []byte(`{"count":1}`), time.Minute))
	}
	require.NoError(t, store.Set(ctx, "session:live", []byte("user-1"), time.Hour))

	removed, err := store.Sweep(now.Add(2 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 1, store.Size())

	removed, err = store.Sweep(now.Add(2 * time.Minute))
	require.NoError(t, err)
	assert.Zero(t, removed)
}
