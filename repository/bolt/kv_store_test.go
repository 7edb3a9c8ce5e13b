package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/gidoku/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "kv.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "session:1", []byte("user-1"), time.Hour))

	value, err := store.Get(ctx, "session:1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", string(value))

	require.NoError(t, store.Delete(ctx, "session:1"))
	_, err = store.Get(ctx, "session:1")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStore_ExpiredRecordsAreHiddenAndSwept(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "ratelimit:auth:1.2.3.4", []byte(`{"count":1}`), time.Minute))
	require.NoError(t, store.Set(ctx, "session:live", []byte("user-1"), time.Hour))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, "ratelimit:auth:1.2.3.4")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	purged, err := store.Sweep(now)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}
