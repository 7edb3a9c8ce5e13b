package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/repository/memory"
	"github.com/fastygo/gidoku/usecase/session"
)

// flakyStore fails deletes for keys containing a marker.
type flakyStore struct {
	*memory.Store
	mu      sync.Mutex
	deleted []string
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if strings.Contains(key, "broken") {
		return errors.New("store unavailable")
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, key)
	f.mu.Unlock()
	return f.Store.Delete(ctx, key)
}

func TestStore_CreateThenGet(t *testing.T) {
	store := session.New(memory.New(), 0, nil)
	ctx := context.Background()

	for _, userID := range []string{"user-1", "user-2", "0b6c7a3e-1111-4c1a-9a55-0f5c2b0e7e10"} {
		created, err := store.Create(ctx, userID, 0)
		require.NoError(t, err)
		assert.Equal(t, session.DefaultTTL, created.TTL())

		got, ok, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, userID, got)
	}
}

func TestStore_CreateIssuesDistinctIDs(t *testing.T) {
	store := session.New(memory.New(), 0, nil)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		created, err := store.Create(context.Background(), "user-1", time.Minute)
		require.NoError(t, err)
		_, dup := seen[created.ID]
		require.False(t, dup)
		seen[created.ID] = struct{}{}
	}
}

func TestStore_DeleteThenGet(t *testing.T) {
	store := session.New(memory.New(), 0, nil)
	ctx := context.Background()

	created, err := store.Create(ctx, "user-1", 0)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, created.ID))

	_, ok, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// idempotent
	assert.NoError(t, store.Delete(ctx, created.ID))
	assert.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestStore_ValidateUnknownSession(t *testing.T) {
	store := session.New(memory.New(), 0, nil)

	_, err := store.Validate(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnauthorized))
	assert.Equal(t, "Invalid or expired session", err.Error())
}

func TestStore_ExpiredSessionNeverResolves(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	kv := memory.NewWithClock(func() time.Time { return now })
	store := session.New(kv, time.Hour, nil)
	ctx := context.Background()

	created, err := store.Create(ctx, "user-1", 0)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = store.Validate(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = store.Refresh(ctx, created.ID, 0)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStore_RefreshExtendsTTL(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	kv := memory.NewWithClock(func() time.Time { return now })
	store := session.New(kv, time.Hour, nil)
	ctx := context.Background()

	created, err := store.Create(ctx, "user-1", 0)
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	_, err = store.Refresh(ctx, created.ID, 0)
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	userID, err := store.Validate(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestStore_RefreshUnknownDoesNotCreate(t *testing.T) {
	kv := memory.New()
	store := session.New(kv, 0, nil)
	ctx := context.Background()

	_, err := store.Refresh(ctx, "ghost", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Equal(t, "Session not found", err.Error())

	_, ok, err := store.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, kv.Len())
}

func TestStore_Regenerate(t *testing.T) {
	store := session.New(memory.New(), 0, nil)
	ctx := context.Background()

	old, err := store.Create(ctx, "user-1", 0)
	require.NoError(t, err)

	fresh, err := store.Regenerate(ctx, old.ID, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, fresh.ID)

	_, ok, err := store.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	userID, ok, err := store.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
}

func TestStore_RegenerateKeepsOnlyOldSessionWhenDeleteFails(t *testing.T) {
	kv := &flakyStore{Store: memory.New()}
	store := session.New(kv, 0, nil)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "session:broken-old", []byte("user-1"), time.Hour))

	fresh, err := store.Regenerate(ctx, "broken-old", "user-1")
	require.Error(t, err)
	assert.Nil(t, fresh)

	assert.Equal(t, 1, kv.Len())
	userID, ok, err := store.Get(ctx, "broken-old")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", userID)
	require.Len(t, kv.deleted, 1)
}

func TestStore_DeleteAllContinuesPastFailures(t *testing.T) {
	kv := &flakyStore{Store: memory.New()}
	store := session.New(kv, 0, nil)
	ctx := context.Background()

	first, err := store.Create(ctx, "user-1", 0)
	require.NoError(t, err)
	second, err := store.Create(ctx, "user-1", 0)
	require.NoError(t, err)

	err = store.DeleteAll(ctx, []string{first.ID, "broken-id", second.ID})
	assert.Error(t, err)

	for _, id := range []string{first.ID, second.ID} {
		_, ok, getErr := store.Get(ctx, id)
		require.NoError(t, getErr)
		assert.False(t, ok)
	}
	assert.Len(t, kv.deleted, 2)
}
