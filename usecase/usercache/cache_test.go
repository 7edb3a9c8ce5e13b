package usercache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/repository/memory"
	"github.com/fastygo/gidoku/usecase/usercache"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func sampleUser() *domain.User {
	bio := "reads a lot"
	return &domain.User{
		ID:         "user-1",
		Username:   "reader",
		Email:      "reader@example.com",
		Name:       "Reader",
		Bio:        &bio,
		Provider:   domain.ProviderGitHub,
		ProviderID: "42",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCache_SetGetInvalidate(t *testing.T) {
	cache := usercache.New(memory.New(), 0, nil)
	ctx := context.Background()
	user := sampleUser()

	_, ok := cache.Get(ctx, user.ID)
	assert.False(t, ok)

	cache.Set(ctx, user)
	got, ok := cache.Get(ctx, user.ID)
	require.True(t, ok)
	assert.Equal(t, user, got)

	cache.Invalidate(ctx, user.ID)
	_, ok = cache.Get(ctx, user.ID)
	assert.False(t, ok)
}

func TestCache_EntriesExpire(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := usercache.New(memory.NewWithClock(func() time.Time { return now }), 0, nil)
	ctx := context.Background()

	cache.Set(ctx, sampleUser())
	now = now.Add(usercache.DefaultTTL - time.Second)
	_, ok := cache.Get(ctx, "user-1")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = cache.Get(ctx, "user-1")
	assert.False(t, ok)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	kv := memory.New()
	cache := usercache.New(kv, 0, nil)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "user_cache:user-1", []byte("{not json"), time.Minute))
	_, ok := cache.Get(ctx, "user-1")
	assert.False(t, ok)
}

func TestCache_StoreFailuresAreSwallowed(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cache := usercache.New(brokenStore{}, 0, zap.New(core))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		cache.Set(ctx, sampleUser())
		cache.Invalidate(ctx, "user-1")
	})
	_, ok := cache.Get(ctx, "user-1")
	assert.False(t, ok)
	assert.Equal(t, 3, logs.Len())
}
