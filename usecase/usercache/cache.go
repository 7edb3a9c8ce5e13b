package usercache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/repository"
)

// DefaultTTL bounds how stale a cached profile may be.
const DefaultTTL = 300 * time.Second

const keyPrefix = "user_cache:"

// Cache keeps serialized user records in the key/value store. It is an
// optimization only: every failure degrades to a miss and is never returned.
type Cache struct {
	kv     repository.KeyValueStore
	ttl    time.Duration
	logger *zap.Logger
}

func New(kv repository.KeyValueStore, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{kv: kv, ttl: ttl, logger: logger}
}

// Get returns the cached user. Store errors and undecodable entries count as misses.
func (c *Cache) Get(ctx context.Context, userID string) (*domain.User, bool) {
	if userID == "" {
		return nil, false
	}
	raw, err := c.kv.Get(ctx, key(userID))
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			c.logger.Warn("user cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, false
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		c.logger.Warn("user cache entry corrupt", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}
	return &user, true
}

// Set stores user under its id.
func (c *Cache) Set(ctx context.Context, user *domain.User) {
	if user == nil || user.ID == "" {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		c.logger.Warn("user cache encode failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	if err := c.kv.Set(ctx, key(user.ID), raw, c.ttl); err != nil {
		c.logger.Warn("user cache write failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// Invalidate drops the cached entry so the next read goes to the repository.
func (c *Cache) Invalidate(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if err := c.kv.Delete(ctx, key(userID)); err != nil {
		c.logger.Warn("user cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func key(userID string) string {
	return keyPrefix + userID
}
