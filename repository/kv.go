package repository

import (
	"context"
	"time"
)

// KeyValueStore is the TTL-capable, eventually consistent store backing
// sessions, OAuth state, the user cache and rate-limit counters.
// Get returns domain.ErrKeyNotFound for absent or expired keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
