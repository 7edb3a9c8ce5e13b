package redis

import (
	"context"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/repository"
)

type kvStore struct {
	client redislib.UniversalClient
}

// NewKeyValueStore creates a Redis-backed KeyValueStore. Keys are stored
// verbatim so the namespaces (session:, oauth_state:, ...) stay visible in redis-cli.
func NewKeyValueStore(client redislib.UniversalClient) repository.KeyValueStore {
	return &kvStore{client: client}
}

func (s *kvStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrKeyNotFound
		}
		return nil, err
	}
	return result, nil
}

func (s *kvStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return domain.NewValidationError("ttl must be positive", map[string]string{"key": key})
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *kvStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
