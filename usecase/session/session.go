package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/repository"
)

// DefaultTTL is the lifetime of a session and of its cookie.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "session:"

// Store maps opaque session ids to user ids. The key/value store owns expiry.
type Store struct {
	kv     repository.KeyValueStore
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func New(kv repository.KeyValueStore, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:     kv,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// TTL returns the default session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create issues a new random session id for userID. A zero ttl uses the default.
func (s *Store) Create(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user id is required", nil)
	}
	ttl = s.ttlOrDefault(ttl)

	now := s.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.kv.Set(ctx, key(session.ID), []byte(userID), ttl); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns the user id bound to sessionID. A missing or expired session
// yields ok=false and no error.
func (s *Store) Get(ctx context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, nil
	}
	value, err := s.kv.Get(ctx, key(sessionID))
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if len(value) == 0 {
		return "", false, nil
	}
	return string(value), true, nil
}

// Validate is Get for trust boundaries: a miss becomes an UnauthorizedError.
func (s *Store) Validate(ctx context.Context, sessionID string) (string, error) {
	userID, ok, err := s.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrInvalidSession
	}
	return userID, nil
}

// Refresh re-stores an existing session with a renewed TTL. Unknown ids fail
// with ErrSessionNotFound and are never created.
func (s *Store) Refresh(ctx context.Context, sessionID string, ttl time.Duration) (*domain.Session, error) {
	userID, ok, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	ttl = s.ttlOrDefault(ttl)
	if err := s.kv.Set(ctx, key(sessionID), []byte(userID), ttl); err != nil {
		return nil, err
	}
	now := s.now()
	return &domain.Session{ID: sessionID, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.kv.Delete(ctx, key(sessionID))
}

// Regenerate issues a new session for userID and then invalidates oldSessionID.
// Both ids validate until the second store call lands; the store offers no
// transactions to close that window. When the old id cannot be removed the new
// one is removed again so only the old session stays live.
func (s *Store) Regenerate(ctx context.Context, oldSessionID, userID string) (*domain.Session, error) {
	session, err := s.Create(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	if err := s.Delete(ctx, oldSessionID); err != nil {
		if cleanupErr := s.Delete(ctx, session.ID); cleanupErr != nil {
			s.logger.Warn("orphaned regenerated session", zap.String("user_id", userID), zap.Error(cleanupErr))
		}
		return nil, err
	}
	return session, nil
}

// DeleteAll removes every id concurrently. A failed deletion is logged and
// does not stop the others; the joined error is returned.
func (s *Store) DeleteAll(ctx context.Context, sessionIDs []string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, id := range sessionIDs {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.Delete(ctx, id); err != nil {
				s.logger.Warn("session delete failed", zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *Store) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.ttl
	}
	return ttl
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}
