package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/repository"
)

// CacheInvalidator drops cached copies of a user record.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// SessionRotator covers the session operations profile changes trigger.
type SessionRotator interface {
	Regenerate(ctx context.Context, oldSessionID, userID string) (*domain.Session, error)
	DeleteAll(ctx context.Context, sessionIDs []string) error
}

// Availability is the answer to a username check.
type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type UseCase struct {
	users    repository.UserRepository
	cache    CacheInvalidator
	sessions SessionRotator
	logger   *zap.Logger
}

func New(users repository.UserRepository, cache CacheInvalidator, sessions SessionRotator, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		cache:    cache,
		sessions: sessions,
		logger:   logger,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

// PublicProfile looks a user up by username.
func (uc *UseCase) PublicProfile(ctx context.Context, username string) (*domain.User, error) {
	return uc.users.FindByUsername(ctx, username)
}

// UpdateProfile applies update and invalidates the cached record. When the
// username changes and sessionID is set, the session is rotated and the new
// one returned; otherwise the returned session is nil.
func (uc *UseCase) UpdateProfile(ctx context.Context, userID, sessionID string, update domain.UserUpdate) (*domain.User, *domain.Session, error) {
	current, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	usernameChanged := false
	if update.Username != nil && *update.Username != current.Username {
		if domain.IsReservedUsername(*update.Username) {
			return nil, nil, domain.NewValidationError("Username is reserved", map[string]string{"username": *update.Username})
		}
		taken, err := uc.users.IsUsernameTaken(ctx, *update.Username, userID)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return nil, nil, domain.ErrUsernameTaken
		}
		usernameChanged = true
	}

	updated, err := uc.users.Update(ctx, userID, update)
	if err != nil {
		return nil, nil, err
	}
	uc.cache.Invalidate(ctx, userID)

	if !usernameChanged || sessionID == "" {
		return updated, nil, nil
	}
	rotated, err := uc.sessions.Regenerate(ctx, sessionID, userID)
	if err != nil {
		// The profile write already landed; keep the old session.
		uc.logger.Warn("session rotation after username change failed", zap.String("user_id", userID), zap.Error(err))
		return updated, nil, nil
	}
	uc.logger.Info("username changed", zap.String("user_id", userID), zap.String("username", updated.Username))
	return updated, rotated, nil
}

// DeleteAccount removes the user, its cached record and the given sessions.
// Session cleanup is best effort once the user row is gone.
func (uc *UseCase) DeleteAccount(ctx context.Context, userID string, sessionIDs []string) error {
	if err := uc.users.Delete(ctx, userID); err != nil {
		return err
	}
	uc.cache.Invalidate(ctx, userID)
	if len(sessionIDs) > 0 {
		if err := uc.sessions.DeleteAll(ctx, sessionIDs); err != nil {
			uc.logger.Warn("session cleanup after account deletion incomplete", zap.String("user_id", userID), zap.Error(err))
		}
	}
	uc.logger.Info("account deleted", zap.String("user_id", userID))
	return nil
}

// CheckUsername reports whether username can be claimed.
func (uc *UseCase) CheckUsername(ctx context.Context, username string) (Availability, error) {
	if domain.IsReservedUsername(username) {
		return Availability{Available: false, Reason: "reserved"}, nil
	}
	taken, err := uc.users.IsUsernameTaken(ctx, username, "")
	if err != nil {
		return Availability{}, err
	}
	if taken {
		return Availability{Available: false, Reason: "taken"}, nil
	}
	return Availability{Available: true}, nil
}
