package auth

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/repository"
)

// DefaultStateTTL bounds how long a login may stay at the provider.
const DefaultStateTTL = 10 * time.Minute

const (
	statePrefix         = "oauth_state:"
	maxUsernameBase     = 20
	maxUsernameLength   = 30
	maxUsernameAttempts = 1000
	maxCreateAttempts   = 3
)

var usernameStrip = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// OAuthClient is the provider facing half of the login flow.
type OAuthClient interface {
	AuthURL(provider domain.Provider, state string) (string, error)
	AccessToken(ctx context.Context, provider domain.Provider, code string) (string, error)
	User(ctx context.Context, provider domain.Provider, token string) (*domain.OAuthUser, error)
}

// SessionCreator issues sessions after a successful login.
type SessionCreator interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, error)
}

// UseCase drives the OAuth2 authorization code login.
type UseCase struct {
	kv       repository.KeyValueStore
	oauth    OAuthClient
	users    repository.UserRepository
	sessions SessionCreator
	stateTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func New(
	kv repository.KeyValueStore,
	oauth OAuthClient,
	users repository.UserRepository,
	sessions SessionCreator,
	stateTTL time.Duration,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stateTTL <= 0 {
		stateTTL = DefaultStateTTL
	}
	return &UseCase{
		kv:       kv,
		oauth:    oauth,
		users:    users,
		sessions: sessions,
		stateTTL: stateTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// BeginLogin stores a one-time state bound to provider and returns the
// provider authorization URL carrying it.
func (uc *UseCase) BeginLogin(ctx context.Context, provider domain.Provider) (string, error) {
	state := uuid.NewString()
	authURL, err := uc.oauth.AuthURL(provider, state)
	if err != nil {
		return "", err
	}
	if err := uc.kv.Set(ctx, statePrefix+state, []byte(provider), uc.stateTTL); err != nil {
		return "", err
	}
	return authURL, nil
}

// ConsumeState checks that state was issued for provider. The stored entry is
// deleted whatever the outcome, so a state can back at most one callback.
func (uc *UseCase) ConsumeState(ctx context.Context, provider domain.Provider, state string) error {
	if state == "" {
		return domain.ErrInvalidState
	}
	key := statePrefix + state

	stored, err := uc.kv.Get(ctx, key)
	if delErr := uc.kv.Delete(ctx, key); delErr != nil {
		uc.logger.Warn("oauth state delete failed", zap.Error(delErr))
	}
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return domain.ErrInvalidState
		}
		return err
	}
	if domain.Provider(stored) != provider {
		uc.logger.Warn("oauth state provider mismatch",
			zap.String("expected", string(stored)),
			zap.String("got", string(provider)))
		return domain.ErrInvalidState
	}
	return nil
}

// CompleteLogin exchanges code, upserts the account and opens a session.
func (uc *UseCase) CompleteLogin(ctx context.Context, provider domain.Provider, code string) (*domain.User, *domain.Session, error) {
	token, err := uc.oauth.AccessToken(ctx, provider, code)
	if err != nil {
		return nil, nil, err
	}
	profile, err := uc.oauth.User(ctx, provider, token)
	if err != nil {
		return nil, nil, err
	}
	user, err := uc.upsertUser(ctx, profile)
	if err != nil {
		return nil, nil, err
	}
	session, err := uc.sessions.Create(ctx, user.ID, 0)
	if err != nil {
		return nil, nil, err
	}
	uc.logger.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("provider", string(provider)))
	return user, session, nil
}

// upsertUser returns the account linked to the provider identity, creating it
// on first login. Existing accounts are not overwritten with provider data.
func (uc *UseCase) upsertUser(ctx context.Context, profile *domain.OAuthUser) (*domain.User, error) {
	existing, err := uc.users.FindByProvider(ctx, profile.Provider, profile.ProviderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		username, err := uc.UniqueUsername(ctx, profile.Username)
		if err != nil {
			return nil, err
		}
		user := &domain.User{
			ID:         uuid.NewString(),
			Username:   username,
			Email:      profile.Email,
			Name:       profile.Name,
			Bio:        profile.Bio,
			AvatarURL:  profile.AvatarURL,
			Provider:   profile.Provider,
			ProviderID: profile.ProviderID,
		}
		lastErr = uc.users.Create(ctx, user)
		if lastErr == nil {
			uc.logger.Info("user created", zap.String("user_id", user.ID), zap.String("username", username))
			return user, nil
		}
		if !domain.IsDomainError(lastErr, domain.ErrCodeConflict) {
			return nil, lastErr
		}
		// A concurrent first login for the same identity wins the insert.
		if existing, err := uc.users.FindByProvider(ctx, profile.Provider, profile.ProviderID); err == nil {
			return existing, nil
		}
	}
	return nil, lastErr
}

// UniqueUsername derives a free username from base: invalid characters are
// stripped, the result is cut to 20 characters and "user" replaces anything
// shorter than 3. Numeric suffixes are tried before falling back to a timestamp.
func (uc *UseCase) UniqueUsername(ctx context.Context, base string) (string, error) {
	username := usernameStrip.ReplaceAllString(base, "")
	if len(username) > maxUsernameBase {
		username = username[:maxUsernameBase]
	}
	if len(username) < 3 {
		username = "user"
	}

	candidate := username
	for counter := 1; counter <= maxUsernameAttempts; counter++ {
		free, err := uc.usernameFree(ctx, candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
		candidate = username + strconv.Itoa(counter)
	}
	suffix := strconv.FormatInt(uc.now().UnixMilli(), 10)
	if len(username)+len(suffix) > maxUsernameLength {
		username = username[:maxUsernameLength-len(suffix)]
	}
	return username + suffix, nil
}

func (uc *UseCase) usernameFree(ctx context.Context, username string) (bool, error) {
	if domain.IsReservedUsername(username) {
		return false, nil
	}
	taken, err := uc.users.IsUsernameTaken(ctx, username, "")
	if err != nil {
		return false, err
	}
	return !taken, nil
}
