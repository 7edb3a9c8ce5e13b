package auth_test

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/repository/memory"
	"github.com/fastygo/gidoku/repository/sqlite"
	"github.com/fastygo/gidoku/usecase/auth"
	"github.com/fastygo/gidoku/usecase/session"
)

type stubOAuth struct {
	profile  *domain.OAuthUser
	tokenErr error
	userErr  error
}

func (s *stubOAuth) AuthURL(provider domain.Provider, state string) (string, error) {
	if _, err := domain.ParseProvider(string(provider)); err != nil {
		return "", err
	}
	return "https://provider.test/" + string(provider) + "?state=" + state, nil
}

func (s *stubOAuth) AccessToken(_ context.Context, _ domain.Provider, code string) (string, error) {
	if s.tokenErr != nil {
		return "", s.tokenErr
	}
	return "token-" + code, nil
}

func (s *stubOAuth) User(context.Context, domain.Provider, string) (*domain.OAuthUser, error) {
	if s.userErr != nil {
		return nil, s.userErr
	}
	copied := *s.profile
	return &copied, nil
}

type fixture struct {
	kv       *memory.Store
	users    *sqlite.UserRepository
	sessions *session.Store
	oauth    *stubOAuth
	uc       *auth.UseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = users.Close() })

	f := &fixture{
		kv:    memory.New(),
		users: users,
		oauth: &stubOAuth{profile: &domain.OAuthUser{
			Provider:   domain.ProviderGitHub,
			ProviderID: "42",
			Email:      "octo@example.com",
			Name:       "Octo",
			Username:   "octocat",
		}},
	}
	f.sessions = session.New(f.kv, 0, nil)
	f.uc = auth.New(f.kv, f.oauth, users, f.sessions, 0, nil)
	return f
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	_, state, ok := strings.Cut(authURL, "state=")
	require.True(t, ok)
	return state
}

func TestBeginLoginStoresState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	authURL, err := f.uc.BeginLogin(ctx, domain.ProviderGitHub)
	require.NoError(t, err)
	state := stateFrom(t, authURL)

	stored, err := f.kv.Get(ctx, "oauth_state:"+state)
	require.NoError(t, err)
	assert.Equal(t, "github", string(stored))
}

func TestConsumeState(t *testing.T) {
	ctx := context.Background()

	t.Run("matching provider", func(t *testing.T) {
		f := newFixture(t)
		authURL, err := f.uc.BeginLogin(ctx, domain.ProviderGoogle)
		require.NoError(t, err)
		state := stateFrom(t, authURL)

		require.NoError(t, f.uc.ConsumeState(ctx, domain.ProviderGoogle, state))
		assert.ErrorIs(t, f.uc.ConsumeState(ctx, domain.ProviderGoogle, state), domain.ErrInvalidState, "state must be single use")
	})

	t.Run("other provider consumes the entry", func(t *testing.T) {
		f := newFixture(t)
		authURL, err := f.uc.BeginLogin(ctx, domain.ProviderGitHub)
		require.NoError(t, err)
		state := stateFrom(t, authURL)

		err = f.uc.ConsumeState(ctx, domain.ProviderGoogle, state)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalidState))
		assert.Equal(t, 0, f.kv.Len())

		err = f.uc.ConsumeState(ctx, domain.ProviderGitHub, state)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("unknown and empty state", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.uc.ConsumeState(ctx, domain.ProviderGitHub, "forged"), domain.ErrInvalidState)
		assert.ErrorIs(t, f.uc.ConsumeState(ctx, domain.ProviderGitHub, ""), domain.ErrInvalidState)
	})
}

func TestCompleteLogin_CreatesThenReusesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, sess, err := f.uc.CompleteLogin(ctx, domain.ProviderGitHub, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Username)
	assert.Equal(t, "octo@example.com", user.Email)

	userID, ok, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user.ID, userID)

	again, second, err := f.uc.CompleteLogin(ctx, domain.ProviderGitHub, "code-2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.NotEqual(t, sess.ID, second.ID)
}

func TestCompleteLogin_ProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.oauth.tokenErr = domain.NewExternalAPIError("GitHub", "Failed to get GitHub access token", errors.New("timeout"))

	_, _, err := f.uc.CompleteLogin(context.Background(), domain.ProviderGitHub, "code")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeExternalAPI))
	assert.Equal(t, 0, f.kv.Len(), "no session on failure")
}

func TestUniqueUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := func(username, providerID string) {
		require.NoError(t, f.users.Create(ctx, &domain.User{
			Username: username, Email: username + "@example.com", Name: username,
			Provider: domain.ProviderGitHub, ProviderID: providerID,
		}))
	}

	got, err := f.uc.UniqueUsername(ctx, "jane.doe+books")
	require.NoError(t, err)
	assert.Equal(t, "janedoebooks", got)

	got, err = f.uc.UniqueUsername(ctx, strings.Repeat("x", 40))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 20), got)

	got, err = f.uc.UniqueUsername(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "user1", got, "bare fallback is reserved")

	seed("reader", "1")
	seed("reader1", "2")
	got, err = f.uc.UniqueUsername(ctx, "reader")
	require.NoError(t, err)
	assert.Equal(t, "reader2", got)
}

func TestCompleteLogin_GoogleShortLocalPart(t *testing.T) {
	f := newFixture(t)
	f.oauth.profile = &domain.OAuthUser{
		Provider:   domain.ProviderGoogle,
		ProviderID: "42",
		Email:      "a@b.com",
		Name:       "A",
		Username:   "a",
	}

	user, _, err := f.uc.CompleteLogin(context.Background(), domain.ProviderGoogle, "code")
	require.NoError(t, err)
	assert.Equal(t, "user1", user.Username)
	assert.Equal(t, domain.ProviderGoogle, user.Provider)
	_, convErr := strconv.Atoi(strings.TrimPrefix(user.Username, "user"))
	assert.NoError(t, convErr)
}
