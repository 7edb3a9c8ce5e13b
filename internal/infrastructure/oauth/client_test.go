package oauth_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/internal/infrastructure/oauth"
	"github.com/fastygo/gidoku/internal/infrastructure/oauth/oauthtest"
)

const appURL = "https://gidoku.test"

func newClient(t *testing.T) (*oauthtest.Server, *oauth.Client) {
	t.Helper()
	fake := oauthtest.New(t)
	return fake, oauth.NewClient(fake.Config(appURL), nil)
}

func assertExternal(t *testing.T, err error, source string) {
	t.Helper()
	require.Error(t, err)
	dErr, ok := domain.AsError(err)
	require.True(t, ok, "expected domain error, got %T", err)
	assert.Equal(t, domain.ErrCodeExternalAPI, dErr.Code)
	assert.Equal(t, source, dErr.Source)
}

func TestAuthURL(t *testing.T) {
	fake, client := newClient(t)

	t.Run("github", func(t *testing.T) {
		raw, err := client.AuthURL(domain.ProviderGitHub, "state-1")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "/login/oauth/authorize", u.Path)
		q := u.Query()
		assert.Equal(t, "gh-client", q.Get("client_id"))
		assert.Equal(t, appURL+"/auth/github/callback", q.Get("redirect_uri"))
		assert.Equal(t, "read:user user:email", q.Get("scope"))
		assert.Equal(t, "state-1", q.Get("state"))
	})

	t.Run("google", func(t *testing.T) {
		raw, err := client.AuthURL(domain.ProviderGoogle, "state-2")
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, fake.URL()+"/auth", u.Scheme+"://"+u.Host+u.Path)
		q := u.Query()
		assert.Equal(t, "google-client", q.Get("client_id"))
		assert.Equal(t, appURL+"/auth/google/callback", q.Get("redirect_uri"))
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Equal(t, "openid email profile", q.Get("scope"))
		assert.Equal(t, "offline", q.Get("access_type"))
		assert.Equal(t, "state-2", q.Get("state"))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := client.AuthURL(domain.Provider("gitlab"), "state")
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
	})
}

func TestAccessToken_EncodingPerProvider(t *testing.T) {
	fake, client := newClient(t)
	ctx := context.Background()

	token, err := client.AccessToken(ctx, domain.ProviderGitHub, "abc")
	require.NoError(t, err)
	assert.Equal(t, "gh_abc", token)

	token, err = client.AccessToken(ctx, domain.ProviderGoogle, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "google_xyz", token)

	exchanges := fake.Exchanges()
	require.Len(t, exchanges, 2)
	assert.Equal(t, "application/json", exchanges[0].ContentType)
	assert.Equal(t, "gh-client", exchanges[0].ClientID)
	assert.Equal(t, appURL+"/auth/github/callback", exchanges[0].RedirectURI)
	assert.Equal(t, "application/x-www-form-urlencoded", exchanges[1].ContentType)
	assert.Equal(t, "google-client", exchanges[1].ClientID)
	assert.Equal(t, appURL+"/auth/google/callback", exchanges[1].RedirectURI)
}

func TestAccessToken_Failures(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	_, err := client.AccessToken(ctx, domain.ProviderGitHub, oauthtest.BadCode)
	assertExternal(t, err, "GitHub")
	assert.Contains(t, err.Error(), "bad_verification_code")

	_, err = client.AccessToken(ctx, domain.ProviderGoogle, oauthtest.BadCode)
	assertExternal(t, err, "Google")
}

func TestAccessToken_Unreachable(t *testing.T) {
	client := oauth.NewClient(oauth.Config{
		AppURL: appURL,
		GitHub: oauth.GitHubConfig{OAuthBaseURL: "http://127.0.0.1:1"},
		Google: oauth.GoogleConfig{TokenURL: "http://127.0.0.1:1/token"},
	}, nil)

	_, err := client.AccessToken(context.Background(), domain.ProviderGitHub, "abc")
	assertExternal(t, err, "GitHub")
	_, err = client.AccessToken(context.Background(), domain.ProviderGoogle, "abc")
	assertExternal(t, err, "Google")
}

func TestGitHubUser(t *testing.T) {
	ctx := context.Background()

	t.Run("public email", func(t *testing.T) {
		_, client := newClient(t)
		user, err := client.User(ctx, domain.ProviderGitHub, "token")
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderGitHub, user.Provider)
		assert.Equal(t, "42", user.ProviderID)
		assert.Equal(t, "octocat@github.com", user.Email)
		assert.Equal(t, "The Octocat", user.Name)
		assert.Equal(t, "octocat", user.Username)
		require.NotNil(t, user.AvatarURL)
		assert.Equal(t, "https://avatars.example.com/42", *user.AvatarURL)
		assert.Nil(t, user.Bio)
	})

	t.Run("private email picks primary verified", func(t *testing.T) {
		fake, client := newClient(t)
		fake.SetGitHubProfile(map[string]interface{}{"id": 7, "login": "hidden", "name": nil, "email": nil})
		fake.SetGitHubEmails(http.StatusOK, []map[string]interface{}{
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "unverified@example.com", "primary": true, "verified": false},
			{"email": "main@example.com", "primary": true, "verified": true},
		})

		user, err := client.User(ctx, domain.ProviderGitHub, "token")
		require.NoError(t, err)
		assert.Equal(t, "main@example.com", user.Email)
		assert.Equal(t, "hidden", user.Name)
		assert.Nil(t, user.AvatarURL)
	})

	t.Run("private email falls back to first entry", func(t *testing.T) {
		fake, client := newClient(t)
		fake.SetGitHubProfile(map[string]interface{}{"id": 7, "login": "hidden", "email": nil})
		fake.SetGitHubEmails(http.StatusOK, []map[string]interface{}{
			{"email": "first@example.com", "primary": false, "verified": false},
			{"email": "second@example.com", "primary": false, "verified": true},
		})

		user, err := client.User(ctx, domain.ProviderGitHub, "token")
		require.NoError(t, err)
		assert.Equal(t, "first@example.com", user.Email)
	})

	t.Run("no usable email", func(t *testing.T) {
		fake, client := newClient(t)
		fake.SetGitHubProfile(map[string]interface{}{"id": 7, "login": "hidden", "email": nil})
		fake.SetGitHubEmails(http.StatusForbidden, nil)

		_, err := client.User(ctx, domain.ProviderGitHub, "token")
		assertExternal(t, err, "GitHub")
		assert.Contains(t, err.Error(), "Could not get email from GitHub")
	})

	t.Run("profile endpoint failure", func(t *testing.T) {
		fake, client := newClient(t)
		fake.SetProfileStatus(http.StatusInternalServerError)

		_, err := client.User(ctx, domain.ProviderGitHub, "token")
		assertExternal(t, err, "GitHub")
	})
}

func TestGoogleUser(t *testing.T) {
	ctx := context.Background()

	t.Run("username from email local part", func(t *testing.T) {
		fake, client := newClient(t)
		fake.SetGoogleProfile(map[string]interface{}{
			"id":      "1001",
			"email":   "jane.doe@example.com",
			"name":    "Jane Doe",
			"picture": "https://lh3.example.com/p.png",
		})

		user, err := client.User(ctx, domain.ProviderGoogle, "token")
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderGoogle, user.Provider)
		assert.Equal(t, "1001", user.ProviderID)
		assert.Equal(t, "jane.doe", user.Username)
		assert.Equal(t, "Jane Doe", user.Name)
		require.NotNil(t, user.AvatarURL)
		assert.Equal(t, "https://lh3.example.com/p.png", *user.AvatarURL)
		assert.Nil(t, user.Bio)
	})

	t.Run("null picture", func(t *testing.T) {
		_, client := newClient(t)
		user, err := client.User(ctx, domain.ProviderGoogle, "token")
		require.NoError(t, err)
		assert.Equal(t, "a", user.Username)
		assert.Nil(t, user.AvatarURL)
	})

	t.Run("profile endpoint failure", func(t *testing.T) {
		fake, client := newClient(t)
		fake.SetProfileStatus(http.StatusUnauthorized)

		_, err := client.User(ctx, domain.ProviderGoogle, "token")
		assertExternal(t, err, "Google")
	})
}
