package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fastygo/gidoku/domain"
)

const (
	defaultGitHubOAuthBaseURL = "https://github.com"
	defaultGitHubAPIBaseURL   = "https://api.github.com"
	githubUserAgent           = "gidoku-app"
	githubScopes              = "read:user user:email"
)

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	// OAuthBaseURL hosts /login/oauth/authorize and /login/oauth/access_token.
	OAuthBaseURL string
	// APIBaseURL hosts /user and /user/emails.
	APIBaseURL string
}

// GitHub posts a JSON body to the token endpoint and asks for a JSON reply.
type GitHub struct {
	cfg         GitHubConfig
	redirectURI string
	httpClient  *http.Client
}

func NewGitHub(cfg GitHubConfig, redirectURI string, httpClient *http.Client) *GitHub {
	if cfg.OAuthBaseURL == "" {
		cfg.OAuthBaseURL = defaultGitHubOAuthBaseURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultGitHubAPIBaseURL
	}
	cfg.OAuthBaseURL = strings.TrimRight(cfg.OAuthBaseURL, "/")
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GitHub{cfg: cfg, redirectURI: redirectURI, httpClient: httpClient}
}

type githubTokenResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type githubUser struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	AvatarURL string  `json:"avatar_url"`
	Bio       *string `json:"bio"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *GitHub) AuthURL(state string) string {
	params := url.Values{}
	params.Set("client_id", g.cfg.ClientID)
	params.Set("redirect_uri", g.redirectURI)
	params.Set("scope", githubScopes)
	params.Set("state", state)
	return g.cfg.OAuthBaseURL + "/login/oauth/authorize?" + params.Encode()
}

func (g *GitHub) AccessToken(ctx context.Context, code string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     g.cfg.ClientID,
		"client_secret": g.cfg.ClientSecret,
		"code":          code,
		"redirect_uri":  g.redirectURI,
	})
	if err != nil {
		return "", g.fail("Failed to get GitHub access token", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.OAuthBaseURL+"/login/oauth/access_token", bytes.NewReader(body))
	if err != nil {
		return "", g.fail("Failed to get GitHub access token", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	var tokenResp githubTokenResponse
	if err := g.do(req, &tokenResp); err != nil {
		return "", g.fail("Failed to get GitHub access token", err)
	}
	if tokenResp.Error != "" {
		return "", g.fail(tokenResp.Error, nil)
	}
	if tokenResp.AccessToken == "" {
		return "", g.fail("No access token received", nil)
	}
	return tokenResp.AccessToken, nil
}

func (g *GitHub) User(ctx context.Context, token string) (*domain.OAuthUser, error) {
	var profile githubUser
	if err := g.get(ctx, token, "/user", &profile); err != nil {
		return nil, g.fail("Failed to fetch GitHub user", err)
	}

	email := ""
	if profile.Email != nil {
		email = *profile.Email
	}
	if email == "" {
		email = g.primaryEmail(ctx, token)
	}
	if email == "" {
		return nil, g.fail("Could not get email from GitHub", nil)
	}

	name := profile.Login
	if profile.Name != nil && *profile.Name != "" {
		name = *profile.Name
	}

	return &domain.OAuthUser{
		Provider:   domain.ProviderGitHub,
		ProviderID: strconv.FormatInt(profile.ID, 10),
		Email:      email,
		Name:       name,
		Username:   profile.Login,
		AvatarURL:  stringPtr(profile.AvatarURL),
		Bio:        profile.Bio,
	}, nil
}

// primaryEmail prefers the primary verified address and falls back to the
// first listed one. Failures of this secondary call yield "".
func (g *GitHub) primaryEmail(ctx context.Context, token string) string {
	var emails []githubEmail
	if err := g.get(ctx, token, "/user/emails", &emails); err != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

func (g *GitHub) get(ctx context.Context, token, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", githubUserAgent)
	return g.do(req, out)
}

func (g *GitHub) do(req *http.Request, out interface{}) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *GitHub) fail(message string, err error) error {
	return domain.NewExternalAPIError(domain.ProviderGitHub.DisplayName(), message, err)
}
