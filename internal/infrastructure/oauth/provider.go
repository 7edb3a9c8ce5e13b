package oauth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/gidoku/domain"
)

// Provider implements the provider specific legs of the authorization code flow.
type Provider interface {
	// AuthURL builds the authorization endpoint URL for state. No I/O.
	AuthURL(state string) string
	// AccessToken exchanges an authorization code for an access token.
	AccessToken(ctx context.Context, code string) (string, error)
	// User fetches and normalizes the profile behind token.
	User(ctx context.Context, token string) (*domain.OAuthUser, error)
}

// Config holds credentials and endpoints for every supported provider.
type Config struct {
	AppURL      string
	HTTPTimeout time.Duration
	GitHub      GitHubConfig
	Google      GoogleConfig
}

// Client dispatches to the provider implementation selected by domain.Provider.
type Client struct {
	providers map[domain.Provider]Provider
	logger    *zap.Logger
}

// NewClient wires both providers behind one HTTP client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	return &Client{
		providers: map[domain.Provider]Provider{
			domain.ProviderGitHub: NewGitHub(cfg.GitHub, callbackURL(cfg.AppURL, domain.ProviderGitHub), httpClient),
			domain.ProviderGoogle: NewGoogle(cfg.Google, callbackURL(cfg.AppURL, domain.ProviderGoogle), httpClient),
		},
		logger: logger.Named("oauth"),
	}
}

// NewClientWith builds a Client from explicit provider implementations.
func NewClientWith(providers map[domain.Provider]Provider, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{providers: providers, logger: logger}
}

func (c *Client) AuthURL(provider domain.Provider, state string) (string, error) {
	p, err := c.provider(provider)
	if err != nil {
		return "", err
	}
	return p.AuthURL(state), nil
}

func (c *Client) AccessToken(ctx context.Context, provider domain.Provider, code string) (string, error) {
	p, err := c.provider(provider)
	if err != nil {
		return "", err
	}
	token, err := p.AccessToken(ctx, code)
	if err != nil {
		c.logger.Debug("token exchange failed", zap.String("provider", string(provider)), zap.Error(err))
		return "", err
	}
	return token, nil
}

func (c *Client) User(ctx context.Context, provider domain.Provider, token string) (*domain.OAuthUser, error) {
	p, err := c.provider(provider)
	if err != nil {
		return nil, err
	}
	user, err := p.User(ctx, token)
	if err != nil {
		c.logger.Debug("profile fetch failed", zap.String("provider", string(provider)), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (c *Client) provider(provider domain.Provider) (Provider, error) {
	p, ok := c.providers[provider]
	if !ok {
		return nil, domain.NewValidationError("Unsupported provider", map[string]string{"provider": string(provider)})
	}
	return p, nil
}

func callbackURL(appURL string, provider domain.Provider) string {
	return strings.TrimRight(appURL, "/") + "/auth/" + string(provider) + "/callback"
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
