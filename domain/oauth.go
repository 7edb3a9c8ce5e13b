package domain

// Provider identifies a supported OAuth identity provider.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGoogle Provider = "google"
)

// ParseProvider maps a route parameter onto the closed provider set.
func ParseProvider(value string) (Provider, error) {
	switch Provider(value) {
	case ProviderGitHub:
		return ProviderGitHub, nil
	case ProviderGoogle:
		return ProviderGoogle, nil
	default:
		return "", NewValidationError("Unsupported provider", map[string]string{"provider": value})
	}
}

// DisplayName is the human readable provider name used in error reporting.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGitHub:
		return "GitHub"
	case ProviderGoogle:
		return "Google"
	default:
		return string(p)
	}
}

// OAuthUser is the normalized profile returned by a provider.
type OAuthUser struct {
	Provider   Provider `json:"provider"`
	ProviderID string   `json:"provider_id"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Username   string   `json:"username"`
	AvatarURL  *string  `json:"avatar_url"`
	Bio        *string  `json:"bio"`
}
