// Package oauthtest runs a fake GitHub and Google OAuth backend over httptest.
package oauthtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fastygo/gidoku/internal/infrastructure/oauth"
)

// BadCode is rejected by both token endpoints.
const BadCode = "bad_code"

// Exchange records one call to a token endpoint.
type Exchange struct {
	Provider    string
	ContentType string
	Code        string
	ClientID    string
	RedirectURI string
}

// Server serves /login/oauth/access_token, /user and /user/emails for GitHub
// and /token plus /userinfo for Google.
type Server struct {
	srv *httptest.Server

	mu                 sync.Mutex
	githubProfile      map[string]interface{}
	githubEmails       []map[string]interface{}
	githubEmailsStatus int
	googleProfile      map[string]interface{}
	profileStatus      int
	exchanges          []Exchange
}

// New starts a server that is closed with the test.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		githubProfile: map[string]interface{}{
			"id":         42,
			"login":      "octocat",
			"name":       "The Octocat",
			"email":      "octocat@github.com",
			"avatar_url": "https://avatars.example.com/42",
			"bio":        nil,
		},
		githubEmailsStatus: http.StatusOK,
		googleProfile: map[string]interface{}{
			"id":      "42",
			"email":   "a@b.com",
			"name":    "A",
			"picture": nil,
		},
		profileStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", s.handleGitHubToken)
	mux.HandleFunc("/user", s.handleGitHubUser)
	mux.HandleFunc("/user/emails", s.handleGitHubEmails)
	mux.HandleFunc("/token", s.handleGoogleToken)
	mux.HandleFunc("/userinfo", s.handleGoogleUser)

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) URL() string {
	return s.srv.URL
}

// Config points every provider endpoint at the fake server.
func (s *Server) Config(appURL string) oauth.Config {
	return oauth.Config{
		AppURL: appURL,
		GitHub: oauth.GitHubConfig{
			ClientID:     "gh-client",
			ClientSecret: "gh-secret",
			OAuthBaseURL: s.srv.URL,
			APIBaseURL:   s.srv.URL,
		},
		Google: oauth.GoogleConfig{
			ClientID:     "google-client",
			ClientSecret: "google-secret",
			AuthURL:      s.srv.URL + "/auth",
			TokenURL:     s.srv.URL + "/token",
			UserInfoURL:  s.srv.URL + "/userinfo",
		},
	}
}

// SetGitHubProfile replaces the /user payload.
func (s *Server) SetGitHubProfile(profile map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.githubProfile = profile
}

// SetGitHubEmails replaces the /user/emails reply.
func (s *Server) SetGitHubEmails(status int, emails []map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.githubEmailsStatus = status
	s.githubEmails = emails
}

// SetGoogleProfile replaces the /userinfo payload.
func (s *Server) SetGoogleProfile(profile map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.googleProfile = profile
}

// SetProfileStatus makes both profile endpoints answer with status.
func (s *Server) SetProfileStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileStatus = status
}

// Exchanges returns the token endpoint calls seen so far.
func (s *Server) Exchanges() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exchange(nil), s.exchanges...)
}

func (s *Server) handleGitHubToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
		Code         string `json:"code"`
		RedirectURI  string `json:"redirect_uri"`
	}
	// Form bodies fail to decode and surface as a GitHub error field.
	decodeErr := json.NewDecoder(r.Body).Decode(&body)
	s.record(Exchange{
		Provider:    "github",
		ContentType: r.Header.Get("Content-Type"),
		Code:        body.Code,
		ClientID:    body.ClientID,
		RedirectURI: body.RedirectURI,
	})

	if decodeErr != nil || body.Code == BadCode {
		writeJSON(w, http.StatusOK, map[string]string{"error": "bad_verification_code"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": "gh_" + body.Code,
		"token_type":   "bearer",
		"scope":        "read:user,user:email",
	})
}

func (s *Server) handleGoogleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	code := r.PostForm.Get("code")
	s.record(Exchange{
		Provider:    "google",
		ContentType: r.Header.Get("Content-Type"),
		Code:        code,
		ClientID:    r.PostForm.Get("client_id"),
		RedirectURI: r.PostForm.Get("redirect_uri"),
	})

	if code == "" || code == BadCode || r.PostForm.Get("grant_type") != "authorization_code" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": "google_" + code,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *Server) handleGitHubUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status, profile := s.profileStatus, s.githubProfile
	s.mu.Unlock()
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}
	writeJSON(w, status, profile)
}

func (s *Server) handleGitHubEmails(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status, emails := s.githubEmailsStatus, s.githubEmails
	s.mu.Unlock()
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}
	if emails == nil {
		emails = []map[string]interface{}{}
	}
	writeJSON(w, status, emails)
}

func (s *Server) handleGoogleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status, profile := s.profileStatus, s.googleProfile
	s.mu.Unlock()
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}
	writeJSON(w, status, profile)
}

func (s *Server) record(e Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = append(s.exchanges, e)
}

func authorized(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
