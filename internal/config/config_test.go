package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_URL", "https://gidoku.example/")
	t.Setenv("KV_DRIVER", "memory")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://gidoku.example", cfg.AppURL)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10*time.Minute, cfg.Session.StateTTL)
	assert.Equal(t, 5*time.Minute, cfg.Session.UserCacheTTL)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, DefaultRateLimits(), cfg.RateLimit)
	assert.False(t, cfg.IsProduction())
}

func TestLoadDurationsAcceptSeconds(t *testing.T) {
	t.Setenv("KV_DRIVER", "memory")
	t.Setenv("SESSION_TTL", "3600")
	t.Setenv("USER_CACHE_TTL", "90s")
	t.Setenv("APP_ENV", "Production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 90*time.Second, cfg.Session.UserCacheTTL)
	assert.True(t, cfg.IsProduction())
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	t.Setenv("KV_DRIVER", "memcached")
	_, err := Load()
	assert.Error(t, err)
}

func TestRateLimitFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratelimit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  window: 30s\n  limit: 10\napi:\n  limit: 120\n"), 0o600))

	limits := DefaultRateLimits()
	require.NoError(t, limits.LoadFile(path))
	assert.Equal(t, RateLimitRule{Window: 30 * time.Second, Limit: 10}, limits.Search)
	assert.Equal(t, RateLimitRule{Window: time.Minute, Limit: 120}, limits.API)
	assert.Equal(t, DefaultRateLimits().Auth, limits.Auth)
}

func TestRateLimitFileErrors(t *testing.T) {
	limits := DefaultRateLimits()
	assert.Error(t, limits.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth: [not, a, map]\n"), 0o600))
	assert.Error(t, limits.LoadFile(path))
}
