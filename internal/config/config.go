package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	AppURL      string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Store       StoreConfig
	OAuth       OAuthConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver          string
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
	SQLitePath      string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// StoreConfig selects the key/value backend for sessions, state, cache and counters.
type StoreConfig struct {
	// Driver is "redis", "bolt" or "memory".
	Driver        string
	BoltPath      string
	SweepInterval time.Duration
}

type OAuthConfig struct {
	HTTPTimeout        time.Duration
	GitHubClientID     string
	GitHubClientSecret string
	GitHubOAuthBaseURL string
	GitHubAPIBaseURL   string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleAuthURL      string
	GoogleTokenURL     string
	GoogleUserInfoURL  string
}

type SessionConfig struct {
	TTL          time.Duration
	CookieSecure bool
	StateTTL     time.Duration
	UserCacheTTL time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "gidoku"),
		Environment: getString("APP_ENV", "development"),
		AppURL:      strings.TrimRight(getString("APP_URL", "http://localhost:8080"), "/"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getString("DB_DRIVER", "postgres")),
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "gidoku"),
			User:            getString("DB_USER", "gidoku"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
			SQLitePath:      getString("SQLITE_PATH", "./data/gidoku.db"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(getString("KV_DRIVER", "redis")),
			BoltPath:      getString("KV_BOLT_PATH", "./data/kv.db"),
			SweepInterval: getDuration("KV_SWEEP_INTERVAL", 5*time.Minute),
		},
		OAuth: OAuthConfig{
			HTTPTimeout:        getDuration("OAUTH_HTTP_TIMEOUT", 10*time.Second),
			GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
			GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
			GitHubOAuthBaseURL: os.Getenv("GITHUB_OAUTH_BASE_URL"),
			GitHubAPIBaseURL:   os.Getenv("GITHUB_API_BASE_URL"),
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleAuthURL:      os.Getenv("GOOGLE_AUTH_URL"),
			GoogleTokenURL:     os.Getenv("GOOGLE_TOKEN_URL"),
			GoogleUserInfoURL:  os.Getenv("GOOGLE_USERINFO_URL"),
		},
		Session: SessionConfig{
			TTL:          getDuration("SESSION_TTL", 7*24*time.Hour),
			CookieSecure: getBool("SESSION_COOKIE_SECURE", true),
			StateTTL:     getDuration("OAUTH_STATE_TTL", 10*time.Minute),
			UserCacheTTL: getDuration("USER_CACHE_TTL", 5*time.Minute),
		},
		RateLimit: DefaultRateLimits(),
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if path := os.Getenv("RATELIMIT_CONFIG_PATH"); path != "" {
		if err := cfg.RateLimit.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects driver names the wiring does not know.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "redis", "bolt", "memory":
	default:
		return fmt.Errorf("unsupported KV_DRIVER %q", c.Store.Driver)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

// IsProduction reports whether client-facing errors must be redacted.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
