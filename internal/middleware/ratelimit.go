package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/pkg/httpcontext"
	appLogger "github.com/fastygo/gidoku/pkg/logger"
	"github.com/fastygo/gidoku/repository"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// KeyGenerator derives the client identifier a window is counted against.
type KeyGenerator func(ctx *fasthttp.RequestCtx) string

// RateLimitConfig describes one fixed-window limiter.
type RateLimitConfig struct {
	Window       time.Duration
	Limit        int64
	KeyPrefix    string
	KeyGenerator KeyGenerator
}

// Preset limiters.
var (
	AuthRateLimit   = RateLimitConfig{Window: 15 * time.Minute, Limit: 100, KeyPrefix: "auth"}
	SearchRateLimit = RateLimitConfig{Window: time.Minute, Limit: 30, KeyPrefix: "search"}
	APIRateLimit    = RateLimitConfig{Window: time.Minute, Limit: 60, KeyPrefix: "api"}
)

// RateLimiter builds fixed-window middlewares over a shared key/value store.
type RateLimiter struct {
	kv      repository.KeyValueStore
	errors  ErrorWriter
	adapter *httpcontext.Adapter
	now     func() time.Time
	logger  *zap.Logger
}

func NewRateLimiter(kv repository.KeyValueStore, errorWriter ErrorWriter, adapter *httpcontext.Adapter, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return &RateLimiter{
		kv:      kv,
		errors:  errorWriter,
		adapter: adapter,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock replaces the time source.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

// Limit returns a middleware enforcing cfg. The read-increment-write cycle
// is not atomic; concurrent requests may briefly under-count.
func (l *RateLimiter) Limit(cfg RateLimitConfig) Middleware {
	windowSeconds := int64(cfg.Window / time.Second)
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	keyGen := cfg.KeyGenerator
	if keyGen == nil {
		keyGen = ClientKey
	}
	limit := strconv.FormatInt(cfg.Limit, 10)
	ttl := time.Duration(windowSeconds+1) * time.Second

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			key := "ratelimit:" + cfg.KeyPrefix + ":" + keyGen(ctx)
			now := l.now().Unix()

			stdCtx, cancel := l.adapter.Attach(ctx)
			defer cancel()

			entry := l.load(stdCtx, key).Advance(now, windowSeconds)

			remaining := cfg.Limit - entry.Count
			if remaining < 0 {
				remaining = 0
			}
			ctx.Response.Header.Set(HeaderRateLimitLimit, limit)
			ctx.Response.Header.Set(HeaderRateLimitRemaining, strconv.FormatInt(remaining, 10))
			ctx.Response.Header.Set(HeaderRateLimitReset, strconv.FormatInt(entry.ResetAt, 10))

			l.store(stdCtx, key, entry, ttl)

			if entry.Count > cfg.Limit {
				retryAfter := entry.ResetAt - now
				ctx.Response.Header.Set(HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
				l.errors.WriteError(ctx, domain.NewRateLimitError("Too many requests. Please try again later.", retryAfter))
				return
			}
			next(ctx)
		}
	}
}

// load returns nil when the entry is absent, unreadable or the store fails,
// which the window treats as fresh.
func (l *RateLimiter) load(ctx context.Context, key string) *domain.RateLimitEntry {
	raw, err := l.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			appLogger.FromContext(ctx, l.logger).Warn("rate limit read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var entry domain.RateLimitEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		appLogger.FromContext(ctx, l.logger).Warn("rate limit entry corrupt", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &entry
}

func (l *RateLimiter) store(ctx context.Context, key string, entry domain.RateLimitEntry, ttl time.Duration) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := l.kv.Set(ctx, key, raw, ttl); err != nil {
		appLogger.FromContext(ctx, l.logger).Warn("rate limit write failed", zap.String("key", key), zap.Error(err))
	}
}

// ClientKey picks the client address from CF-Connecting-IP, the first
// X-Forwarded-For hop, X-Real-IP, then the socket peer, else "unknown".
func ClientKey(ctx *fasthttp.RequestCtx) string {
	if ip := strings.TrimSpace(string(ctx.Request.Header.Peek("CF-Connecting-IP"))); ip != "" {
		return ip
	}
	if xff := string(ctx.Request.Header.Peek("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Real-IP"))); ip != "" {
		return ip
	}
	if ip := ctx.RemoteIP(); ip != nil && !ip.IsUnspecified() {
		return ip.String()
	}
	return "unknown"
}
