package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/gidoku/api/handler"
	"github.com/fastygo/gidoku/api/transport"
	"github.com/fastygo/gidoku/internal/config"
	"github.com/fastygo/gidoku/internal/infrastructure/monitor"
	"github.com/fastygo/gidoku/internal/infrastructure/oauth"
	"github.com/fastygo/gidoku/internal/middleware"
	"github.com/fastygo/gidoku/internal/router"
	"github.com/fastygo/gidoku/internal/services/lifecycle"
	"github.com/fastygo/gidoku/pkg/httpcontext"
	"github.com/fastygo/gidoku/pkg/logger"
	authUC "github.com/fastygo/gidoku/usecase/auth"
	profileUC "github.com/fastygo/gidoku/usecase/profile"
	"github.com/fastygo/gidoku/usecase/session"
	"github.com/fastygo/gidoku/usecase/usercache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(context.Background(), cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen()
	appCtx := manager.Context()

	kv, kvCheck, err := openKeyValueStore(appCtx, cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("key/value store unavailable", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	users, dbCheck, err := openUserRepository(appCtx, cfg, manager, zapLogger)
	if err != nil {
		zapLogger.Fatal("user repository unavailable", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}

	mon := monitor.New([]monitor.Check{kvCheck, dbCheck}, 0, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	oauthClient := oauth.NewClient(oauth.Config{
		AppURL:      cfg.AppURL,
		HTTPTimeout: cfg.OAuth.HTTPTimeout,
		GitHub: oauth.GitHubConfig{
			ClientID:     cfg.OAuth.GitHubClientID,
			ClientSecret: cfg.OAuth.GitHubClientSecret,
			OAuthBaseURL: cfg.OAuth.GitHubOAuthBaseURL,
			APIBaseURL:   cfg.OAuth.GitHubAPIBaseURL,
		},
		Google: oauth.GoogleConfig{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			AuthURL:      cfg.OAuth.GoogleAuthURL,
			TokenURL:     cfg.OAuth.GoogleTokenURL,
			UserInfoURL:  cfg.OAuth.GoogleUserInfoURL,
		},
	}, zapLogger)

	sessions := session.New(kv, cfg.Session.TTL, zapLogger)
	cache := usercache.New(kv, cfg.Session.UserCacheTTL, zapLogger)

	authUseCase := authUC.New(kv, oauthClient, users, sessions, cfg.Session.StateTTL, zapLogger)
	profileUseCase := profileUC.New(users, cache, sessions, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	errorHandler := transport.NewErrorHandler(zapLogger, cfg.IsProduction())
	cookie := apiHandler.SessionCookie{Secure: cfg.Session.CookieSecure}

	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(authUseCase, sessions, cookie, cfg.AppURL, ctxAdapter, errorHandler, zapLogger),
		Profile: apiHandler.NewProfileHandler(profileUseCase, cookie, ctxAdapter, errorHandler, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, errorHandler, zapLogger),
	}

	authenticator := middleware.NewAuthenticator(sessions, cache, users, errorHandler, ctxAdapter, zapLogger)
	limiter := middleware.NewRateLimiter(kv, errorHandler, ctxAdapter, zapLogger)

	r := router.New(handlers, authenticator, limiter, limitsFrom(cfg.RateLimit), errorHandler)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func() error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.Bool("production", cfg.IsProduction()))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	if err := manager.Wait(); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func limitsFrom(cfg config.RateLimitConfig) router.Limits {
	limits := router.DefaultLimits()
	limits.Auth.Window, limits.Auth.Limit = cfg.Auth.Window, cfg.Auth.Limit
	limits.Search.Window, limits.Search.Limit = cfg.Search.Window, cfg.Search.Limit
	limits.API.Window, limits.API.Limit = cfg.API.Window, cfg.API.Limit
	return limits
}
