package router

import (
	"fmt"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/gidoku/api/handler"
	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/internal/middleware"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Profile *apiHandler.ProfileHandler
	Health  *apiHandler.HealthHandler
}

// Limits selects the limiter applied to each route family.
type Limits struct {
	Auth   middleware.RateLimitConfig
	Search middleware.RateLimitConfig
	API    middleware.RateLimitConfig
}

// DefaultLimits returns the preset limiters.
func DefaultLimits() Limits {
	return Limits{
		Auth:   middleware.AuthRateLimit,
		Search: middleware.SearchRateLimit,
		API:    middleware.APIRateLimit,
	}
}

func New(
	handlers Handlers,
	auth *middleware.Authenticator,
	limiter *middleware.RateLimiter,
	limits Limits,
	errors middleware.ErrorWriter,
) *router.Router {
	r := router.New()

	authLimit := limiter.Limit(limits.Auth)
	searchLimit := limiter.Limit(limits.Search)
	apiLimit := limiter.Limit(limits.API)

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.GET("/auth/session", middleware.Chain(handlers.Auth.Session, authLimit, auth.Required))
	r.POST("/auth/logout", middleware.Chain(handlers.Auth.Logout, authLimit, auth.Required))
	r.POST("/auth/refresh", middleware.Chain(handlers.Auth.Refresh, authLimit, auth.Required))
	r.GET("/auth/{provider}", middleware.Chain(handlers.Auth.Begin, authLimit))
	r.GET("/auth/{provider}/callback", middleware.Chain(handlers.Auth.Callback, authLimit))

	// User routes
	users := r.Group("/api/users")
	users.GET("/me", middleware.Chain(handlers.Profile.GetProfile, apiLimit, auth.Required))
	users.PUT("/me", middleware.Chain(handlers.Profile.UpdateProfile, apiLimit, auth.Required))
	users.DELETE("/me", middleware.Chain(handlers.Profile.DeleteAccount, apiLimit, auth.Required))
	users.GET("/check/{username}", middleware.Chain(handlers.Profile.CheckUsername, searchLimit))
	users.GET("/{username}", middleware.Chain(handlers.Profile.PublicProfile, apiLimit, auth.Optional))

	r.NotFound = func(ctx *fasthttp.RequestCtx) {
		errors.WriteError(ctx, domain.NewError(domain.ErrCodeNotFound, "Not found"))
	}
	r.PanicHandler = func(ctx *fasthttp.RequestCtx, recovered interface{}) {
		errors.WriteError(ctx, fmt.Errorf("panic: %v", recovered))
	}

	return r
}
