package handler

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/api/transport"
	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/internal/middleware"
	"github.com/fastygo/gidoku/pkg/httpcontext"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	errors  *transport.ErrorHandler
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, errors *transport.ErrorHandler, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if errors == nil {
		errors = transport.NewErrorHandler(logger, true)
	}
	return baseHandler{adapter: adapter, errors: errors, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	transport.WriteJSON(ctx, status, transport.NewSuccess(data))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	h.errors.WriteError(ctx, err)
}

// identity returns the principal set by the auth middleware. Routes behind
// Required always have one.
func (h baseHandler) identity(ctx *fasthttp.RequestCtx) (domain.Identity, error) {
	identity, ok := httpcontext.IdentityFrom(ctx)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	return identity, nil
}

func redirect(ctx *fasthttp.RequestCtx, location string) {
	ctx.Response.Header.Set(fasthttp.HeaderLocation, location)
	ctx.SetStatusCode(fasthttp.StatusFound)
}

// SessionCookie writes the session_id cookie.
type SessionCookie struct {
	Secure bool
}

func (c SessionCookie) Set(ctx *fasthttp.RequestCtx, sessionID string, ttl time.Duration) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetKey(middleware.SessionCookieName)
	cookie.SetValue(sessionID)
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSecure(c.Secure)
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	cookie.SetMaxAge(int(ttl / time.Second))
	ctx.Response.Header.SetCookie(cookie)
}

func (c SessionCookie) Clear(ctx *fasthttp.RequestCtx) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetKey(middleware.SessionCookieName)
	cookie.SetValue("")
	cookie.SetPath("/")
	cookie.SetHTTPOnly(true)
	cookie.SetSecure(c.Secure)
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	cookie.SetExpire(fasthttp.CookieExpireDelete)
	ctx.Response.Header.SetCookie(cookie)
}

func sessionID(ctx *fasthttp.RequestCtx) string {
	return string(ctx.Request.Header.Cookie(middleware.SessionCookieName))
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	value, _ := ctx.UserValue(name).(string)
	return value
}
