package handler

import (
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/api/transport"
	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/pkg/httpcontext"
	appLogger "github.com/fastygo/gidoku/pkg/logger"
	authUC "github.com/fastygo/gidoku/usecase/auth"
	"github.com/fastygo/gidoku/usecase/session"
)

type AuthHandler struct {
	baseHandler
	uc       *authUC.UseCase
	sessions *session.Store
	cookie   SessionCookie
	appURL   string
}

func NewAuthHandler(
	uc *authUC.UseCase,
	sessions *session.Store,
	cookie SessionCookie,
	appURL string,
	adapter *httpcontext.Adapter,
	errors *transport.ErrorHandler,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, errors, logger),
		uc:          uc,
		sessions:    sessions,
		cookie:      cookie,
		appURL:      strings.TrimRight(appURL, "/"),
	}
}

// @Summary Start an OAuth login
// @Tags auth
// @Router /auth/{provider} [get]
func (h *AuthHandler) Begin(ctx *fasthttp.RequestCtx) {
	provider, err := domain.ParseProvider(pathParam(ctx, "provider"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	authURL, err := h.uc.BeginLogin(stdCtx, provider)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	redirect(ctx, authURL)
}

// @Summary OAuth callback
// @Tags auth
// @Router /auth/{provider}/callback [get]
func (h *AuthHandler) Callback(ctx *fasthttp.RequestCtx) {
	provider, err := domain.ParseProvider(pathParam(ctx, "provider"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	args := ctx.QueryArgs()
	code, state := string(args.Peek("code")), string(args.Peek("state"))
	missing := map[string]string{}
	if code == "" {
		missing["code"] = "required"
	}
	if state == "" {
		missing["state"] = "required"
	}
	if len(missing) > 0 {
		h.respondError(ctx, domain.NewValidationError("Validation failed", missing))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.ConsumeState(stdCtx, provider, state); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeInvalidState) {
			h.respondError(ctx, err)
			return
		}
		appLogger.FromContext(stdCtx, h.logger).Error("oauth state lookup failed", zap.String("provider", string(provider)), zap.Error(err))
		redirect(ctx, h.appURL+"/login?error=auth_failed")
		return
	}

	_, sess, err := h.uc.CompleteLogin(stdCtx, provider, code)
	if err != nil {
		appLogger.FromContext(stdCtx, h.logger).Error("oauth login failed", zap.String("provider", string(provider)), zap.Error(err))
		redirect(ctx, h.appURL+"/login?error=auth_failed")
		return
	}

	h.cookie.Set(ctx, sess.ID, sess.TTL())
	redirect(ctx, h.appURL+"/")
}

// @Summary Log out
// @Tags auth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.sessions.Delete(stdCtx, sessionID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.cookie.Clear(ctx)
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]bool{"loggedOut": true})
}

// @Summary Current session
// @Tags auth
// @Router /auth/session [get]
func (h *AuthHandler) Session(ctx *fasthttp.RequestCtx) {
	identity, err := h.identity(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          transport.NewUserResponse(identity.User),
	})
}

// @Summary Extend the current session
// @Tags auth
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := h.sessions.Refresh(stdCtx, sessionID(ctx), 0)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.cookie.Set(ctx, sess.ID, sess.TTL())
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]interface{}{
		"refreshed": true,
		"expiresAt": sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
