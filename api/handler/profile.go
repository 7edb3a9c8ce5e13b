package handler

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/api/transport"
	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/pkg/httpcontext"
	profileUC "github.com/fastygo/gidoku/usecase/profile"
)

type ProfileHandler struct {
	baseHandler
	uc     *profileUC.UseCase
	cookie SessionCookie
}

func NewProfileHandler(uc *profileUC.UseCase, cookie SessionCookie, adapter *httpcontext.Adapter, errors *transport.ErrorHandler, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		baseHandler: newBaseHandler(adapter, errors, logger),
		uc:          uc,
		cookie:      cookie,
	}
}

// @Summary Get own profile
// @Tags users
// @Success 200 {object} transport.Envelope
// @Router /api/users/me [get]
func (h *ProfileHandler) GetProfile(ctx *fasthttp.RequestCtx) {
	identity, err := h.identity(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, transport.NewUserResponse(identity.User))
}

// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Router /api/users/me [put]
func (h *ProfileHandler) UpdateProfile(ctx *fasthttp.RequestCtx) {
	identity, err := h.identity(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	update, err := transport.DecodeProfileUpdate(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, rotated, err := h.uc.UpdateProfile(stdCtx, identity.UserID, sessionID(ctx), update)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if rotated != nil {
		h.cookie.Set(ctx, rotated.ID, rotated.TTL())
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, transport.NewUserResponse(updated))
}

// @Summary Delete own account
// @Tags users
// @Router /api/users/me [delete]
func (h *ProfileHandler) DeleteAccount(ctx *fasthttp.RequestCtx) {
	identity, err := h.identity(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteAccount(stdCtx, identity.UserID, []string{sessionID(ctx)}); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.cookie.Clear(ctx)
	h.respondSuccess(ctx, fasthttp.StatusOK, map[string]bool{"deleted": true})
}

// @Summary Username availability
// @Tags users
// @Router /api/users/check/{username} [get]
func (h *ProfileHandler) CheckUsername(ctx *fasthttp.RequestCtx) {
	username, err := usernameParam(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	availability, err := h.uc.CheckUsername(stdCtx, username)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, fasthttp.StatusOK, availability)
}

// @Summary Public profile
// @Tags users
// @Router /api/users/{username} [get]
func (h *ProfileHandler) PublicProfile(ctx *fasthttp.RequestCtx) {
	username, err := usernameParam(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.PublicProfile(stdCtx, username)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	viewer, _ := httpcontext.IdentityFrom(ctx)
	h.respondSuccess(ctx, fasthttp.StatusOK, transport.NewPublicUserResponse(user, viewer.UserID))
}

func usernameParam(ctx *fasthttp.RequestCtx) (string, error) {
	username := pathParam(ctx, "username")
	if !transport.ValidUsername(username) {
		return "", domain.NewValidationError("Validation failed", map[string]string{"username": "invalid format"})
	}
	return username, nil
}
