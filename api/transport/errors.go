package transport

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/pkg/httpcontext"
)

const (
	genericInternalMessage = "Internal server error"
	genericExternalMessage = "External service error"
)

var statusByCode = map[domain.ErrorCode]int{
	domain.ErrCodeValidation:   fasthttp.StatusBadRequest,
	domain.ErrCodeInvalidState: fasthttp.StatusBadRequest,
	domain.ErrCodeUnauthorized: fasthttp.StatusUnauthorized,
	domain.ErrCodeForbidden:    fasthttp.StatusForbidden,
	domain.ErrCodeNotFound:     fasthttp.StatusNotFound,
	domain.ErrCodeConflict:     fasthttp.StatusConflict,
	domain.ErrCodeRateLimited:  fasthttp.StatusTooManyRequests,
	domain.ErrCodeExternalAPI:  fasthttp.StatusBadGateway,
	domain.ErrCodeInternal:     fasthttp.StatusInternalServerError,
}

// StatusFor maps an error classification to its HTTP status.
func StatusFor(code domain.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return fasthttp.StatusInternalServerError
}

// ErrorHandler is the single place errors become HTTP responses.
type ErrorHandler struct {
	logger     *zap.Logger
	production bool
}

func NewErrorHandler(logger *zap.Logger, production bool) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger, production: production}
}

// WriteError logs err and writes the error envelope. In production only
// validation and rate-limit errors expose details, and upstream or internal
// failures are reduced to a generic message.
func (h *ErrorHandler) WriteError(ctx *fasthttp.RequestCtx, err error) {
	if err == nil {
		return
	}
	dErr, ok := domain.AsError(err)
	if !ok {
		dErr = domain.WrapError(domain.ErrCodeInternal, genericInternalMessage, err)
	}
	status := StatusFor(dErr.Code)
	h.log(ctx, status, dErr)

	message := dErr.Message
	details := dErr.Details
	switch dErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeRateLimited:
		// details are client safe
	case domain.ErrCodeExternalAPI:
		if h.production {
			message, details = genericExternalMessage, nil
		} else {
			details = externalDetails(dErr)
		}
	case domain.ErrCodeInternal:
		message = genericInternalMessage
		if h.production {
			details = nil
		} else if dErr.Err != nil {
			details = map[string]string{"cause": dErr.Err.Error()}
		}
	default:
		if h.production {
			details = nil
		}
	}
	if status == fasthttp.StatusInternalServerError {
		message = genericInternalMessage
	}

	WriteJSON(ctx, status, NewError(string(dErr.Code), message, details))
}

func (h *ErrorHandler) log(ctx *fasthttp.RequestCtx, status int, dErr *domain.Error) {
	fields := []zap.Field{
		zap.String("code", string(dErr.Code)),
		zap.Int("status", status),
		zap.ByteString("method", ctx.Method()),
		zap.ByteString("path", ctx.Path()),
	}
	if dErr.Source != "" {
		fields = append(fields, zap.String("source", dErr.Source))
	}
	if dErr.Err != nil {
		fields = append(fields, zap.NamedError("cause", dErr.Err))
	}
	if !h.production && status >= fasthttp.StatusInternalServerError {
		fields = append(fields, zap.StackSkip("stack", 2))
	}

	log := httpcontext.Logger(ctx, h.logger)
	switch {
	case status >= fasthttp.StatusInternalServerError:
		log.Error(dErr.Message, fields...)
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusNotFound:
		log.Debug(dErr.Message, fields...)
	default:
		log.Warn(dErr.Message, fields...)
	}
}

func externalDetails(dErr *domain.Error) map[string]string {
	details := map[string]string{}
	if dErr.Source != "" {
		details["api"] = dErr.Source
	}
	if dErr.Err != nil {
		details["cause"] = dErr.Err.Error()
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
