package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/domain"

	appLogger "github.com/fastygo/gidoku/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
	KeyIdentity   Key = "identity"
	KeyRequestID  Key = "request_id"
)

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout time.Duration
}

// NewAdapter constructs a new Adapter using the provided timeout.
func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout: timeout,
	}
}

// Attach creates a context with timeout derived from the adapter and enriches it with request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	base := context.Background()

	stdCtx, cancel := context.WithTimeout(base, a.timeout)

	stdCtx = appLogger.ContextWithRequestID(stdCtx, RequestID(ctx))

	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}
	if identity, ok := IdentityFrom(ctx); ok {
		stdCtx = context.WithValue(stdCtx, KeyIdentity, identity)
		stdCtx = appLogger.ContextWithUserID(stdCtx, identity.UserID)
	}

	return stdCtx, cancel
}

// RequestID returns the id of the request, taking X-Request-ID or generating
// one on first use. Later calls on the same request return the same id.
func RequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if reqID, ok := ctx.UserValue(string(KeyRequestID)).(string); ok && reqID != "" {
		return reqID
	}
	reqID := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID")))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx.SetUserValue(string(KeyRequestID), reqID)
	ctx.Response.Header.Set("X-Request-ID", reqID)
	return reqID
}

// Logger scopes base to the request id and, once authenticated, the user id.
func Logger(ctx *fasthttp.RequestCtx, base *zap.Logger) *zap.Logger {
	if ctx == nil {
		return base
	}
	stdCtx := appLogger.ContextWithRequestID(context.Background(), RequestID(ctx))
	if identity, ok := IdentityFrom(ctx); ok {
		stdCtx = appLogger.ContextWithUserID(stdCtx, identity.UserID)
	}
	return appLogger.FromContext(stdCtx, base)
}

// SetIdentity attaches the authenticated principal to the request.
func SetIdentity(ctx *fasthttp.RequestCtx, identity domain.Identity) {
	ctx.SetUserValue(string(KeyIdentity), identity)
}

// IdentityFrom returns the principal attached by the auth middleware.
func IdentityFrom(ctx *fasthttp.RequestCtx) (domain.Identity, bool) {
	if ctx == nil {
		return domain.Identity{}, false
	}
	identity, ok := ctx.UserValue(string(KeyIdentity)).(domain.Identity)
	return identity, ok && identity.UserID != ""
}

// IdentityFromContext is IdentityFrom for contexts produced by Attach.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(KeyIdentity).(domain.Identity)
	return identity, ok && identity.UserID != ""
}
