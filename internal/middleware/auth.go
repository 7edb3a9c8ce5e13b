package middleware

import (
	"context"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/pkg/httpcontext"
)

// SessionCookieName carries the opaque session id.
const SessionCookieName = "session_id"

// Middleware wraps a fasthttp handler.
type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Chain applies middlewares so that the first one runs outermost.
func Chain(h fasthttp.RequestHandler, mws ...Middleware) fasthttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ErrorWriter renders an error response; transport.ErrorHandler implements it.
type ErrorWriter interface {
	WriteError(ctx *fasthttp.RequestCtx, err error)
}

type SessionValidator interface {
	Validate(ctx context.Context, sessionID string) (string, error)
}

type UserCache interface {
	Get(ctx context.Context, userID string) (*domain.User, bool)
	Set(ctx context.Context, user *domain.User)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Authenticator resolves the session cookie into a domain.Identity.
type Authenticator struct {
	sessions SessionValidator
	cache    UserCache
	users    UserLookup
	errors   ErrorWriter
	adapter  *httpcontext.Adapter
	logger   *zap.Logger
}

func NewAuthenticator(
	sessions SessionValidator,
	cache UserCache,
	users UserLookup,
	errorWriter ErrorWriter,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(0)
	}
	return &Authenticator{
		sessions: sessions,
		cache:    cache,
		users:    users,
		errors:   errorWriter,
		adapter:  adapter,
		logger:   logger,
	}
}

// Required rejects requests without a valid session with 401.
func (a *Authenticator) Required(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		identity, err := a.Resolve(ctx)
		if err != nil {
			a.errors.WriteError(ctx, err)
			return
		}
		httpcontext.SetIdentity(ctx, identity)
		next(ctx)
	}
}

// Optional attaches an identity when one resolves and otherwise continues anonymously.
func (a *Authenticator) Optional(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if len(ctx.Request.Header.Cookie(SessionCookieName)) == 0 {
			next(ctx)
			return
		}
		identity, err := a.Resolve(ctx)
		if err != nil {
			httpcontext.Logger(ctx, a.logger).Warn("optional auth failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
			next(ctx)
			return
		}
		httpcontext.SetIdentity(ctx, identity)
		next(ctx)
	}
}

// Resolve runs cookie → session → cached user → repository. A session whose
// user no longer exists is reported as an invalid session.
func (a *Authenticator) Resolve(ctx *fasthttp.RequestCtx) (domain.Identity, error) {
	sessionID := string(ctx.Request.Header.Cookie(SessionCookieName))
	if sessionID == "" {
		return domain.Identity{}, domain.ErrNoSession
	}

	stdCtx, cancel := a.adapter.Attach(ctx)
	defer cancel()

	userID, err := a.sessions.Validate(stdCtx, sessionID)
	if err != nil {
		return domain.Identity{}, err
	}

	if user, ok := a.cache.Get(stdCtx, userID); ok {
		return domain.Identity{UserID: userID, User: user}, nil
	}

	user, err := a.users.GetByID(stdCtx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Identity{}, domain.ErrInvalidSession
		}
		return domain.Identity{}, err
	}
	a.cache.Set(stdCtx, user)
	return domain.Identity{UserID: userID, User: user}, nil
}
