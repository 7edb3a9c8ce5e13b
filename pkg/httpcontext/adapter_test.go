package httpcontext_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fastygo/gidoku/domain"
	"github.com/fastygo/gidoku/pkg/httpcontext"
)

func TestAttach_PropagatesRequestMetadata(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("X-Request-ID", "req-123")
	ctx.Request.Header.SetUserAgent("gidoku-test")
	httpcontext.SetIdentity(&ctx, domain.Identity{UserID: "user-1"})

	stdCtx, cancel := httpcontext.NewAdapter(time.Second).Attach(&ctx)
	defer cancel()

	assert.Equal(t, "req-123", string(ctx.Response.Header.Peek("X-Request-ID")))
	assert.Equal(t, "gidoku-test", stdCtx.Value(httpcontext.KeyUserAgent))
	_, hasDeadline := stdCtx.Deadline()
	assert.True(t, hasDeadline)

	identity, ok := httpcontext.IdentityFromContext(stdCtx)
	require.True(t, ok)
	assert.Equal(t, "user-1", identity.UserID)
}

func TestAttach_GeneratesRequestID(t *testing.T) {
	var ctx fasthttp.RequestCtx
	_, cancel := httpcontext.NewAdapter(0).Attach(&ctx)
	defer cancel()

	assert.NotEmpty(t, ctx.Response.Header.Peek("X-Request-ID"))
}

func TestIdentityFrom_Anonymous(t *testing.T) {
	var ctx fasthttp.RequestCtx
	_, ok := httpcontext.IdentityFrom(&ctx)
	assert.False(t, ok)
}

func TestAttach_RequestIDStableAcrossCalls(t *testing.T) {
	var ctx fasthttp.RequestCtx
	adapter := httpcontext.NewAdapter(0)

	first, cancelFirst := adapter.Attach(&ctx)
	defer cancelFirst()
	header := string(ctx.Response.Header.Peek("X-Request-ID"))

	second, cancelSecond := adapter.Attach(&ctx)
	defer cancelSecond()

	assert.Equal(t, httpcontext.RequestID(&ctx), header)
	assert.Equal(t, header, string(ctx.Response.Header.Peek("X-Request-ID")))
	assert.Equal(t, first.Value(httpcontext.KeyRemoteAddr), second.Value(httpcontext.KeyRemoteAddr))
}

func TestLogger_AddsRequestAndUser(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("X-Request-ID", "req-9")
	httpcontext.SetIdentity(&ctx, domain.Identity{UserID: "user-9"})

	httpcontext.Logger(&ctx, zap.New(core)).Info("handled")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "user-9", fields["user_id"])
}
