package handler

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/gidoku/api/transport"
	"github.com/fastygo/gidoku/internal/infrastructure/monitor"
	"github.com/fastygo/gidoku/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, errors *transport.ErrorHandler, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, errors, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp":  time.Now().UTC(),
		"last_check": status.LastCheck,
		"services":   status.Services,
	}

	if status.Healthy {
		h.respondSuccess(ctx, fasthttp.StatusOK, payload)
		return
	}
	transport.WriteJSON(ctx, fasthttp.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
