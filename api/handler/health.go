package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/internal/infrastructure/monitor"
	"github.com/pharmadesk/station/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

func NewHealthHandler(m *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     m,
	}
}

// @Summary Gateway health
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()

	code := http.StatusOK
	if !status.Upstream {
		// The station can serve cached reads but cannot sell; report degraded.
		code = http.StatusServiceUnavailable
	}
	h.respondSuccess(ctx, code, status)
}
