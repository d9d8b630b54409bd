package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/api/transport"
	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/pkg/httpcontext"
	dashUC "github.com/pharmadesk/station/usecase/dashboard"
)

type DashboardHandler struct {
	baseHandler
	uc *dashUC.UseCase
}

func NewDashboardHandler(uc *dashUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Stock notifications for the operator
// @Tags dashboard
// @Router /api/v1/notifications [get]
func (h *DashboardHandler) Notifications(ctx *fasthttp.RequestCtx) {
	session := h.session(ctx)
	if session == nil {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	notifications, err := h.uc.Notifications(stdCtx, session)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, notifications)
}

// @Summary Mark a notification as read
// @Tags dashboard
// @Router /api/v1/notifications/read [post]
func (h *DashboardHandler) MarkRead(ctx *fasthttp.RequestCtx) {
	session := h.session(ctx)
	if session == nil {
		return
	}

	var req transport.NotificationReadRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.NotificationID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing notification id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.MarkNotificationRead(stdCtx, session, req.NotificationID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// @Summary Sales and stock summary
// @Tags dashboard
// @Router /api/v1/reports/summary [get]
func (h *DashboardHandler) ReportsSummary(ctx *fasthttp.RequestCtx) {
	session := h.session(ctx)
	if session == nil {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	summary, err := h.uc.ReportsSummary(stdCtx, session)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, summary)
}
