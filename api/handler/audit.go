package handler

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/pkg/httpcontext"
	"github.com/pharmadesk/station/repository"
	authUC "github.com/pharmadesk/station/usecase/auth"
)

type AuditHandler struct {
	baseHandler
	uc *authUC.UseCase
}

func NewAuditHandler(uc *authUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Locally recorded operator actions
// @Tags audit
// @Router /api/v1/audit [get]
func (h *AuditHandler) List(ctx *fasthttp.RequestCtx) {
	if session := h.session(ctx); session == nil {
		return
	}

	args := ctx.QueryArgs()
	filter := repository.AuditFilter{
		UserID: string(args.Peek("user_id")),
		Action: string(args.Peek("action")),
		Limit:  parseInt(string(args.Peek("limit")), 100),
		Offset: parseInt(string(args.Peek("offset")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	events, err := h.uc.AuditTrail(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, events)
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
