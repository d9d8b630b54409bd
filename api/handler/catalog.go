package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/pkg/httpcontext"
	catalogUC "github.com/pharmadesk/station/usecase/catalog"
)

type CatalogHandler struct {
	baseHandler
	uc *catalogUC.UseCase
}

func NewCatalogHandler(uc *catalogUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Dispenser catalog
// @Tags catalog
// @Router /api/v1/catalog [get]
func (h *CatalogHandler) GetCatalog(ctx *fasthttp.RequestCtx) {
	session := h.session(ctx)
	if session == nil {
		return
	}

	forceReload := len(ctx.QueryArgs().Peek("refresh")) > 0

	if forceReload || !h.uc.Loaded() {
		stdCtx, cancel := h.requestContext(ctx)
		defer cancel()

		medicines, err := h.uc.Load(stdCtx, session.AccessToken.Value)
		if err != nil {
			// A failed reload must not hide what the station already has.
			if h.uc.Loaded() {
				h.respondSuccess(ctx, http.StatusOK, h.uc.List())
				return
			}
			h.respondError(ctx, err)
			return
		}
		h.respondSuccess(ctx, http.StatusOK, medicines)
		return
	}

	h.respondSuccess(ctx, http.StatusOK, h.uc.List())
}
