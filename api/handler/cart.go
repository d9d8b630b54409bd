package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/api/transport"
	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/pkg/httpcontext"
	sellUC "github.com/pharmadesk/station/usecase/sellstation"
)

type CartHandler struct {
	baseHandler
	uc *sellUC.UseCase
}

func NewCartHandler(uc *sellUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary View the cart
// @Tags cart
// @Router /api/v1/cart [get]
func (h *CartHandler) ViewCart(ctx *fasthttp.RequestCtx) {
	session := h.session(ctx)
	if session == nil {
		return
	}
	h.respondCart(ctx, session.ID)
}

// @Summary Add a medicine to the cart
// @Tags cart
// @Router /api/v1/cart/items [post]
func (h *CartHandler) AddItem(ctx *fasthttp.RequestCtx) {
	session := h.session(ctx)
	if session == nil {
		return
	}

	var req transport.CartAddRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.MedicineID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing medicine id", nil))
		return
	}

	if err := h.uc.AddToCart(session.ID, req.MedicineID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondCart(ctx, session.ID)
}

// @Summary Set a cart line quantity
// @Tags cart
// @Router /api/v1/cart/items/{id} [put]
func (h *CartHandler) UpdateItem(ctx *fasthttp.RequestCtx) {
	session := h.session(ctx)
	if session == nil {
		return
	}

	medicineID, _ := ctx.UserValue("id").(string)
	if medicineID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing medicine id", nil))
		return
	}

	var req transport.CartQuantityRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	// Out-of-bounds quantities are silent no-ops; the response simply shows
	// the cart unchanged.
	h.uc.UpdateQuantity(session.ID, medicineID, req.Quantity)
	h.respondCart(ctx, session.ID)
}

// @Summary Remove a cart line
// @Tags cart
// @Router /api/v1/cart/items/{id} [delete]
func (h *CartHandler) RemoveItem(ctx *fasthttp.RequestCtx) {
	session := h.session(ctx)
	if session == nil {
		return
	}

	medicineID, _ := ctx.UserValue("id").(string)
	if medicineID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing medicine id", nil))
		return
	}

	h.uc.RemoveFromCart(session.ID, medicineID)
	h.respondCart(ctx, session.ID)
}

// @Summary Submit the cart as one sale
// @Tags cart
// @Router /api/v1/checkout [post]
func (h *CartHandler) Checkout(ctx *fasthttp.RequestCtx) {
	session := h.session(ctx)
	if session == nil {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.Checkout(stdCtx, session)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

func (h *CartHandler) respondCart(ctx *fasthttp.RequestCtx, sessionID string) {
	lines, total := h.uc.ViewCart(sessionID)
	h.respondSuccess(ctx, http.StatusOK, transport.CartResponse{
		Lines: lines,
		Total: total,
	})
}
