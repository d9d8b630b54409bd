package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/api/transport"
	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/config"
	"github.com/pharmadesk/station/internal/middleware"
	"github.com/pharmadesk/station/pkg/httpcontext"
	authUC "github.com/pharmadesk/station/usecase/auth"
)

type AuthHandler struct {
	baseHandler
	uc      *authUC.UseCase
	cookies config.CookieConfig
}

func NewAuthHandler(uc *authUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger, cookies config.CookieConfig) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		cookies:     cookies,
	}
}

// @Summary Sign the operator in
// @Tags auth
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	var req transport.LoginRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Email == "" || req.Password == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "email and password are required", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	session, err := h.uc.Login(stdCtx, req.Email, req.Password, req.RememberMe)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	middleware.SetSessionCookies(ctx, session, h.cookies)
	h.respondSuccess(ctx, http.StatusOK, transport.SessionResponse{
		Operator:   session.Operator,
		RememberMe: session.RememberMe,
	})
}

// @Summary Sign the operator out
// @Tags auth
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(ctx *fasthttp.RequestCtx) {
	sessionID := string(ctx.Request.Header.Cookie(middleware.CookieSession))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if sessionID != "" {
		if err := h.uc.Logout(stdCtx, sessionID); err != nil {
			h.logger.Warn("logout failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	// Cookies are wiped regardless; logout is always safe to call.
	middleware.ClearSessionCookies(ctx, h.cookies)
	h.respondSuccess(ctx, http.StatusOK, nil)
}
