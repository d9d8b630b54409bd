package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/config"
	"github.com/pharmadesk/station/internal/middleware"
)

type fakeResolver struct {
	session *domain.Session
	err     error
	touched []string
}

func (f *fakeResolver) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeResolver) Touch(sessionID string) {
	f.touched = append(f.touched, sessionID)
}

func activeSession() *domain.Session {
	return &domain.Session{
		ID:          "sess-1",
		Operator:    domain.Operator{ID: "op-1", Email: "operator@pharmacy.test"},
		AccessToken: domain.Token{Value: "access-1", ExpiresAt: time.Now().Add(time.Hour)},
		State:       domain.StateActiveTimed,
		Version:     1,
	}
}

func gatedRequest(sessionID, accessToken, accept string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/api/v1/cart")
	if sessionID != "" {
		ctx.Request.Header.SetCookie(middleware.CookieSession, sessionID)
	}
	if accessToken != "" {
		ctx.Request.Header.SetCookie(middleware.CookieAccessToken, accessToken)
	}
	if accept != "" {
		ctx.Request.Header.Set("Accept", accept)
	}
	return ctx
}

func TestGatePassesActiveSession(t *testing.T) {
	resolver := &fakeResolver{session: activeSession()}
	gate := middleware.Gate(resolver, config.CookieConfig{SignInPath: "/auth/signin"}, nil)

	var sawSession *domain.Session
	handler := gate(func(ctx *fasthttp.RequestCtx) {
		sawSession, _ = ctx.UserValue(middleware.SessionKey).(*domain.Session)
	})

	ctx := gatedRequest("sess-1", "access-1", "")
	handler(ctx)

	require.NotNil(t, sawSession)
	require.Equal(t, "sess-1", sawSession.ID)
	require.Equal(t, []string{"sess-1"}, resolver.touched, "every gated request counts as activity")
	require.Equal(t, "op-1", string(ctx.Request.Header.Peek("X-User-ID")))
}

func TestGateRejectsMissingCookies(t *testing.T) {
	resolver := &fakeResolver{session: activeSession()}
	gate := middleware.Gate(resolver, config.CookieConfig{SignInPath: "/auth/signin"}, nil)

	called := false
	handler := gate(func(ctx *fasthttp.RequestCtx) { called = true })

	ctx := gatedRequest("", "", "")
	handler(ctx)

	require.False(t, called)
	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
	require.Empty(t, resolver.touched)
}

func TestGateRedirectsBrowsersToSignIn(t *testing.T) {
	resolver := &fakeResolver{err: domain.ErrSessionExpired}
	gate := middleware.Gate(resolver, config.CookieConfig{SignInPath: "/auth/signin"}, nil)

	handler := gate(func(ctx *fasthttp.RequestCtx) {})

	ctx := gatedRequest("sess-1", "access-1", "text/html,application/xhtml+xml")
	handler(ctx)

	require.Equal(t, fasthttp.StatusFound, ctx.Response.StatusCode())
	location := string(ctx.Response.Header.Peek("Location"))
	require.Contains(t, location, "/auth/signin")
	require.Contains(t, location, "redirect=/api/v1/cart")
}

func TestGateRejectsExpiredSessionForAPIClients(t *testing.T) {
	resolver := &fakeResolver{err: domain.ErrSessionExpired}
	gate := middleware.Gate(resolver, config.CookieConfig{SignInPath: "/auth/signin"}, nil)

	called := false
	handler := gate(func(ctx *fasthttp.RequestCtx) { called = true })

	ctx := gatedRequest("sess-1", "access-1", "application/json")
	handler(ctx)

	require.False(t, called)
	require.Equal(t, fasthttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestGateRotatesStaleAccessCookie(t *testing.T) {
	session := activeSession()
	session.AccessToken.Value = "access-2"
	resolver := &fakeResolver{session: session}
	gate := middleware.Gate(resolver, config.CookieConfig{SignInPath: "/auth/signin"}, nil)

	handler := gate(func(ctx *fasthttp.RequestCtx) {})

	// Browser still carries the pre-refresh token.
	ctx := gatedRequest("sess-1", "access-1", "")
	handler(ctx)

	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)
	require.NoError(t, cookie.ParseBytes(ctx.Response.Header.PeekCookie(middleware.CookieAccessToken)))
	require.Equal(t, "access-2", string(cookie.Value()))
}

func TestSetAndClearSessionCookies(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	cfg := config.CookieConfig{RememberDays: 30}

	middleware.SetSessionCookies(ctx, activeSession(), cfg)

	var names []string
	ctx.Response.Header.VisitAllCookie(func(key, _ []byte) {
		names = append(names, string(key))
	})
	require.ElementsMatch(t, names, []string{
		middleware.CookieSession,
		middleware.CookieAccessToken,
		middleware.CookieUserData,
		middleware.CookieRememberMe,
	})

	cleared := &fasthttp.RequestCtx{}
	middleware.ClearSessionCookies(cleared, cfg)

	count := 0
	cleared.Response.Header.VisitAllCookie(func(_, _ []byte) { count++ })
	require.Equal(t, 4, count)
}

func TestSessionCookieIsHTTPOnly(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}
	middleware.SetSessionCookies(ctx, activeSession(), config.CookieConfig{})

	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)
	cookie.SetKey(middleware.CookieSession)
	require.NoError(t, cookie.ParseBytes(ctx.Response.Header.PeekCookie(middleware.CookieSession)))
	require.True(t, cookie.HTTPOnly(), "the session id must not be script readable")
}
