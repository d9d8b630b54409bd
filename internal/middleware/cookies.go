package middleware

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/config"
)

// Cookie names shared between the gateway and the dashboard frontend. The
// accessToken mirror exists so the request gate can run without a session
// store round trip on every static asset.
const (
	CookieSession     = "sessionId"
	CookieAccessToken = "accessToken"
	CookieUserData    = "userData"
	CookieRememberMe  = "rememberMe"
)

// userDataCookie is the browser-readable slice of the session. Tokens never
// leave the gateway except for the accessToken mirror.
type userDataCookie struct {
	Operator   domain.Operator `json:"operator"`
	RememberMe bool            `json:"rememberMe"`
}

// SetSessionCookies installs the session cookies on the response. RememberMe
// sessions get a multi-day expiry; timed sessions stay browser-session
// scoped.
func SetSessionCookies(ctx *fasthttp.RequestCtx, session *domain.Session, cfg config.CookieConfig) {
	var expires time.Time
	if session.RememberMe {
		days := cfg.RememberDays
		if days <= 0 {
			days = 30
		}
		expires = time.Now().Add(time.Duration(days) * 24 * time.Hour)
	}

	setCookie(ctx, CookieSession, session.ID, expires, cfg, true)
	setCookie(ctx, CookieAccessToken, session.AccessToken.Value, expires, cfg, false)
	setCookie(ctx, CookieRememberMe, boolFlag(session.RememberMe), expires, cfg, false)

	if payload, err := json.Marshal(userDataCookie{
		Operator:   session.Operator,
		RememberMe: session.RememberMe,
	}); err == nil {
		setCookie(ctx, CookieUserData, string(payload), expires, cfg, false)
	}
}

// RotateAccessCookie refreshes the accessToken mirror after the guard
// installed a new token.
func RotateAccessCookie(ctx *fasthttp.RequestCtx, session *domain.Session, cfg config.CookieConfig) {
	var expires time.Time
	if session.RememberMe {
		days := cfg.RememberDays
		if days <= 0 {
			days = 30
		}
		expires = time.Now().Add(time.Duration(days) * 24 * time.Hour)
	}
	setCookie(ctx, CookieAccessToken, session.AccessToken.Value, expires, cfg, false)
}

// ClearSessionCookies wipes every session cookie.
func ClearSessionCookies(ctx *fasthttp.RequestCtx, cfg config.CookieConfig) {
	for _, name := range []string{CookieSession, CookieAccessToken, CookieUserData, CookieRememberMe} {
		cookie := fasthttp.AcquireCookie()
		cookie.SetKey(name)
		cookie.SetValue("")
		cookie.SetPath("/")
		if cfg.Domain != "" {
			cookie.SetDomain(cfg.Domain)
		}
		cookie.SetExpire(fasthttp.CookieExpireDelete)
		ctx.Response.Header.SetCookie(cookie)
		fasthttp.ReleaseCookie(cookie)
	}
}

func setCookie(ctx *fasthttp.RequestCtx, name, value string, expires time.Time, cfg config.CookieConfig, httpOnly bool) {
	cookie := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(cookie)

	cookie.SetKey(name)
	cookie.SetValue(value)
	cookie.SetPath("/")
	if cfg.Domain != "" {
		cookie.SetDomain(cfg.Domain)
	}
	if !expires.IsZero() {
		cookie.SetExpire(expires)
	}
	cookie.SetSecure(cfg.Secure)
	cookie.SetHTTPOnly(httpOnly)
	cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	ctx.Response.Header.SetCookie(cookie)
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
