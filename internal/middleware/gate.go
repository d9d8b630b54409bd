package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/internal/config"
)

// SessionKey is the request user-value under which the gate stores the
// resolved session for handlers.
const SessionKey = "session"

// SessionResolver is the slice of the auth use case the gate needs.
type SessionResolver interface {
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	Touch(sessionID string)
}

// Gate blocks unauthenticated access to protected routes. Browsers are
// redirected to the sign-in entry point with a redirect query parameter;
// API callers get a 401 envelope. Every request that passes the gate counts
// as qualifying operator activity.
func Gate(resolver SessionResolver, cookies config.CookieConfig, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			sessionID := string(ctx.Request.Header.Cookie(CookieSession))
			accessToken := string(ctx.Request.Header.Cookie(CookieAccessToken))
			if sessionID == "" || accessToken == "" {
				reject(ctx, cookies)
				return
			}

			session, err := resolver.Session(ctx, sessionID)
			if err != nil {
				logger.Debug("gate rejected request", zap.Error(err))
				ClearSessionCookies(ctx, cookies)
				reject(ctx, cookies)
				return
			}

			if session.AccessToken.IsExpired(time.Now()) {
				// The guard has not recovered the token yet; fail closed and
				// let the operator sign in again.
				reject(ctx, cookies)
				return
			}

			// The guard may have rotated the token since the cookie was set.
			if accessToken != session.AccessToken.Value {
				RotateAccessCookie(ctx, session, cookies)
			}

			if userID := claimedUserID(accessToken); userID != "" {
				ctx.Request.Header.Set("X-User-ID", userID)
			} else {
				ctx.Request.Header.Set("X-User-ID", session.Operator.ID)
			}

			resolver.Touch(sessionID)
			ctx.SetUserValue(SessionKey, session)
			next(ctx)
		}
	}
}

// claimedUserID extracts the user claim from the upstream access token. The
// gateway does not hold the upstream signing key, so claims are read without
// signature verification; the token is only trusted because the guard
// obtained it from the login endpoint over the back channel.
func claimedUserID(accessToken string) string {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return ""
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	if userID, ok := claims["userId"].(string); ok {
		return userID
	}
	return ""
}

func reject(ctx *fasthttp.RequestCtx, cookies config.CookieConfig) {
	if wantsHTML(ctx) {
		target := cookies.SignInPath + "?redirect=" + string(ctx.Path())
		ctx.Redirect(target, fasthttp.StatusFound)
		return
	}
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBodyString(`{"status":"error","code":"UNAUTHORIZED","error":"authentication required"}`)
}

func wantsHTML(ctx *fasthttp.RequestCtx) bool {
	accept := string(ctx.Request.Header.Peek("Accept"))
	return strings.Contains(accept, "text/html")
}
