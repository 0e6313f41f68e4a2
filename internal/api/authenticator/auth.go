// Package authenticator resolves the session cookie on each request and
// exposes the signed-in user to handlers.
package authenticator

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/services/session"
	"github.com/curaious/projectchron/internal/services/user"
)

const sessionKey = "session"

type Authenticator struct {
	sessions      *session.SessionService
	secureCookies bool
}

func New(sessions *session.SessionService, secureCookies bool) *Authenticator {
	return &Authenticator{
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

// Resolve looks up the request's session cookie and stores the session as a
// user value. A cookie that no longer resolves is cleared.
func (a *Authenticator) Resolve(ctx context.Context, rctx *fasthttp.RequestCtx) error {
	token := Token(rctx)
	if token == "" {
		return nil
	}

	sess, err := a.sessions.Lookup(ctx, token)
	if err != nil {
		return err
	}
	if sess == nil {
		a.ClearCookie(rctx)
		return nil
	}

	rctx.SetUserValue(sessionKey, sess)
	return nil
}

// Token returns the raw bearer token from the session cookie.
func Token(rctx *fasthttp.RequestCtx) string {
	return string(rctx.Request.Header.Cookie(session.CookieName))
}

// CurrentSession returns the resolved session or nil.
func CurrentSession(rctx *fasthttp.RequestCtx) *session.Session {
	sess, _ := rctx.UserValue(sessionKey).(*session.Session)
	return sess
}

// CurrentUser returns the signed-in user or nil.
func CurrentUser(rctx *fasthttp.RequestCtx) *user.User {
	if sess := CurrentSession(rctx); sess != nil {
		return sess.User
	}
	return nil
}

// SetCookie hands the token to the client and replaces any resolved session
// for the rest of the request.
func (a *Authenticator) SetCookie(rctx *fasthttp.RequestCtx, token string, expiresAt time.Time) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)

	c.SetKey(session.CookieName)
	c.SetValue(token)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSecure(a.secureCookies)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	c.SetExpire(expiresAt)
	rctx.Response.Header.SetCookie(c)
}

func (a *Authenticator) ClearCookie(rctx *fasthttp.RequestCtx) {
	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)

	c.SetKey(session.CookieName)
	c.SetValue("")
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSecure(a.secureCookies)
	c.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	c.SetExpire(fasthttp.CookieExpireDelete)
	rctx.Response.Header.SetCookie(c)
	rctx.RemoveUserValue(sessionKey)
}

// ClientMeta reports the caller's address, preferring the first
// X-Forwarded-For entry, and user agent.
func ClientMeta(rctx *fasthttp.RequestCtx) session.ClientMeta {
	return session.ClientMeta{
		IPAddress: ClientIP(rctx),
		UserAgent: string(rctx.UserAgent()),
	}
}

func ClientIP(rctx *fasthttp.RequestCtx) string {
	if fwd := string(rctx.Request.Header.Peek("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	addr := rctx.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
