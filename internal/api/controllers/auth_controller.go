package controllers

import (
	"context"
	"log/slog"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/api/authenticator"
	"github.com/curaious/projectchron/internal/perrors"
	"github.com/curaious/projectchron/internal/services"
	"github.com/curaious/projectchron/internal/services/user"
)

func RegisterAuthRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator) {
	// Register
	r.POST("/auth/register", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		if !allowAuthAttempt(ctx, stdCtx, svc, "register") {
			return
		}

		var body user.RegisterRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid registration payload", perrors.NewErrInvalidRequest("Invalid registration payload", err))
			return
		}

		meta := authenticator.ClientMeta(ctx)
		u, err := svc.User.Register(stdCtx, &body, meta.IPAddress)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to register", serviceError("Failed to register", err))
			return
		}

		issued, err := svc.Session.Create(stdCtx, u.ID, meta)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create session", serviceError("Failed to create session", err))
			return
		}
		auth.SetCookie(ctx, issued.Token, issued.ExpiresAt)

		writeOK(ctx, stdCtx, "Registered successfully", map[string]any{"user": u})
	})

	// Login with username/password
	r.POST("/auth/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		if !allowAuthAttempt(ctx, stdCtx, svc, "login") {
			return
		}

		var body user.LoginRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid login payload", perrors.NewErrInvalidRequest("Invalid login payload", err))
			return
		}

		meta := authenticator.ClientMeta(ctx)
		u, err := svc.User.Authenticate(stdCtx, &body, meta.IPAddress)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to log in", serviceError("Failed to log in", err))
			return
		}

		if err := svc.Session.Invalidate(stdCtx, authenticator.Token(ctx)); err != nil {
			writeError(ctx, stdCtx, "Failed to log in", serviceError("Failed to log in", err))
			return
		}

		issued, err := svc.Session.Create(stdCtx, u.ID, meta)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create session", serviceError("Failed to create session", err))
			return
		}
		auth.SetCookie(ctx, issued.Token, issued.ExpiresAt)

		writeOK(ctx, stdCtx, "Logged in successfully", map[string]any{"user": u})
	})

	// Logout
	r.POST("/auth/logout", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		if err := svc.Session.Invalidate(stdCtx, authenticator.Token(ctx)); err != nil {
			writeError(ctx, stdCtx, "Failed to log out", serviceError("Failed to log out", err))
			return
		}
		auth.ClearCookie(ctx)

		writeSuccess(ctx, stdCtx, "Logged out successfully")
	})

	// Change password and rotate the current session
	r.POST("/auth/change-password", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		var body user.ChangePasswordRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid password change payload", perrors.NewErrInvalidRequest("Invalid password change payload", err))
			return
		}

		if err := svc.User.ChangePassword(stdCtx, u.ID, &body, authenticator.ClientIP(ctx)); err != nil {
			writeError(ctx, stdCtx, "Failed to change password", serviceError("Failed to change password", err))
			return
		}

		issued, err := svc.Session.Rotate(stdCtx, authenticator.CurrentSession(ctx).ID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to rotate session", serviceError("Failed to rotate session", err))
			return
		}
		auth.SetCookie(ctx, issued.Token, issued.ExpiresAt)

		writeSuccess(ctx, stdCtx, "Password changed successfully")
	})

	// Current user
	r.GET("/me", func(ctx *fasthttp.RequestCtx) {
		writeOK(ctx, requestContext(ctx), "success", map[string]any{"user": authenticator.CurrentUser(ctx)})
	})
}

// allowAuthAttempt applies the per-IP auth rate limit and writes a 429 when
// it is exhausted. A failing limiter lets the request through.
func allowAuthAttempt(ctx *fasthttp.RequestCtx, stdCtx context.Context, svc *services.Services, action string) bool {
	if svc.RateLimiter == nil {
		return true
	}

	ip := authenticator.ClientIP(ctx)
	allowed, err := svc.RateLimiter.Allow(stdCtx, "auth:"+action+":"+ip, svc.AuthRateLimit)
	if err != nil {
		slog.WarnContext(stdCtx, "Rate limiter unavailable", slog.String("ip", ip), slog.Any("error", err))
		return true
	}
	if !allowed {
		writeError(ctx, stdCtx, "Too many attempts", perrors.New(perrors.ErrCodeTooManyRequests, "Too many attempts, try again later", nil))
		return false
	}
	return true
}
