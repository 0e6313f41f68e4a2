package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/curaious/projectchron/internal/api/controllers"
	"github.com/curaious/projectchron/internal/api/response"
	"github.com/curaious/projectchron/internal/perrors"
)

var tracePropagator = propagation.TraceContext{}

func (s *Server) initNewRoutes() fasthttp.RequestHandler {
	r := router.New()

	r.GET("/api/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.Write([]byte("OK"))
	})

	controllers.RegisterAuthRoutes(r, s.services, s.auth)
	controllers.RegisterProjectRoutes(r, s.services)
	controllers.RegisterUpdateRoutes(r, s.services)
	controllers.RegisterFollowRoutes(r, s.services)
	controllers.RegisterFeedRoutes(r, s.services)
	controllers.RegisterMediaRoutes(r, s.services, s.waker)

	r.NotFound = func(ctx *fasthttp.RequestCtx) {
		response.NewResponse[any](context.Background(), "Not found", nil).
			WithError(perrors.NewErrNotFound("Not found", nil)).
			Write(ctx)
	}
	r.MethodNotAllowed = func(ctx *fasthttp.RequestCtx) {
		response.NewResponse[any](context.Background(), "Method not allowed", nil).
			WithError(perrors.New(perrors.ErrCodeMethodNotAllowed, "Method not allowed", nil)).
			Write(ctx)
	}

	return s.withMiddlewares(r.Handler)
}

func (s *Server) withMiddlewares(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		applyCORS(ctx)
		if string(ctx.Method()) == fasthttp.MethodOptions {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		start := time.Now()
		uri := ctx.URI()
		requestURI := string(uri.FullURI())
		slog.Info("Started processing", slog.String("method", string(ctx.Method())), slog.String("request_uri", requestURI))

		h := http.Header{}
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			h[string(k)] = []string{string(v)}
		})
		traceCtx := tracePropagator.Extract(context.Background(), propagation.HeaderCarrier(h))
		ctx.SetUserValue(controllers.TraceCtxKey, traceCtx)

		// Session check. Anonymous requests carry on; handlers decide what
		// needs a user.
		if err := s.auth.Resolve(traceCtx, ctx); err != nil {
			response.NewResponse[any](traceCtx, "Failed to resolve session", nil).
				WithError(perrors.NewErrInternalServerError("Failed to resolve session", err)).
				Write(ctx)
			return
		}

		next(ctx)

		slog.Info("Finished processing",
			slog.String("method", string(ctx.Method())),
			slog.String("request_uri", requestURI),
			slog.String("trace_id", trace.SpanContextFromContext(traceCtx).TraceID().String()),
			slog.Int("status", ctx.Response.StatusCode()),
			slog.Duration("duration", time.Since(start)))
	}
}

func applyCORS(ctx *fasthttp.RequestCtx) {
	headers := &ctx.Response.Header
	headers.Set("Access-Control-Allow-Origin", string(ctx.Request.Header.Peek("Origin")))
	headers.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS,PATCH")
	headers.Set("Access-Control-Allow-Headers", os.Getenv("ALLOWED_HEADERS"))
	headers.Set("Access-Control-Allow-Credentials", "true")
}
