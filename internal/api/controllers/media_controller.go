package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/api/authenticator"
	"github.com/curaious/projectchron/internal/perrors"
	"github.com/curaious/projectchron/internal/services"
	"github.com/curaious/projectchron/internal/services/media"
)

// JobWaker is notified after an asset is registered so that an in-process
// worker can poll straight away.
type JobWaker interface {
	Wake()
}

func RegisterMediaRoutes(r *router.Router, svc *services.Services, waker JobWaker) {
	// Register an uploaded file and queue its processing jobs
	r.POST("/media/assets", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		var body media.RegisterAssetRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid media payload", perrors.NewErrInvalidRequest("Invalid media payload", err))
			return
		}

		asset, err := svc.Media.Register(stdCtx, u, &body, authenticator.ClientIP(ctx))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to register media", serviceError("Failed to register media", err))
			return
		}
		if waker != nil {
			waker.Wake()
		}

		writeOK(ctx, stdCtx, "Media registered successfully", map[string]any{"asset": asset})
	})

	// Job queue, admins only
	r.GET("/media/jobs", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		limit, err := intQuery(ctx, "limit")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid query", err)
			return
		}

		jobs, err := svc.Media.ListJobs(stdCtx, u, limit)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list media jobs", serviceError("Failed to list media jobs", err))
			return
		}

		writeOK(ctx, stdCtx, "Media jobs retrieved successfully", map[string]any{"jobs": jobs})
	})
}
