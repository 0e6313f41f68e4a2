package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/services"
)

func RegisterFollowRoutes(r *router.Router, svc *services.Services) {
	r.POST("/projects/{id}/follow", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		projectID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", serviceError("Project not found", err))
			return
		}

		if err := svc.Follow.Follow(stdCtx, projectID, u.ID); err != nil {
			writeError(ctx, stdCtx, "Failed to follow project", serviceError("Failed to follow project", err))
			return
		}

		writeSuccess(ctx, stdCtx, "Project followed")
	})

	r.DELETE("/projects/{id}/follow", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		projectID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", serviceError("Project not found", err))
			return
		}

		if err := svc.Follow.Unfollow(stdCtx, projectID, u.ID); err != nil {
			writeError(ctx, stdCtx, "Failed to unfollow project", serviceError("Failed to unfollow project", err))
			return
		}

		writeSuccess(ctx, stdCtx, "Project unfollowed")
	})
}
