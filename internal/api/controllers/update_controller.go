package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/api/authenticator"
	"github.com/curaious/projectchron/internal/perrors"
	"github.com/curaious/projectchron/internal/services"
	"github.com/curaious/projectchron/internal/services/update"
)

func RegisterUpdateRoutes(r *router.Router, svc *services.Services) {
	// Post an update
	r.POST("/projects/{id}/updates", func(ctx *fasthttp.RequestCtx) {
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

		var body update.CreateUpdateRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid update payload", perrors.NewErrInvalidRequest("Invalid update payload", err))
			return
		}

		created, err := svc.Update.Create(stdCtx, projectID, u.ID, &body, authenticator.ClientIP(ctx))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create update", serviceError("Failed to create update", err))
			return
		}

		writeOK(ctx, stdCtx, "Update created successfully", map[string]any{"update": created})
	})

	// List a project's updates
	r.GET("/projects/{id}/updates", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		projectID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", serviceError("Project not found", err))
			return
		}

		result, err := svc.Update.ListForProject(stdCtx, projectID, viewerID(ctx))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list updates", serviceError("Failed to list updates", err))
			return
		}

		writeOK(ctx, stdCtx, "Updates retrieved successfully", result)
	})

	// Toggle a highlight
	r.POST("/projects/{id}/highlight", func(ctx *fasthttp.RequestCtx) {
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

		var body update.HighlightRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid highlight payload", perrors.NewErrInvalidRequest("Invalid highlight payload", err))
			return
		}

		if err := svc.Update.ToggleHighlight(stdCtx, projectID, u.ID, &body, authenticator.ClientIP(ctx)); err != nil {
			writeError(ctx, stdCtx, "Failed to toggle highlight", serviceError("Failed to toggle highlight", err))
			return
		}

		writeSuccess(ctx, stdCtx, "Highlight updated successfully")
	})
}
