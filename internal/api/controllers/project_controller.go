package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/api/authenticator"
	"github.com/curaious/projectchron/internal/perrors"
	"github.com/curaious/projectchron/internal/services"
	"github.com/curaious/projectchron/internal/services/project"
	"github.com/curaious/projectchron/internal/services/update"
)

// projectPage is the public detail of a project with its published updates.
type projectPage struct {
	*project.Detail
	Updates []*update.Update `json:"updates"`
}

func RegisterProjectRoutes(r *router.Router, svc *services.Services) {
	// Create project
	r.POST("/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		var body project.CreateProjectRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid project payload", perrors.NewErrInvalidRequest("Invalid project payload", err))
			return
		}

		created, err := svc.Project.Create(stdCtx, u.ID, &body, authenticator.ClientIP(ctx))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create project", serviceError("Failed to create project", err))
			return
		}

		writeOK(ctx, stdCtx, "Project created successfully", map[string]any{"project": created})
	})

	// List the caller's projects
	r.GET("/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		projects, err := svc.Project.ListByOwner(stdCtx, u.ID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list projects", serviceError("Failed to list projects", err))
			return
		}

		writeOK(ctx, stdCtx, "Projects retrieved successfully", map[string]any{"projects": projects})
	})

	// Update project
	r.PATCH("/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", serviceError("Project not found", err))
			return
		}

		var body project.UpdateProjectRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid project payload", perrors.NewErrInvalidRequest("Invalid project payload", err))
			return
		}

		updated, err := svc.Project.Update(stdCtx, id, u.ID, &body, authenticator.ClientIP(ctx))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to update project", serviceError("Failed to update project", err))
			return
		}

		writeOK(ctx, stdCtx, "Project updated successfully", map[string]any{"project": updated})
	})

	// Soft delete project
	r.DELETE("/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", serviceError("Project not found", err))
			return
		}

		if err := svc.Project.SoftDelete(stdCtx, id, u.ID, authenticator.ClientIP(ctx)); err != nil {
			writeError(ctx, stdCtx, "Failed to delete project", serviceError("Failed to delete project", err))
			return
		}

		writeSuccess(ctx, stdCtx, "Project deleted successfully")
	})

	// Audit trail, owner only
	r.GET("/projects/{id}/audit", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		u, ok := requireUser(ctx, stdCtx)
		if !ok {
			return
		}

		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", serviceError("Project not found", err))
			return
		}

		entries, err := svc.Project.ListAudit(stdCtx, id, u.ID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list audit entries", serviceError("Failed to list audit entries", err))
			return
		}

		writeOK(ctx, stdCtx, "Audit entries retrieved successfully", map[string]any{"entries": entries})
	})

	// Public gallery
	r.GET("/public/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		projects, err := svc.Project.ListPublic(stdCtx)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list projects", serviceError("Failed to list projects", err))
			return
		}

		writeOK(ctx, stdCtx, "Projects retrieved successfully", map[string]any{"projects": projects})
	})

	// Project page by slug
	r.GET("/public/projects/{slug}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		slug, err := pathParam(ctx, "slug")
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", perrors.NewErrNotFound("Project not found", err))
			return
		}

		detail, err := svc.Project.GetBySlug(stdCtx, slug, viewerID(ctx))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to load project", serviceError("Failed to load project", err))
			return
		}

		updates, err := svc.Update.ListPublished(stdCtx, detail.Project.ID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to load updates", serviceError("Failed to load updates", err))
			return
		}

		writeOK(ctx, stdCtx, "Project retrieved successfully", projectPage{Detail: detail, Updates: updates})
	})
}
