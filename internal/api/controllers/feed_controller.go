package controllers

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/services"
)

func RegisterFeedRoutes(r *router.Router, svc *services.Services) {
	// Global activity feed, newest first
	r.GET("/feed", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		limit, err := intQuery(ctx, "limit")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid query", err)
			return
		}

		page, err := svc.Feed.GetGlobalFeed(stdCtx, string(ctx.QueryArgs().Peek("cursor")), limit)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to load feed", serviceError("Failed to load feed", err))
			return
		}

		writeOK(ctx, stdCtx, "Feed retrieved successfully", page)
	})
}
