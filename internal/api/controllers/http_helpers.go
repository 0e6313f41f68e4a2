package controllers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/api/authenticator"
	"github.com/curaious/projectchron/internal/api/response"
	"github.com/curaious/projectchron/internal/perrors"
	"github.com/curaious/projectchron/internal/services/feed"
	"github.com/curaious/projectchron/internal/services/follow"
	"github.com/curaious/projectchron/internal/services/media"
	"github.com/curaious/projectchron/internal/services/project"
	"github.com/curaious/projectchron/internal/services/update"
	"github.com/curaious/projectchron/internal/services/user"
)

// TraceCtxKey holds the context carrying the caller's trace, set by the
// request middleware.
const TraceCtxKey = "traceCtx"

// requestContext returns the context for downstream calls. fasthttp does not
// provide a standard context, so the middleware stores one with the
// extracted trace.
func requestContext(ctx *fasthttp.RequestCtx) context.Context {
	if traceCtx, ok := ctx.UserValue(TraceCtxKey).(context.Context); ok {
		return traceCtx
	}
	return context.Background()
}

func parseBody(ctx *fasthttp.RequestCtx, target any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}

	return json.Unmarshal(body, target)
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, err error) {
	response.NewResponse[any](stdCtx, message, nil).WithError(err).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).Write(ctx)
}

func writeSuccess(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string) {
	writeOK(ctx, stdCtx, message, map[string]any{"success": true})
}

func pathParam(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val := ctx.UserValue(key)
	if val == nil {
		return "", fmt.Errorf("%s is required", key)
	}

	return fmt.Sprint(val), nil
}

// pathParamUUID reports a malformed id as a missing project so that probing
// ids reveals nothing.
func pathParamUUID(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val, err := pathParam(ctx, key)
	if err != nil {
		return "", err
	}

	if _, err := uuid.Parse(val); err != nil {
		return "", project.ErrProjectNotFound
	}
	return val, nil
}

func intQuery(ctx *fasthttp.RequestCtx, key string) (int, error) {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return 0, nil
	}

	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, perrors.NewErrValidation("Invalid query", perrors.Issues{key: {"Must be a number."}})
	}
	return n, nil
}

// requireUser returns the signed-in user or writes a 401.
func requireUser(ctx *fasthttp.RequestCtx, stdCtx context.Context) (*user.User, bool) {
	u := authenticator.CurrentUser(ctx)
	if u == nil {
		writeError(ctx, stdCtx, "Not authenticated", perrors.NewErrUnauthorized("Not authenticated"))
		return nil, false
	}
	return u, true
}

func viewerID(ctx *fasthttp.RequestCtx) string {
	if u := authenticator.CurrentUser(ctx); u != nil {
		return u.ID
	}
	return ""
}

// serviceError maps a service failure to its HTTP error. Anything it does not
// recognise is reported as a 500.
func serviceError(message string, err error) error {
	var perr perrors.Err
	if errors.As(err, &perr) {
		return perr
	}

	switch {
	case errors.Is(err, user.ErrUsernameTaken):
		return perrors.New(perrors.ErrCodeConflict, "Username is already taken", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return perrors.New(perrors.ErrCodeUnauthorized, "Invalid username or password", err)
	case errors.Is(err, user.ErrWrongPassword):
		return perrors.NewErrInvalidRequest("Current password is incorrect", err)
	case errors.Is(err, project.ErrForbidden):
		return perrors.NewErrForbidden("You do not have access to this project", err)
	case errors.Is(err, follow.ErrProjectNotPublic):
		return perrors.NewErrForbidden("Only public projects can be followed", err)
	case errors.Is(err, media.ErrAdminOnly):
		return perrors.NewErrForbidden("Only administrators can do this", err)
	case errors.Is(err, project.ErrProjectNotFound):
		return perrors.NewErrNotFound("Project not found", err)
	case errors.Is(err, update.ErrUpdateNotFound):
		return perrors.NewErrNotFound("Update not found", err)
	case errors.Is(err, update.ErrHighlightLimitReached):
		return perrors.New(perrors.ErrCodeBusinessRule, fmt.Sprintf("A project can have at most %d highlights", update.MaxHighlights), err)
	case errors.Is(err, update.ErrInvalidBlockCount):
		return perrors.New(perrors.ErrCodeBusinessRule, "An update needs between 1 and 200 blocks", err)
	case errors.Is(err, feed.ErrInvalidCursor):
		return perrors.NewErrValidation("Invalid cursor", perrors.Issues{"cursor": {"Unknown cursor."}})
	default:
		return perrors.NewErrInternalServerError(message, err)
	}
}
