package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	json "github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/curaious/projectchron/internal/perrors"
)

// Response is written as Data on success and as {error, issues?} on failure.
type Response[T any] struct {
	ctx          context.Context
	ErrorDetails perrors.Err
	Error        bool
	Message      string
	Data         T
	Status       int
}

func NewResponse[T any](ctx context.Context, msg string, data T) *Response[T] {
	return &Response[T]{
		ctx:     ctx,
		Message: msg,
		Data:    data,
		Status:  http.StatusOK,
	}
}

// WithError sets the error field for the response
func (r *Response[T]) WithError(err error) *Response[T] {
	// Set http status from error if available
	var perr perrors.Err
	if !errors.As(err, &perr) {
		perr = perrors.NewErrInternalServerError(r.Message, err).(perrors.Err)
	}

	r.Status = perr.HttpStatus()
	r.ErrorDetails = perr
	perr.Print(r.ctx)

	r.Error = true

	return r
}

// Write will set the `content-type` to `application/json` and write the response to the fasthttp context.
func (r *Response[T]) Write(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("content-type", "application/json")
	ctx.SetStatusCode(r.Status)

	var (
		body []byte
		err  error
	)
	if r.Error {
		body, err = json.Marshal(r.ErrorDetails)
	} else {
		body, err = json.Marshal(r.Data)
	}
	if err != nil {
		slog.ErrorContext(r.ctx, "Unable to json encode response", slog.Any("error", err))
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}

	ctx.SetBody(body)
}
