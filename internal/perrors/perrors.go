package perrors

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
)

type ErrCode struct {
	Code   string `json:"code"`
	Status int    `json:"status"`
}

var (
	ErrCodeInvalidRequest  ErrCode = ErrCode{"invalid_request", http.StatusBadRequest}
	ErrCodeValidation              = ErrCode{"validation_error", http.StatusBadRequest}
	ErrCodeBusinessRule            = ErrCode{"business_rule", http.StatusBadRequest}
	ErrCodeUnauthorized            = ErrCode{"unauthorized", http.StatusUnauthorized}
	ErrCodeForbidden               = ErrCode{"forbidden", http.StatusForbidden}
	ErrCodeNotFound                = ErrCode{"not_found", http.StatusNotFound}
	ErrCodeMethodNotAllowed        = ErrCode{"method_not_allowed", http.StatusMethodNotAllowed}
	ErrCodeConflict                = ErrCode{"conflict", http.StatusConflict}
	ErrCodeTooManyRequests         = ErrCode{"too_many_requests", http.StatusTooManyRequests}
	ErrCodeInternalServer          = ErrCode{"internal_server_error", http.StatusInternalServerError}
)

// Issues maps a request field to the messages describing why it was rejected.
type Issues map[string][]string

type Err struct {
	Message    string                   `json:"error"`
	Issues     Issues                   `json:"issues,omitempty"`
	Cause      string                   `json:"-"`
	Code       ErrCode                  `json:"-"`
	Stacktrace []string                 `json:"-"`
	Args       []map[string]interface{} `json:"-"`
}

func (e Err) Error() string {
	if e.Cause != "" {
		return e.Message + ": " + e.Cause
	}
	return e.Message
}

func (e Err) HttpStatus() int {
	return e.Code.Status
}

// Print logs the error. Client errors are logged at warn level without a stacktrace.
func (e Err) Print(ctx context.Context) {
	args := []any{slog.String("code", e.Code.Code), slog.String("cause", e.Cause)}
	if len(e.Args) > 0 {
		for k, v := range e.Args[0] {
			args = append(args, slog.Any(k, v))
		}
	}

	if e.Code.Status < http.StatusInternalServerError {
		slog.WarnContext(ctx, e.Message, args...)
		return
	}

	args = append(args, slog.Any("stacktrace", e.Stacktrace))
	slog.ErrorContext(ctx, e.Message, args...)
}

func New(code ErrCode, msg string, err error, args ...map[string]interface{}) error {
	pc := make([]uintptr, 20)
	count := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:count])

	var stacktrace []string
	for frame, hasMore := frames.Next(); hasMore; frame, hasMore = frames.Next() {
		stacktrace = append(stacktrace, fmt.Sprintf("%s:%d", frame.File, frame.Line))
	}

	cause := ""
	if err != nil {
		cause = err.Error()
	}

	return Err{
		Code:       code,
		Message:    msg,
		Cause:      cause,
		Stacktrace: stacktrace,
		Args:       args,
	}
}

// NewErrValidation reports malformed input together with field-level issues.
func NewErrValidation(msg string, issues Issues) error {
	return Err{
		Code:    ErrCodeValidation,
		Message: msg,
		Issues:  issues,
	}
}

func NewErrInvalidRequest(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeInvalidRequest, msg, err, args...)
}

func NewErrUnauthorized(msg string) error {
	return New(ErrCodeUnauthorized, msg, nil)
}

func NewErrForbidden(msg string, err error) error {
	return New(ErrCodeForbidden, msg, err)
}

func NewErrNotFound(msg string, err error) error {
	return New(ErrCodeNotFound, msg, err)
}

func NewErrInternalServerError(msg string, err error, args ...map[string]interface{}) error {
	return New(ErrCodeInternalServer, msg, err, args...)
}
