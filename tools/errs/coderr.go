package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// CodeError is the JSON error surface of the REST API. The realtime gateway
// never uses it: the socket transport has no error path back to the sender.
type CodeError struct {
	Code   int      `json:"statusCode"`
	Status string   `json:"status"`
	Msg    string   `json:"message"`
	Errors []string `json:"errors,omitempty"`
	Detail string   `json:"detail,omitempty"`
}

func (e *CodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d: %s (%s)", e.Code, e.Msg, e.Detail)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Msg)
}

func NewCodeError(code int, msg string, fields ...string) *CodeError {
	return &CodeError{Code: code, Status: "error", Msg: msg, Errors: fields}
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	out := *e
	if out.Detail == "" {
		out.Detail = detail
	} else {
		out.Detail += ", " + detail
	}
	return &out
}

// Common REST errors.
var (
	ErrUnauthorized = NewCodeError(401, "authorization required")
	ErrTokenInvalid = NewCodeError(401, "token is invalid or expired")
	ErrNotFound     = NewCodeError(404, "not found")
)

// Wrap / WrapMsg keep call sites uniform with the rest of the codebase.
func Wrap(err error) error { return errors.WithStack(err) }

func WrapMsg(err error, msg string, kv ...any) error {
	if len(kv) > 0 {
		msg = fmt.Sprintf("%s %v", msg, kv)
	}
	return errors.Wrap(err, msg)
}

func New(msg string) error { return errors.New(msg) }
