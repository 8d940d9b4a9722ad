package types

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	ERR_NOT_FOUND     ErrorKind = "NOT_FOUND"
	ERR_INVALID_STATE ErrorKind = "INVALID_STATE"
	ERR_UNAUTHORIZED  ErrorKind = "UNAUTHORIZED"
	ERR_FORBIDDEN     ErrorKind = "FORBIDDEN"
	ERR_INTERNAL      ErrorKind = "INTERNAL"
)

func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ERR_NOT_FOUND:
		return http.StatusNotFound
	case ERR_INVALID_STATE:
		return http.StatusBadRequest
	case ERR_UNAUTHORIZED:
		return http.StatusUnauthorized
	case ERR_FORBIDDEN:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// AppError is the error every service operation returns. Err keeps the
// lower-level cause for logs; it is never rendered outside development.
type AppError struct {
	Kind      ErrorKind
	Message   string
	Retryable bool
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...any) *AppError {
	return &AppError{Kind: ERR_NOT_FOUND, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *AppError {
	return &AppError{Kind: ERR_INVALID_STATE, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *AppError {
	return &AppError{Kind: ERR_UNAUTHORIZED, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *AppError {
	return &AppError{Kind: ERR_FORBIDDEN, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected datastore or gateway failure. Deadline and
// cancellation causes are marked retryable.
func Internal(message string, err error) *AppError {
	return &AppError{
		Kind:      ERR_INTERNAL,
		Message:   message,
		Err:       err,
		Retryable: errors.Is(err, context.DeadlineExceeded),
	}
}

func Retryable(message string, err error) *AppError {
	return &AppError{Kind: ERR_INTERNAL, Message: message, Err: err, Retryable: true}
}

// AsAppError returns err as an *AppError, passing business errors through
// unchanged and wrapping anything else as INTERNAL.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("unexpected error", err)
}

func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
