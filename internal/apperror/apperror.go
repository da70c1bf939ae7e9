package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrForbiddenTarget = errors.New("forbidden target")
	ErrGatewayTimeout  = errors.New("gateway timeout")
	ErrUpstream        = errors.New("upstream error")
)

type AppError struct {
	Err     error  // error class sentinel
	Message string // Human-readable error message
	Status  int    // Optional: upstream HTTP status, when known
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func Validation(message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
	}
}

// ForbiddenTarget returns an AppError for a proxy target outside the
// allow-list. HTTP handlers map this to 403 Forbidden.
func ForbiddenTarget(target string) *AppError {
	return &AppError{
		Err:     ErrForbiddenTarget,
		Message: fmt.Sprintf("target not allowed: %s", target),
	}
}

func GatewayTimeout(target string) *AppError {
	return &AppError{
		Err:     ErrGatewayTimeout,
		Message: fmt.Sprintf("upstream did not respond in time: %s", target),
	}
}

func Upstream(status int, message string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
		Status:  status,
	}
}

// FromTransport classifies a transport-level error from an outbound fetch:
// timeouts become gateway timeouts, everything else an upstream error.
func FromTransport(err error, target string) *AppError {
	var ne net.Error
	if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return GatewayTimeout(target)
	}
	return Upstream(0, fmt.Sprintf("fetching %s: %v", target, err))
}

// HTTPStatus maps an error to the status code HTTP handlers should respond with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbiddenTarget):
		return http.StatusForbidden
	case errors.Is(err, ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
