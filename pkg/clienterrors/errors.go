// Package clienterrors normalizes every failure seen by the client into a
// fixed taxonomy so flows can decide between inline messages and
// retry-by-resubmission without inspecting transport details.
package clienterrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel kinds. Every *Error wraps exactly one of these, so callers
// classify with errors.Is.
var (
	ErrNetwork        = errors.New("no response reached the server")
	ErrTimeout        = errors.New("request deadline exceeded")
	ErrAuthentication = errors.New("authentication failed")
	ErrValidation     = errors.New("validation failed")
	ErrServer         = errors.New("server error")
	ErrUnknown        = errors.New("unclassified error")
)

// Error is a structured client-side error with HTTP status and optional
// per-field validation messages.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"-"` // 0 when no response was received
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Network creates an error for a request that never reached the server.
func Network(message string, cause error) *Error {
	return &Error{
		Code:    "NETWORK",
		Message: message,
		Err:     join(ErrNetwork, cause),
	}
}

// Timeout creates an error for a request that exceeded its deadline.
func Timeout(message string, cause error) *Error {
	return &Error{
		Code:    "TIMEOUT",
		Message: message,
		Err:     join(ErrTimeout, cause),
	}
}

// Authentication creates a 401/403 error.
func Authentication(status int, message string) *Error {
	return &Error{
		Code:    "AUTHENTICATION",
		Message: message,
		Status:  status,
		Err:     ErrAuthentication,
	}
}

// Validation creates a 400/422 error, optionally carrying per-field messages.
func Validation(status int, message string, fields map[string]string) *Error {
	return &Error{
		Code:    "VALIDATION",
		Message: message,
		Status:  status,
		Fields:  fields,
		Err:     ErrValidation,
	}
}

// InvalidInput creates a local validation error that never left the device.
func InvalidInput(message string, fields map[string]string) *Error {
	return Validation(0, message, fields)
}

// Server creates a 5xx error.
func Server(status int, message string) *Error {
	return &Error{
		Code:    "SERVER",
		Message: message,
		Status:  status,
		Err:     ErrServer,
	}
}

// Unknown creates an unclassified error.
func Unknown(status int, message string, cause error) *Error {
	return &Error{
		Code:    "UNKNOWN",
		Message: message,
		Status:  status,
		Err:     join(ErrUnknown, cause),
	}
}

// FromTransport classifies an error returned by the HTTP transport,
// before any response was received.
func FromTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout("the request timed out, try again", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout("the request timed out, try again", err)
	}

	return Network("no connection to the server, check your network", err)
}

// FromStatus classifies a non-2xx HTTP response into the taxonomy.
// The message should already be the most specific one available
// (the backend-provided message when the body carried one).
func FromStatus(status int, message string, fields map[string]string) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Authentication(status, message)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return Validation(status, message, fields)
	case status >= 500:
		return Server(status, message)
	default:
		return Unknown(status, message, nil)
	}
}

// IsRetryable reports whether the failure is worth a manual resubmission
// (network, timeout, or server trouble) as opposed to bad input or bad
// credentials.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServer)
}

// Title returns a short user-facing headline for the error kind, used as
// the title of a blocking confirmation.
func Title(err error) string {
	switch {
	case errors.Is(err, ErrNetwork):
		return "Network error"
	case errors.Is(err, ErrTimeout):
		return "Request timed out"
	case errors.Is(err, ErrAuthentication):
		return "Authentication error"
	case errors.Is(err, ErrValidation):
		return "Validation error"
	case errors.Is(err, ErrServer):
		return "Server error"
	default:
		return "Error"
	}
}

func join(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
