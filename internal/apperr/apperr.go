// Package apperr defines the error taxonomy shared by the gateway's services
// and its HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	CodeClientInput         Code = "CLIENT_INPUT_ERROR"
	CodeServerConfiguration Code = "SERVER_CONFIGURATION_ERROR"
	CodeUpstreamService     Code = "UPSTREAM_SERVICE_ERROR"
	CodePersistence         Code = "PERSISTENCE_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeForbidden           Code = "FORBIDDEN"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeTimeout             Code = "TIMEOUT"
	CodeResourceUnavailable Code = "RESOURCE_UNAVAILABLE"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is a classified failure carrying the HTTP status it maps to.
type Error struct {
	Code    Code
	Message string
	// Details is optional client-safe context, e.g. the upstream error text.
	Details string
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetails sets the client-visible details.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// ClientInput reports malformed or invalid caller input.
func ClientInput(msg string) *Error {
	return &Error{Code: CodeClientInput, Message: msg, Status: http.StatusBadRequest}
}

// ServerConfiguration reports missing or invalid deploy-time settings.
func ServerConfiguration(msg string) *Error {
	return &Error{Code: CodeServerConfiguration, Message: msg, Status: http.StatusInternalServerError}
}

// Upstream reports a failure of the completion service. A status outside the
// 4xx/5xx range becomes 502.
func Upstream(status int, msg string, cause error) *Error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return &Error{Code: CodeUpstreamService, Message: msg, Status: status, Cause: cause}
}

// Persistence reports a conversation store failure.
func Persistence(msg string, cause error) *Error {
	return &Error{Code: CodePersistence, Message: msg, Status: http.StatusInternalServerError, Cause: cause}
}

// NotFound reports a missing resource.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg, Status: http.StatusNotFound}
}

// Forbidden reports an access policy denial.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg, Status: http.StatusForbidden}
}

// RateLimited reports a caller over its request budget.
func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg, Status: http.StatusTooManyRequests}
}

// Timeout reports an operation that exceeded its deadline.
func Timeout(msg string, cause error) *Error {
	return &Error{Code: CodeTimeout, Message: msg, Status: http.StatusGatewayTimeout, Cause: cause}
}

// Unavailable reports a capability running on its fallback.
func Unavailable(msg string) *Error {
	return &Error{Code: CodeResourceUnavailable, Message: msg, Status: http.StatusServiceUnavailable}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, Status: http.StatusInternalServerError, Cause: cause}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err's chain carries the given code.
func IsCode(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// CodeOf returns err's code, or def when err is not classified.
func CodeOf(err error, def Code) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return def
}

// StatusOf returns the HTTP status for err, 500 when unclassified.
func StatusOf(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}
