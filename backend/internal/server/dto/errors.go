// Structured API errors with stable machine-readable codes.
package dto

import (
	"fmt"
	"net/http"
	"strings"
)

// Code identifies an error category. Codes are part of the API contract and
// must stay stable; the frontend switches on them.
type Code string

// Error codes returned by the API.
const (
	CodeInvalid        Code = "invalid_request"
	CodeForbidden      Code = "forbidden"
	CodeNotFound       Code = "not_found"
	CodeRateLimited    Code = "rate_limited"
	CodeNotConfigured  Code = "not_configured"
	CodeDeliveryFailed Code = "delivery_failed"
	CodeInternal       Code = "internal"
)

// ErrorDetails is the JSON body of an error response.
type ErrorDetails struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorDetails in the envelope the frontend expects.
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// Error is an API error carrying an HTTP status, a stable code, and an
// optional wrapped cause. The cause is logged server-side and never
// serialized — transport details (SMTP errors in particular) must not leak
// to clients.
type Error struct {
	Status  int
	Details ErrorDetails
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Details.Code, e.Details.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Details.Code, e.Details.Message)
}

// Unwrap returns the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// Cause returns the wrapped cause, or nil.
func (e *Error) Cause() error { return e.cause }

// Wrap attaches a cause for server-side logging. Returns e for chaining.
func (e *Error) Wrap(err error) *Error {
	e.cause = err
	return e
}

// WithDetail adds a key/value pair to the serialized details map. Returns e
// for chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details.Details == nil {
		e.Details.Details = map[string]string{}
	}
	e.Details.Details[key] = value
	return e
}

func newError(status int, code Code, msg string) *Error {
	return &Error{Status: status, Details: ErrorDetails{Code: code, Message: msg}}
}

// BadRequest returns a 400 invalid_request error.
func BadRequest(msg string) *Error {
	return newError(http.StatusBadRequest, CodeInvalid, msg)
}

// Invalid returns a 400 invalid_request error naming the offending fields.
func Invalid(fields ...string) *Error {
	return BadRequest("invalid field(s): " + strings.Join(fields, ", ")).
		WithDetail("fields", strings.Join(fields, ","))
}

// Forbidden returns a 403 forbidden error.
func Forbidden(msg string) *Error {
	return newError(http.StatusForbidden, CodeForbidden, msg)
}

// NotFound returns a 404 not_found error for the named resource.
func NotFound(what string) *Error {
	return newError(http.StatusNotFound, CodeNotFound, what+" not found")
}

// RateLimited returns a 429 rate_limited error.
func RateLimited(msg string) *Error {
	return newError(http.StatusTooManyRequests, CodeRateLimited, msg)
}

// NotConfigured returns a 503 not_configured error.
func NotConfigured(msg string) *Error {
	return newError(http.StatusServiceUnavailable, CodeNotConfigured, msg)
}

// DeliveryFailed returns a 502 delivery_failed error. The message shown to
// the caller stays generic; wrap the transport error for logs only.
func DeliveryFailed(msg string) *Error {
	return newError(http.StatusBadGateway, CodeDeliveryFailed, msg)
}

// InternalError returns a 500 internal error.
func InternalError(msg string) *Error {
	return newError(http.StatusInternalServerError, CodeInternal, msg)
}
