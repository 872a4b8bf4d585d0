package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the structured failure every data-access call returns
type Error struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
	Err    error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error %d", e.Status)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error with the given status and detail
func NewError(status int, detail string) *Error {
	return &Error{Status: status, Detail: detail}
}

// Errorf builds an Error with a formatted detail
func Errorf(status int, format string, args ...interface{}) *Error {
	return &Error{Status: status, Detail: fmt.Sprintf(format, args...)}
}

// NotFound builds a 404 for the named resource
func NotFound(resource string, id int64) *Error {
	return Errorf(http.StatusNotFound, "%s %d not found", resource, id)
}

// Unavailable wraps a transport failure
func Unavailable(err error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Detail: "service unavailable, please try again", Err: err}
}

// InvalidPayload reports a response that failed schema validation
func InvalidPayload(resource string, err error) *Error {
	return &Error{
		Status: http.StatusBadGateway,
		Detail: fmt.Sprintf("invalid %s payload: %v", resource, err),
		Err:    err,
	}
}

// StatusOf extracts the status of an Error, 0 when err is not one
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// DetailOf returns the human readable message for err, or fallback
func DetailOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// IsNotFound reports a 404
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// IsUnauthorized reports a 401
func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }

// IsForbidden reports a 403
func IsForbidden(err error) bool { return StatusOf(err) == http.StatusForbidden }
