package booking

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrLoginRequired means the wizard needs an authenticated user
	ErrLoginRequired = errors.New("login required")

	// ErrScheduleRequired means no usable schedule id was supplied
	ErrScheduleRequired = errors.New("schedule id required")

	// ErrSubmitInProgress rejects a second submit while one is running
	ErrSubmitInProgress = errors.New("booking submission already in progress")

	// ErrInvalidTransition rejects an operation not allowed in the current step
	ErrInvalidTransition = errors.New("operation not allowed in the current step")

	// ErrSoldOut rejects continuing to payment on a schedule without seats
	ErrSoldOut = errors.New("no seats available on this schedule")

	// ErrNotLoaded rejects edits while the trip could not be loaded
	ErrNotLoaded = errors.New("trip details are not loaded")
)

// RedirectError tells the caller to send the user elsewhere before the
// wizard can start
type RedirectError struct {
	To       string
	ReturnTo string
	Reason   string
	Err      error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s: %v", e.To, e.Err)
}

func (e *RedirectError) Unwrap() error { return e.Err }

// Location is the redirect target including the return destination
func (e *RedirectError) Location() string {
	if e.ReturnTo == "" {
		return e.To
	}
	return e.To + "?next=" + url.QueryEscape(e.ReturnTo)
}

// ValidationError lists the fields that block a transition
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(e.Fields, ", "))
}

// HasField reports whether field is among the invalid ones
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}
