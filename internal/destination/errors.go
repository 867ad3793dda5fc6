package destination

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap them with %w and test with errors.Is.
var (
	// ErrValidation marks malformed input. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrAuth marks a failed credential exchange or a repeated credential rejection.
	ErrAuth = errors.New("authentication error")
	// ErrNotFound marks a location or forecast the upstream does not know.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous marks a lookup that returned no usable coordinates.
	ErrAmbiguous = errors.New("ambiguous or missing coordinates")
	// ErrUpstream marks network failures, timeouts, 5xx and malformed responses.
	ErrUpstream = errors.New("upstream error")
)

// Validationf returns an ErrValidation-kind error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err must be returned to the caller instead of triggering a fallback.
func IsFatal(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrAuth)
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.URL, e.Code)
}

// Unwrap maps the status code onto an error kind.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == 401 || e.Code == 403:
		return ErrAuth
	case e.Code == 404:
		return ErrNotFound
	default:
		return ErrUpstream
	}
}

// Unauthorized reports whether err is an HTTP 401 from an upstream.
func Unauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == 401
}
