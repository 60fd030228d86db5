package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the portal client
var (
	// Transport errors
	ErrConnectivity = errors.New("connectivity error") // no response reached the client

	// Authentication errors
	ErrAuthentication  = errors.New("authentication failed")
	ErrNoRefreshToken  = errors.New("no refresh token available")
	ErrInvalidToken    = errors.New("invalid token")
	ErrSessionNotFound = errors.New("session not found")

	// Authorization errors
	ErrForbidden = errors.New("insufficient permissions")

	// Server errors
	ErrServer           = errors.New("server error")
	ErrMalformedPayload = errors.New("malformed response payload")

	// Local storage errors
	ErrFileUnavailable = errors.New("shared file unavailable")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// StatusError is returned for any non-success HTTP response. Kind is one of
// the classification sentinels above, so callers can use errors.Is(err, ErrServer).
type StatusError struct {
	StatusCode int
	Kind       error
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}

// Is makes every status other than 401 and 403 match ErrServer, so a 404
// is both ErrNotFound and ErrServer
func (e *StatusError) Is(target error) bool {
	return target == ErrServer &&
		e.StatusCode != http.StatusUnauthorized &&
		e.StatusCode != http.StatusForbidden
}

// Classify maps a non-success status code onto an error kind
func Classify(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return ErrAuthentication
	case statusCode == http.StatusForbidden:
		return ErrForbidden
	case statusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrServer
	}
}

// NewStatusError builds a classified StatusError. Long bodies are truncated.
func NewStatusError(statusCode int, body []byte) *StatusError {
	const maxBody = 256
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &StatusError{
		StatusCode: statusCode,
		Kind:       Classify(statusCode),
		Body:       string(body),
	}
}

// StatusCode extracts the HTTP status of err, or 0 when err carries none
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}
