package backend

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated indicates the backend rejected the call for a missing or
// expired credential. The reconciler treats this as the signal to fall back
// to guest storage.
var ErrUnauthenticated = errors.New("backend: authentication required")

// ErrNotFound indicates the requested resource does not exist.
var ErrNotFound = errors.New("backend: not found")

// ErrOTPRejected indicates the backend refused an OTP request or verification.
var ErrOTPRejected = errors.New("backend: otp rejected")

// APIError carries the status and `{message}` body of a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: status %d", e.Status)
	}
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// Is maps HTTP statuses onto the package sentinels so callers can branch with
// errors.Is without inspecting status codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Status == 401 || e.Status == 403
	case ErrNotFound:
		return e.Status == 404
	default:
		return false
	}
}

// UserMessage returns the server-supplied message when present, else a
// generic retry notice suitable for display.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Something went wrong. Please try again."
}
