package upload

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoURL is returned when the storage endpoint is not configured.
	ErrNoURL = errors.New("upload: API URL required")

	// ErrQueueFull is returned when the dispatcher cannot accept a summary.
	ErrQueueFull = errors.New("upload: queue full")

	// ErrClosed is returned when submitting to a closed dispatcher.
	ErrClosed = errors.New("upload: dispatcher closed")
)

// APIError represents a non-201 response from the storage API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the (truncated) response body.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload: API error %d", e.StatusCode)
	}
	return fmt.Sprintf("upload: API error %d: %s", e.StatusCode, e.Body)
}

// IsUnauthorized returns true if the token was rejected (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsValidation returns true if the payload was rejected (HTTP 422).
func (e *APIError) IsValidation() bool {
	return e.StatusCode == 422
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
