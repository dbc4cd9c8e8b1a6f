package pose

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoEndpoint is returned when a remote estimator has no URL.
	ErrNoEndpoint = errors.New("pose: estimator endpoint required")

	// ErrClosed is returned when using a closed estimator or source.
	ErrClosed = errors.New("pose: closed")
)

// APIError is a non-success answer from a remote pose service.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("pose: service error %d: %s", e.StatusCode, e.Message)
}

// IsServerError returns true for HTTP 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
