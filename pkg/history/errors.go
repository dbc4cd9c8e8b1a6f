package history

import "errors"

var (
	// ErrNotFound is returned when a chunk does not exist.
	ErrNotFound = errors.New("history: chunk not found")

	// ErrInvalidChunk is returned when a summary fails the store's constraints.
	ErrInvalidChunk = errors.New("history: invalid chunk")

	// ErrNotConfigured is returned when the store has no database handle.
	ErrNotConfigured = errors.New("history: store not configured")
)
