package posture

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrDegenerateVector is returned when an angle involves a zero-length vector.
	ErrDegenerateVector = errors.New("posture: degenerate vector")

	// ErrUnknownScorer is returned for an unrecognised scoring variant name.
	ErrUnknownScorer = errors.New("posture: unknown scorer")
)

// RuleError reports an invalid angle range.
type RuleError struct {
	Angle   string
	Message string
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("posture: %s rule: %s", e.Angle, e.Message)
}
