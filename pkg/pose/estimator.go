package pose

import (
	"context"
	"sync"
)

// Estimator runs an external pose model on one encoded frame.
// It blocks until the model answers. A nil set with a nil error means no
// person was found in the frame.
type Estimator interface {
	// Estimate returns the landmarks found in a JPEG-encoded image.
	Estimate(ctx context.Context, jpeg []byte) (LandmarkSet, error)

	// Close releases resources.
	Close() error
}

// Source yields observations in arrival order.
type Source interface {
	// Next blocks until the next observation is available.
	// It returns io.EOF when the source is exhausted.
	Next(ctx context.Context) (Observation, error)

	// Close releases resources.
	Close() error
}

// MockEstimator returns canned landmark sets, for tests and dry runs.
type MockEstimator struct {
	mu    sync.Mutex
	sets  []LandmarkSet
	err   error
	calls int
}

// NewMockEstimator cycles through the given sets on each call.
func NewMockEstimator(sets ...LandmarkSet) *MockEstimator {
	return &MockEstimator{sets: sets}
}

// SetError makes every subsequent call fail with err.
func (m *MockEstimator) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls returns the number of Estimate calls made.
func (m *MockEstimator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Estimate implements Estimator.
func (m *MockEstimator) Estimate(ctx context.Context, jpeg []byte) (LandmarkSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sets) == 0 {
		return nil, nil
	}
	return m.sets[i%len(m.sets)], nil
}

// Close implements Estimator.
func (m *MockEstimator) Close() error { return nil }
