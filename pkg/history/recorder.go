package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/session"
)

// Recorder saves every flushed summary to the store. It satisfies the
// monitor's summary sink, so it can sit next to the upload dispatcher.
type Recorder struct {
	store   *Store
	logger  *slog.Logger
	timeout time.Duration
}

// NewRecorder wraps a store.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = log.Component("history")
	}
	return &Recorder{store: store, logger: logger, timeout: 5 * time.Second}
}

// Submit saves s. Failures are logged and returned.
func (r *Recorder) Submit(s session.Summary) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	c, err := r.store.Save(ctx, s)
	if err != nil {
		r.logger.Warn("history save failed", "id", s.ID, "error", err)
		return err
	}
	r.logger.Debug("chunk recorded", "id", c.ID, "score", c.Score)
	return nil
}
