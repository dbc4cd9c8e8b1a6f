package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/pose"
)

// Reader yields captured frames. *Capture implements it.
type Reader interface {
	Read() (Frame, error)
	Close() error
}

// MaxReadFailures is how many unreadable frames in a row Next skips before
// reporting ErrReadFailed to the caller.
const MaxReadFailures = 10

// Source runs every captured frame through a pose estimator.
// It implements pose.Source.
type Source struct {
	reader    Reader
	estimator pose.Estimator
	logger    *slog.Logger
	failures  int
}

// NewSource pairs a frame reader with an estimator.
func NewSource(r Reader, e pose.Estimator, logger *slog.Logger) *Source {
	if logger == nil {
		logger = log.Component("camera")
	}
	return &Source{reader: r, estimator: e, logger: logger}
}

// Next implements pose.Source. Frames the device fails to deliver are
// skipped, up to MaxReadFailures in a row; a nil landmark set means nobody
// was in view.
func (s *Source) Next(ctx context.Context) (pose.Observation, error) {
	for {
		if err := ctx.Err(); err != nil {
			return pose.Observation{}, err
		}

		frame, err := s.reader.Read()
		if errors.Is(err, ErrReadFailed) {
			s.failures++
			if s.failures >= MaxReadFailures {
				s.failures = 0
				return pose.Observation{}, fmt.Errorf("%w: %d frames in a row", ErrReadFailed, MaxReadFailures)
			}
			s.logger.Debug("skipping unreadable frame", "consecutive", s.failures)
			continue
		}
		if err != nil {
			return pose.Observation{}, err
		}
		s.failures = 0

		set, err := s.estimator.Estimate(ctx, frame.JPEG)
		if err != nil {
			return pose.Observation{}, err
		}
		return pose.Observation{
			Landmarks: set,
			Width:     frame.Width,
			Height:    frame.Height,
			Time:      frame.Time,
		}, nil
	}
}

// Close releases the reader and the estimator.
func (s *Source) Close() error {
	return errors.Join(s.reader.Close(), s.estimator.Close())
}
