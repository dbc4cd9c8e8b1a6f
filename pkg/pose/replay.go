package pose

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Default image size assumed for recordings that do not carry one.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// recordedFrame is one line of a JSON-lines landmark recording.
type recordedFrame struct {
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Offset    *float64    `json:"t"` // seconds since recording start
	Landmarks LandmarkSet `json:"landmarks"`
}

// Recording replays landmark frames captured earlier, one JSON object per
// line. It implements Source.
type Recording struct {
	mu     sync.Mutex
	closer io.Closer
	scan   *bufio.Scanner
	start  time.Time
	line   int
	closed bool
}

// OpenRecording opens a JSON-lines file. Frame times are anchored at start
// when frames carry a "t" offset.
func OpenRecording(path string, start time.Time) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pose: open recording: %w", err)
	}
	r := NewRecording(f, start)
	r.closer = f
	return r, nil
}

// NewRecording replays frames from r.
func NewRecording(r io.Reader, start time.Time) *Recording {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Recording{scan: scan, start: start}
}

// Next implements Source.
func (r *Recording) Next(ctx context.Context) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Observation{}, ErrClosed
	}

	for r.scan.Scan() {
		r.line++
		raw := r.scan.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec recordedFrame
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Observation{}, fmt.Errorf("pose: recording line %d: %w", r.line, err)
		}
		obs := Observation{
			Landmarks: rec.Landmarks,
			Width:     rec.Width,
			Height:    rec.Height,
		}
		if obs.Width <= 0 || obs.Height <= 0 {
			obs.Width, obs.Height = DefaultWidth, DefaultHeight
		}
		if rec.Offset != nil {
			obs.Time = r.start.Add(time.Duration(*rec.Offset * float64(time.Second)))
		}
		return obs, nil
	}
	if err := r.scan.Err(); err != nil {
		return Observation{}, fmt.Errorf("pose: read recording: %w", err)
	}
	return Observation{}, io.EOF
}

// Close implements Source.
func (r *Recording) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
