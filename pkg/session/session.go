// Package session accumulates per-frame posture results into fixed-length
// summary windows that are periodically flushed and uploaded.
package session

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultInterval is the local development flush interval.
	DefaultInterval = 10 * time.Second

	// ProductionInterval is the flush interval in production.
	ProductionInterval = 300 * time.Second

	// emptyScore is reported for a window that saw no frames.
	emptyScore = 100
)

// Summary is the aggregate of one window.
type Summary struct {
	ID              uuid.UUID `json:"id"`
	Score           int       `json:"score"`
	SlouchDuration  int       `json:"slouch_duration"`
	DurationSeconds int       `json:"duration_seconds"`
	AlertCount      int       `json:"alert_count"`
	Frames          int       `json:"frames"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
}

// Aggregator collects frame results for the current window.
// Update and FlushAndReset may be called from different goroutines.
type Aggregator struct {
	mu       sync.Mutex
	interval time.Duration

	scoreSum     int64
	totalFrames  int
	slouchFrames int
	alertCount   int
	windowStart  time.Time
}

// New creates an aggregator whose first window starts at now.
// A non-positive interval uses DefaultInterval.
func New(interval time.Duration, now time.Time) *Aggregator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Aggregator{interval: interval, windowStart: now}
}

// Interval returns the flush interval.
func (a *Aggregator) Interval() time.Duration {
	return a.interval
}

// Update records one frame.
func (a *Aggregator) Update(score int, isSlouching, alertTriggered bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.scoreSum += int64(score)
	a.totalFrames++
	if isSlouching {
		a.slouchFrames++
	}
	if alertTriggered {
		a.alertCount++
	}
}

// DueForFlush reports whether the current window is strictly older than
// the interval at now.
func (a *Aggregator) DueForFlush(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return now.Sub(a.windowStart) > a.interval
}

// Frames returns the number of frames recorded in the current window.
func (a *Aggregator) Frames() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalFrames
}

// Empty reports whether the current window has no frames.
func (a *Aggregator) Empty() bool {
	return a.Frames() == 0
}

// FlushAndReset summarizes the current window, clears all counters and
// starts a new window at now. No Update can interleave with the reset.
func (a *Aggregator) FlushAndReset(now time.Time) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	elapsed := now.Sub(a.windowStart).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	s := Summary{
		ID:              uuid.New(),
		Score:           emptyScore,
		AlertCount:      a.alertCount,
		Frames:          a.totalFrames,
		DurationSeconds: max(1, int(math.Round(elapsed))),
		StartedAt:       a.windowStart,
		EndedAt:         now,
	}
	if a.totalFrames > 0 {
		s.Score = int(math.Round(float64(a.scoreSum) / float64(a.totalFrames)))
		ratio := float64(a.slouchFrames) / float64(a.totalFrames)
		s.SlouchDuration = int(math.Round(elapsed * ratio))
	}

	a.scoreSum = 0
	a.totalFrames = 0
	a.slouchFrames = 0
	a.alertCount = 0
	a.windowStart = now

	return s
}
