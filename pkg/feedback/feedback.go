// Package feedback escalates posture alerts while a slouch persists.
//
// The machine is driven synchronously, one call per frame, and keeps a
// single piece of memory: when the current slouch episode began.
package feedback

import (
	"encoding/json"
	"time"
)

// Status is the alert tier.
type Status int

const (
	Good Status = iota
	Warning
	Critical
)

// String returns the display name.
func (s Status) String() string {
	switch s {
	case Warning:
		return "Warning"
	case Critical:
		return "Critical"
	default:
		return "Good"
	}
}

// MarshalJSON encodes the status as its name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "Warning":
		*s = Warning
	case "Critical":
		*s = Critical
	default:
		*s = Good
	}
	return nil
}

// Messages shown for each tier.
const (
	MessageGood     = "Good Posture"
	MessageWarning  = "Warning..."
	MessageCritical = "CRITICAL: Sit Up!"
)

// Message returns the message for a status.
func (s Status) Message() string {
	switch s {
	case Warning:
		return MessageWarning
	case Critical:
		return MessageCritical
	default:
		return MessageGood
	}
}

// Config holds the escalation timings.
type Config struct {
	WarningAfter  time.Duration // slouch longer than this is a Warning
	CriticalAfter time.Duration // slouch longer than this is Critical
	AlertEvery    time.Duration // minimum gap between alerts while Critical
}

// DefaultConfig returns the standard 5s / 15s / 5s escalation.
func DefaultConfig() Config {
	return Config{
		WarningAfter:  5 * time.Second,
		CriticalAfter: 15 * time.Second,
		AlertEvery:    5 * time.Second,
	}
}

// Machine tracks one subject's slouch episode.
// It is not safe for concurrent use; the monitor loop owns it.
type Machine struct {
	cfg Config

	status    Status
	onset     time.Time
	slouching bool
	lastAlert time.Time
	alerted   bool
}

// New creates a machine in the Good state.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Process feeds one frame's slouch classification observed at now and
// returns the message to show and whether an alert fires on this frame.
//
// While Critical, an alert fires on entry and then at most once every
// AlertEvery, measured from the previous alert rather than from the
// episode start, so the rate does not depend on the frame rate.
func (m *Machine) Process(isSlouching bool, now time.Time) (string, bool) {
	if !isSlouching {
		m.status = Good
		m.slouching = false
		m.onset = time.Time{}
		m.alerted = false
		m.lastAlert = time.Time{}
		return MessageGood, false
	}

	if !m.slouching {
		m.slouching = true
		m.onset = now
	}

	duration := now.Sub(m.onset)
	switch {
	case duration > m.cfg.CriticalAfter:
		m.status = Critical
		if !m.alerted || now.Sub(m.lastAlert) >= m.cfg.AlertEvery {
			m.alerted = true
			m.lastAlert = now
			return MessageCritical, true
		}
		return MessageCritical, false
	case duration > m.cfg.WarningAfter:
		m.status = Warning
		return MessageWarning, false
	default:
		return m.status.Message(), false
	}
}

// Status returns the current tier.
func (m *Machine) Status() Status {
	return m.status
}

// SlouchDuration returns how long the current episode has lasted at now,
// or 0 when not slouching.
func (m *Machine) SlouchDuration(now time.Time) time.Duration {
	if !m.slouching {
		return 0
	}
	return now.Sub(m.onset)
}
