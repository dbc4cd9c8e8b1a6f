// Package monitor runs the per-frame posture pipeline: landmarks in,
// scores, feedback and periodic session summaries out.
package monitor

import (
	"time"

	"github.com/teslashibe/go-posture/pkg/feedback"
	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/posture"
)

// MessageDetecting is shown while no posture can be measured.
const MessageDetecting = "Detecting..."

// neutralScore is recorded for frames without measurable posture.
const neutralScore = 100

// FrameResult is the outcome of one frame.
type FrameResult struct {
	Score          int                 `json:"score"`
	IsSlouching    bool                `json:"is_slouching"`
	Status         feedback.Status     `json:"status"`
	Message        string              `json:"message"`
	AlertTriggered bool                `json:"alert_triggered"`
	Angles         posture.AngleTriple `json:"angles"`
	Detected       bool                `json:"detected"`
	Time           time.Time           `json:"time"`
}

// Evaluator scores frames and drives the feedback machine for one subject.
// It is not safe for concurrent use.
type Evaluator struct {
	scorer  posture.Scorer
	cutoff  int
	machine *feedback.Machine
}

// NewEvaluator creates an evaluator. A non-positive cutoff uses the default.
func NewEvaluator(scorer posture.Scorer, cutoff int, fb feedback.Config) *Evaluator {
	if cutoff <= 0 {
		cutoff = posture.DefaultSlouchCutoff
	}
	return &Evaluator{
		scorer:  scorer,
		cutoff:  cutoff,
		machine: feedback.New(fb),
	}
}

// Scorer returns the scoring variant in use.
func (e *Evaluator) Scorer() posture.Scorer {
	return e.scorer
}

// Evaluate processes one observation at now.
//
// Frames where nobody is detected, or where neither body side is fully
// visible, record a neutral score and leave the feedback state untouched,
// so looking away from the camera neither rewards nor punishes.
func (e *Evaluator) Evaluate(obs pose.Observation, now time.Time) FrameResult {
	res := FrameResult{
		Score:    neutralScore,
		Status:   e.machine.Status(),
		Message:  MessageDetecting,
		Detected: obs.Detected(),
		Time:     now,
	}
	if !res.Detected {
		return res
	}

	angles := posture.Extract(obs.Landmarks, obs.Width, obs.Height)
	if !angles.Valid {
		return res
	}

	a := posture.Assess(e.scorer, angles, e.cutoff)
	msg, alert := e.machine.Process(a.IsSlouching, now)

	res.Score = a.Score
	res.IsSlouching = a.IsSlouching
	res.Angles = angles
	res.Status = e.machine.Status()
	res.Message = msg
	res.AlertTriggered = alert
	return res
}
