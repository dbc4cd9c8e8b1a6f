package posture

import (
	"fmt"
	"math"
	"strings"
)

// Scoring defaults.
const (
	DefaultPenaltyWeight      = 2.0  // points lost per degree outside a rule
	DefaultZeroScoreThreshold = 12.0 // degrees outside a band that score 0
	DefaultSlouchCutoff       = 70   // scores below this are slouching
)

// Scorer variant names, as used in configuration.
const (
	ScorerPenalty   = "penalty"
	ScorerThreshold = "threshold"
)

// Scorer maps posture angles to a 0-100 quality score.
type Scorer interface {
	// Score returns the posture score, always within [0, 100].
	Score(a AngleTriple) int

	// Name returns the variant name.
	Name() string
}

// PenaltyScorer starts at 100 and subtracts Weight points per degree
// outside the rules. Torso and neck are penalized only above Max (too much
// recline or flexion), the back only below Min (hunching). An unmeasurable
// posture scores 0.
type PenaltyScorer struct {
	Rules  Rules
	Weight float64
}

// NewPenaltyScorer creates a penalty scorer with the default weight.
func NewPenaltyScorer(rules Rules) *PenaltyScorer {
	return &PenaltyScorer{Rules: rules, Weight: DefaultPenaltyWeight}
}

// Name implements Scorer.
func (s *PenaltyScorer) Name() string { return ScorerPenalty }

// Score implements Scorer.
func (s *PenaltyScorer) Score(a AngleTriple) int {
	if !a.Valid {
		return 0
	}

	score := 100.0
	if a.Torso > s.Rules.Torso.Max {
		score -= (a.Torso - s.Rules.Torso.Max) * s.Weight
	}
	if a.Neck > s.Rules.Neck.Max {
		score -= (a.Neck - s.Rules.Neck.Max) * s.Weight
	}
	if a.Back < s.Rules.Back.Min {
		score -= (s.Rules.Back.Min - a.Back) * s.Weight
	}
	return clampScore(score)
}

// ThresholdScorer rates each angle 100 inside its ideal band, falling
// linearly to 0 at Threshold degrees outside it, and averages the three.
//
// An unmeasurable posture scores a neutral 100 per angle: a single frame
// that cannot be measured is not evidence of bad posture. This differs on
// purpose from PenaltyScorer, which scores it 0.
type ThresholdScorer struct {
	Ideal     Rules
	Threshold float64
}

// NewThresholdScorer creates a threshold scorer with the default threshold.
func NewThresholdScorer(ideal Rules) *ThresholdScorer {
	return &ThresholdScorer{Ideal: ideal, Threshold: DefaultZeroScoreThreshold}
}

// Name implements Scorer.
func (s *ThresholdScorer) Name() string { return ScorerThreshold }

// Score implements Scorer.
func (s *ThresholdScorer) Score(a AngleTriple) int {
	if !a.Valid {
		return 100
	}
	total := s.angleScore(a.Torso, s.Ideal.Torso) +
		s.angleScore(a.Neck, s.Ideal.Neck) +
		s.angleScore(a.Back, s.Ideal.Back)
	return total / 3
}

func (s *ThresholdScorer) angleScore(v float64, band Rule) int {
	dev := band.Deviation(v)
	if dev == 0 {
		return 100
	}
	thresh := s.Threshold
	if thresh <= 0 {
		thresh = DefaultZeroScoreThreshold
	}
	return clampScore(100 * (1 - dev/thresh))
}

// clampScore clamps to [0, 100] and truncates toward zero.
func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Max(0, math.Min(100, v)))
}

// ScorerConfig carries the parameters for both variants.
type ScorerConfig struct {
	Rules         Rules
	IdealBands    Rules
	PenaltyWeight float64
	Threshold     float64
}

// DefaultScorerConfig returns the default parameters.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Rules:         DefaultRules(),
		IdealBands:    DefaultIdealBands(),
		PenaltyWeight: DefaultPenaltyWeight,
		Threshold:     DefaultZeroScoreThreshold,
	}
}

// NewScorer builds the named variant.
func NewScorer(name string, cfg ScorerConfig) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ScorerPenalty, "":
		s := NewPenaltyScorer(cfg.Rules)
		if cfg.PenaltyWeight > 0 {
			s.Weight = cfg.PenaltyWeight
		}
		return s, nil
	case ScorerThreshold:
		s := NewThresholdScorer(cfg.IdealBands)
		if cfg.Threshold > 0 {
			s.Threshold = cfg.Threshold
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScorer, name)
	}
}

// IsSlouching reports whether a score falls below the cutoff.
func IsSlouching(score, cutoff int) bool {
	return score < cutoff
}

// Assessment is the per-frame scoring result.
type Assessment struct {
	Angles      AngleTriple
	Score       int
	IsSlouching bool
}

// Assess scores the angles and classifies the result against cutoff.
func Assess(s Scorer, a AngleTriple, cutoff int) Assessment {
	score := s.Score(a)
	return Assessment{
		Angles:      a,
		Score:       score,
		IsSlouching: IsSlouching(score, cutoff),
	}
}
