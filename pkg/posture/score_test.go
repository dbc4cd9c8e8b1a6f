package posture

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-posture/pkg/pose"
)

func TestPenaltyScorer(t *testing.T) {
	s := NewPenaltyScorer(DefaultRules())

	tests := []struct {
		name   string
		angles AngleTriple
		expect int
	}{
		{"upright", AngleTriple{Torso: 0, Neck: 0, Back: 180, Valid: true}, 100},
		{"at limits", AngleTriple{Torso: 20, Neck: 30, Back: 140, Valid: true}, 100},
		{"torso over by 5", AngleTriple{Torso: 25, Neck: 10, Back: 170, Valid: true}, 90},
		{"neck over by 10.4", AngleTriple{Torso: 10, Neck: 40.4, Back: 170, Valid: true}, 79},
		{"back hunched by 20", AngleTriple{Torso: 10, Neck: 10, Back: 120, Valid: true}, 60},
		{"combined", AngleTriple{Torso: 25, Neck: 35, Back: 135, Valid: true}, 70},
		{"far out clamps to 0", AngleTriple{Torso: 90, Neck: 90, Back: 30, Valid: true}, 0},
		// Torso and neck below Min, back above Max are not penalized.
		{"one-sided rules", AngleTriple{Torso: 0, Neck: 0, Back: 200, Valid: true}, 100},
		{"absent forces 0", Absent, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Score(tc.angles); got != tc.expect {
				t.Errorf("Score = %d, want %d", got, tc.expect)
			}
		})
	}
}

func TestThresholdScorer(t *testing.T) {
	s := NewThresholdScorer(DefaultIdealBands())

	tests := []struct {
		name   string
		angles AngleTriple
		expect int
	}{
		{"all ideal", AngleTriple{Torso: 165, Neck: 170, Back: 150, Valid: true}, 100},
		// torso 6 below band: 100*(1-6/12) = 50; mean (50+100+100)/3 = 83
		{"torso half way", AngleTriple{Torso: 154, Neck: 170, Back: 150, Valid: true}, 83},
		// back 3 above band: 75; neck 12 below: 0; torso ideal: 100 -> 58
		{"mixed", AngleTriple{Torso: 160, Neck: 148, Back: 163, Valid: true}, 58},
		{"all far out", AngleTriple{Torso: 0, Neck: 0, Back: 180, Valid: true}, 0},
		{"absent is neutral", Absent, 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Score(tc.angles); got != tc.expect {
				t.Errorf("Score = %d, want %d", got, tc.expect)
			}
		})
	}
}

func TestThresholdScorer_ZeroThresholdFallsBack(t *testing.T) {
	s := &ThresholdScorer{Ideal: DefaultIdealBands()}
	got := s.Score(AngleTriple{Torso: 154, Neck: 170, Back: 150, Valid: true})
	if got != 83 {
		t.Errorf("Score = %d, want 83 with default threshold", got)
	}
}

func TestScorers_ClampProperty(t *testing.T) {
	scorers := []Scorer{
		NewPenaltyScorer(DefaultRules()),
		NewThresholdScorer(DefaultIdealBands()),
	}

	for _, s := range scorers {
		t.Run(s.Name(), func(t *testing.T) {
			for torso := 0.0; torso < 360; torso += 7.5 {
				for neck := 0.0; neck < 360; neck += 11 {
					for back := 0.0; back < 360; back += 13 {
						a := AngleTriple{Torso: torso, Neck: neck, Back: back, Valid: true}
						got := s.Score(a)
						if got < 0 || got > 100 {
							t.Fatalf("Score(%+v) = %d out of [0,100]", a, got)
						}
						if IsSlouching(got, DefaultSlouchCutoff) != (got < 70) {
							t.Fatalf("slouch classification inconsistent for %d", got)
						}
					}
				}
			}
		})
	}
}

func TestNewScorer(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.PenaltyWeight = 3
	cfg.Threshold = 6

	s, err := NewScorer("penalty", cfg)
	if err != nil {
		t.Fatalf("NewScorer(penalty): %v", err)
	}
	if p, ok := s.(*PenaltyScorer); !ok || p.Weight != 3 {
		t.Errorf("expected penalty scorer with weight 3, got %#v", s)
	}

	s, err = NewScorer(" Threshold ", cfg)
	if err != nil {
		t.Fatalf("NewScorer(threshold): %v", err)
	}
	if th, ok := s.(*ThresholdScorer); !ok || th.Threshold != 6 {
		t.Errorf("expected threshold scorer with threshold 6, got %#v", s)
	}

	s, err = NewScorer("", DefaultScorerConfig())
	if err != nil || s.Name() != ScorerPenalty {
		t.Errorf("empty name should default to penalty, got %v, %v", s, err)
	}

	if _, err := NewScorer("fuzzy", cfg); !errors.Is(err, ErrUnknownScorer) {
		t.Errorf("expected ErrUnknownScorer, got %v", err)
	}
}

func TestRules_Validate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Errorf("default rules invalid: %v", err)
	}
	if err := DefaultIdealBands().Validate(); err != nil {
		t.Errorf("default bands invalid: %v", err)
	}

	bad := DefaultRules()
	bad.Neck = Rule{Min: 40, Max: 30}
	var ruleErr *RuleError
	if err := bad.Validate(); !errors.As(err, &ruleErr) || ruleErr.Angle != "neck" {
		t.Errorf("expected neck RuleError, got %v", err)
	}

	bad = DefaultRules()
	bad.Back = Rule{Min: 140, Max: 400}
	if err := bad.Validate(); err == nil {
		t.Error("expected range error")
	}
}

func TestRule_Deviation(t *testing.T) {
	r := Rule{Min: 10, Max: 20}
	tests := []struct {
		v, want float64
	}{
		{5, 5},
		{10, 0},
		{15, 0},
		{20, 0},
		{26, 6},
	}
	for _, tc := range tests {
		if got := r.Deviation(tc.v); got != tc.want {
			t.Errorf("Deviation(%v) = %v, want %v", tc.v, got, tc.want)
		}
		if r.Contains(tc.v) != (tc.want == 0) {
			t.Errorf("Contains(%v) disagrees with Deviation", tc.v)
		}
	}
}

func TestEndToEnd_Upright(t *testing.T) {
	a := Extract(uprightSet(1.0), 640, 480)
	res := Assess(NewPenaltyScorer(DefaultRules()), a, DefaultSlouchCutoff)
	if res.Score != 100 {
		t.Errorf("Score = %d, want 100", res.Score)
	}
	if res.IsSlouching {
		t.Error("upright posture should not be slouching")
	}
}

func TestEndToEnd_ForwardLeanMonotonic(t *testing.T) {
	s := NewPenaltyScorer(DefaultRules())
	offsets := []float64{0.5, 0.52, 0.55, 0.6, 0.65, 0.7}

	prev := 101
	scores := make([]int, 0, len(offsets))
	for _, x := range offsets {
		set := uprightSet(1.0)
		set[pose.LeftShoulder] = pose.Landmark{X: x, Y: 0.5, Visibility: 1}
		res := Assess(s, Extract(set, 640, 480), DefaultSlouchCutoff)
		if res.Score > prev {
			t.Fatalf("score rose from %d to %d at shoulder x=%.2f", prev, res.Score, x)
		}
		prev = res.Score
		scores = append(scores, res.Score)
	}

	if scores[0] != 100 {
		t.Errorf("upright score = %d, want 100", scores[0])
	}
	if scores[len(scores)-1] >= scores[0] {
		t.Errorf("leaning forward should lower the score: %v", scores)
	}
	if !Assess(s, func() AngleTriple {
		set := uprightSet(1.0)
		set[pose.LeftShoulder] = pose.Landmark{X: 0.7, Y: 0.5, Visibility: 1}
		return Extract(set, 640, 480)
	}(), DefaultSlouchCutoff).IsSlouching {
		t.Error("strong forward lean should be slouching")
	}
}
