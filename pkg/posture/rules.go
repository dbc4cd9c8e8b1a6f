package posture

// Rule is an acceptable range for one angle, in degrees.
type Rule struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Name string  `json:"name"`
}

// Contains reports whether v lies inside the range.
func (r Rule) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Deviation returns how far v lies outside the range, 0 when inside.
func (r Rule) Deviation(v float64) float64 {
	switch {
	case r.Contains(v):
		return 0
	case v < r.Min:
		return r.Min - v
	default:
		return v - r.Max
	}
}

// Rules groups the ranges for the three posture angles.
type Rules struct {
	Torso Rule `json:"torso"`
	Neck  Rule `json:"neck"`
	Back  Rule `json:"back"`
}

// DefaultRules are the healthy ranges used for continuous monitoring.
// Torso and neck are measured from vertical, back from a straight line (180).
func DefaultRules() Rules {
	return Rules{
		Torso: Rule{Min: 0, Max: 20, Name: "Torso"},
		Neck:  Rule{Min: 0, Max: 30, Name: "Neck"},
		Back:  Rule{Min: 140, Max: 180, Name: "Back"},
	}
}

// DefaultIdealBands are the ideal bands used by single-frame scoring.
func DefaultIdealBands() Rules {
	return Rules{
		Torso: Rule{Min: 160, Max: 170, Name: "Torso Recline"},
		Neck:  Rule{Min: 160, Max: 180, Name: "Neck Protraction"},
		Back:  Rule{Min: 145, Max: 160, Name: "Back Curve"},
	}
}

// Validate checks every range is ordered and within [0, 360).
func (r Rules) Validate() error {
	for _, rule := range []struct {
		angle string
		r     Rule
	}{
		{"torso", r.Torso},
		{"neck", r.Neck},
		{"back", r.Back},
	} {
		if rule.r.Min > rule.r.Max {
			return &RuleError{Angle: rule.angle, Message: "min must not exceed max"}
		}
		if rule.r.Min < 0 || rule.r.Max >= 360 {
			return &RuleError{Angle: rule.angle, Message: "range must lie within [0, 360)"}
		}
	}
	return nil
}
