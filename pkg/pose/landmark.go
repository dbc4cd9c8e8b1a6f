package pose

import (
	"encoding/json"
	"fmt"
	"time"
)

// MinVisibility is the confidence below which a landmark counts as missing.
const MinVisibility = 0.5

// Landmark is a 3D point in normalized image coordinates with the model's
// visibility confidence. X and Y are in [0,1] relative to the frame; Z
// shares the scale of X.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// LandmarkSet maps body parts to their landmark for one frame.
// A nil or empty set means no person was detected.
type LandmarkSet map[BodyPart]Landmark

// FromSlice builds a set from a model-ordered landmark array.
func FromSlice(lms []Landmark) LandmarkSet {
	if len(lms) == 0 {
		return nil
	}
	set := make(LandmarkSet, len(lms))
	for i, lm := range lms {
		if i >= NumBodyParts {
			break
		}
		set[BodyPart(i)] = lm
	}
	return set
}

// Empty reports whether the set carries no landmarks.
func (s LandmarkSet) Empty() bool {
	return len(s) == 0
}

// Get returns the landmark for part if present and visible enough.
func (s LandmarkSet) Get(part BodyPart) (Landmark, bool) {
	lm, ok := s[part]
	if !ok || lm.Visibility < MinVisibility {
		return Landmark{}, false
	}
	return lm, true
}

// Chain returns the three landmarks of a side, or false if any is missing.
func (s LandmarkSet) Chain(side Side) (hip, shoulder, ear Landmark, ok bool) {
	c := ChainFor(side)
	if hip, ok = s.Get(c.Hip); !ok {
		return
	}
	if shoulder, ok = s.Get(c.Shoulder); !ok {
		return
	}
	ear, ok = s.Get(c.Ear)
	return
}

// MarshalJSON encodes the set keyed by body part name.
func (s LandmarkSet) MarshalJSON() ([]byte, error) {
	named := make(map[string]Landmark, len(s))
	for part, lm := range s {
		named[part.String()] = lm
	}
	return json.Marshal(named)
}

// UnmarshalJSON accepts either a model-ordered array or an object keyed by
// body part name.
func (s *LandmarkSet) UnmarshalJSON(data []byte) error {
	var list []Landmark
	if err := json.Unmarshal(data, &list); err == nil {
		*s = FromSlice(list)
		return nil
	}

	var named map[string]Landmark
	if err := json.Unmarshal(data, &named); err != nil {
		return fmt.Errorf("decode landmarks: %w", err)
	}
	set := make(LandmarkSet, len(named))
	for name, lm := range named {
		part, ok := ParseBodyPart(name)
		if !ok {
			return fmt.Errorf("decode landmarks: unknown body part %q", name)
		}
		set[part] = lm
	}
	*s = set
	return nil
}

// Observation is one frame's landmarks with the image size they were
// estimated on.
type Observation struct {
	Landmarks LandmarkSet
	Width     int
	Height    int
	Time      time.Time
}

// Detected reports whether the model found a person in this frame.
func (o Observation) Detected() bool {
	return !o.Landmarks.Empty()
}
