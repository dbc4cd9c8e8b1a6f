// Package pose defines the landmark data produced by an external pose
// estimation model and the boundary interfaces used to obtain it.
package pose

import "strings"

// BodyPart identifies a named landmark. Values follow the 33-point
// MediaPipe Pose ordering so a landmark array can be indexed directly.
type BodyPart int

const (
	Nose BodyPart = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// NumBodyParts is the number of landmarks in a full pose.
	NumBodyParts int = iota
)

var bodyPartNames = [...]string{
	"NOSE",
	"LEFT_EYE_INNER",
	"LEFT_EYE",
	"LEFT_EYE_OUTER",
	"RIGHT_EYE_INNER",
	"RIGHT_EYE",
	"RIGHT_EYE_OUTER",
	"LEFT_EAR",
	"RIGHT_EAR",
	"MOUTH_LEFT",
	"MOUTH_RIGHT",
	"LEFT_SHOULDER",
	"RIGHT_SHOULDER",
	"LEFT_ELBOW",
	"RIGHT_ELBOW",
	"LEFT_WRIST",
	"RIGHT_WRIST",
	"LEFT_PINKY",
	"RIGHT_PINKY",
	"LEFT_INDEX",
	"RIGHT_INDEX",
	"LEFT_THUMB",
	"RIGHT_THUMB",
	"LEFT_HIP",
	"RIGHT_HIP",
	"LEFT_KNEE",
	"RIGHT_KNEE",
	"LEFT_ANKLE",
	"RIGHT_ANKLE",
	"LEFT_HEEL",
	"RIGHT_HEEL",
	"LEFT_FOOT_INDEX",
	"RIGHT_FOOT_INDEX",
}

// String returns the canonical upper-snake name, e.g. "LEFT_HIP".
func (p BodyPart) String() string {
	if p < 0 || int(p) >= len(bodyPartNames) {
		return "UNKNOWN"
	}
	return bodyPartNames[p]
}

// Valid reports whether p is a known body part.
func (p BodyPart) Valid() bool {
	return p >= 0 && int(p) < NumBodyParts
}

// ParseBodyPart resolves a name such as "left_hip" or "LEFT_HIP".
func ParseBodyPart(name string) (BodyPart, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range bodyPartNames {
		if n == upper {
			return BodyPart(i), true
		}
	}
	return 0, false
}

// Side selects one half of the body.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Chain is the hip, shoulder and ear landmark of one side.
type Chain struct {
	Hip, Shoulder, Ear BodyPart
}

// ChainFor returns the posture chain of a body side.
func ChainFor(s Side) Chain {
	if s == Right {
		return Chain{Hip: RightHip, Shoulder: RightShoulder, Ear: RightEar}
	}
	return Chain{Hip: LeftHip, Shoulder: LeftShoulder, Ear: LeftEar}
}
