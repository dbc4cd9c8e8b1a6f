package posture

import (
	"github.com/teslashibe/go-posture/pkg/pose"
)

// AngleTriple holds the three posture angles in degrees.
// The angles are either all measured (Valid) or all absent.
type AngleTriple struct {
	Torso float64 `json:"torso"` // hip->shoulder vs vertical
	Neck  float64 `json:"neck"`  // shoulder->ear vs vertical
	Back  float64 `json:"back"`  // shoulder->ear vs shoulder->hip
	Valid bool    `json:"valid"`

	// Side is the body side the angles were measured on.
	Side pose.Side `json:"-"`
}

// Absent is the triple returned when posture cannot be measured.
var Absent = AngleTriple{}

// Extract computes the torso, neck and back angles from a landmark set.
//
// The left hip/shoulder/ear chain is used when all three are visible,
// otherwise the right one. If neither side is complete, or the geometry is
// degenerate, the result is Absent. width and height rescale the normalized
// coordinates so non-square frames do not skew the angles; z shares the
// scale of x.
func Extract(set pose.LandmarkSet, width, height int) AngleTriple {
	side := pose.Left
	hip, shoulder, ear, ok := set.Chain(pose.Left)
	if !ok {
		side = pose.Right
		hip, shoulder, ear, ok = set.Chain(pose.Right)
	}
	if !ok || width <= 0 || height <= 0 {
		return Absent
	}

	w, h := float64(width), float64(height)
	hipV := toImageSpace(hip, w, h)
	shoulderV := toImageSpace(shoulder, w, h)
	earV := toImageSpace(ear, w, h)

	torso := shoulderV.Sub(hipV)
	neck := earV.Sub(shoulderV)
	shoulderToHip := hipV.Sub(shoulderV)

	torsoAngle, err := AngleBetween(Vertical, torso)
	if err != nil {
		return Absent
	}
	neckAngle, err := AngleBetween(Vertical, neck)
	if err != nil {
		return Absent
	}
	backAngle, err := AngleBetween(neck, shoulderToHip)
	if err != nil {
		return Absent
	}

	return AngleTriple{
		Torso: torsoAngle,
		Neck:  neckAngle,
		Back:  backAngle,
		Valid: true,
		Side:  side,
	}
}

func toImageSpace(lm pose.Landmark, w, h float64) Vec3 {
	return Vec3{X: lm.X * w, Y: lm.Y * h, Z: lm.Z * w}
}

// Rounded returns the angles truncated to whole degrees, zero when absent.
func (a AngleTriple) Rounded() (torso, neck, back int) {
	if !a.Valid {
		return 0, 0, 0
	}
	return int(a.Torso), int(a.Neck), int(a.Back)
}
