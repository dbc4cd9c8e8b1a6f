// Package posture turns pose landmarks into posture angles and a 0-100
// posture quality score.
package posture

import "math"

// degenerateNorm is the magnitude below which a vector has no direction.
const degenerateNorm = 1e-9

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float64
}

// Vertical points straight up in image space (Y grows downward).
var Vertical = Vec3{X: 0, Y: -1, Z: 0}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Unit returns v scaled to length 1, or false when v has no direction.
func (v Vec3) Unit() (Vec3, bool) {
	n := v.Norm()
	if n < degenerateNorm || math.IsNaN(n) || math.IsInf(n, 0) {
		return Vec3{}, false
	}
	return v.Scale(1 / n), true
}

// AngleBetween returns the angle between a and b in degrees, in [0, 180].
// It fails with ErrDegenerateVector when either vector is near zero length.
func AngleBetween(a, b Vec3) (float64, error) {
	ua, ok := a.Unit()
	if !ok {
		return 0, ErrDegenerateVector
	}
	ub, ok := b.Unit()
	if !ok {
		return 0, ErrDegenerateVector
	}
	// Rounding can push the dot product of unit vectors past ±1, where
	// acos returns NaN.
	cos := math.Max(-1, math.Min(1, ua.Dot(ub)))
	return Degrees(math.Acos(cos)), nil
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
