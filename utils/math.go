package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// NormalizeAngle wraps an angle in radians into [-pi, pi].
func NormalizeAngle(radians float64) float64 {
	return math.Atan2(math.Sin(radians), math.Cos(radians))
}

// AngleDiff returns the absolute smallest difference between two angles in radians.
// The arguments are commutative.
func AngleDiff(a1, a2 float64) float64 {
	return math.Abs(NormalizeAngle(a1 - a2))
}

