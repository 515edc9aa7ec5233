package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestNormalizeAngle(t *testing.T) {
	test.That(t, NormalizeAngle(0), test.ShouldAlmostEqual, 0)
	test.That(t, NormalizeAngle(3*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, NormalizeAngle(-5*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, AngleDiff(math.Pi-0.1, -math.Pi+0.1), test.ShouldAlmostEqual, 0.2)
}

func TestConversions(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
}
