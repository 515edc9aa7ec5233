package world

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/rangesim/spatialmath"
)

// intersect returns the distance along a horizontal ray from origin to the entity's footprint,
// and whether the ray meets it at all. A ray starting inside the footprint meets it at 0.
func (e *Entity) intersect(pose spatialmath.Pose, origin spatialmath.Pose) (float64, bool) {
	local := pose.InverseTransform(origin.Point)
	s, c := math.Sincos(origin.Heading() - pose.Heading())
	dir := r3.Vector{X: c, Y: s}

	switch e.shape {
	case ShapeCylinder:
		return intersectCircle(local, dir, math.Max(e.size.X, e.size.Y)/2)
	default:
		return intersectRect(local, dir, e.size.X/2, e.size.Y/2)
	}
}

// intersectRect is a 2D slab test against the axis-aligned rectangle [-hx,hx] x [-hy,hy].
func intersectRect(o, d r3.Vector, hx, hy float64) (float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for _, axis := range [2][3]float64{{o.X, d.X, hx}, {o.Y, d.Y, hy}} {
		p, v, h := axis[0], axis[1], axis[2]
		if math.Abs(v) < 1e-12 {
			if p < -h || p > h {
				return 0, false
			}
			continue
		}
		t1, t2 := (-h-p)/v, (h-p)/v
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	return math.Max(tmin, 0), true
}

// intersectCircle intersects a ray with the circle of radius r about the origin.
func intersectCircle(o, d r3.Vector, r float64) (float64, bool) {
	b := o.X*d.X + o.Y*d.Y
	c := o.X*o.X + o.Y*o.Y - r*r
	if c <= 0 {
		return 0, true
	}
	disc := b*b - c
	if disc < 0 || b > 0 {
		return 0, false
	}
	return -b - math.Sqrt(disc), true
}
