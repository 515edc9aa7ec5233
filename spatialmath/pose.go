// Package spatialmath defines the poses used to place entities and sensors in the world.
//
// The simulated world is 2.5D: positions are full 3D points, but only the yaw (heading)
// participates in composing frames. Roll and pitch are carried so a mount can describe
// them, and consumers decide whether to honor them.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/rangesim/utils"
)

// EulerAngles are three angles (in radians) used to represent the rotation of an object in 3D
// Euclidean space. Yaw is measured counterclockwise from the +X axis.
type EulerAngles struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Pose is a position and orientation in world or parent-frame coordinates.
type Pose struct {
	Point       r3.Vector
	Orientation EulerAngles
}

// NewPose returns a pose at (x, y, z) facing heading radians, with no roll or pitch.
func NewPose(x, y, z, heading float64) Pose {
	return Pose{Point: r3.Vector{X: x, Y: y, Z: z}, Orientation: EulerAngles{Yaw: heading}}
}

// NewZeroPose returns a pose at the origin with no rotation.
func NewZeroPose() Pose {
	return Pose{}
}

// Heading returns the yaw of the pose.
func (p Pose) Heading() float64 {
	return p.Orientation.Yaw
}

// WithHeading returns a copy of the pose facing the given heading.
func (p Pose) WithHeading(heading float64) Pose {
	p.Orientation.Yaw = heading
	return p
}

// Flat returns a copy of the pose with roll and pitch cleared.
func (p Pose) Flat() Pose {
	p.Orientation.Roll = 0
	p.Orientation.Pitch = 0
	return p
}

// Transform maps a point expressed in this pose's frame into the parent frame.
func (p Pose) Transform(local r3.Vector) r3.Vector {
	s, c := math.Sincos(p.Orientation.Yaw)
	return r3.Vector{
		X: p.Point.X + local.X*c - local.Y*s,
		Y: p.Point.Y + local.X*s + local.Y*c,
		Z: p.Point.Z + local.Z,
	}
}

// InverseTransform maps a point expressed in the parent frame into this pose's frame.
func (p Pose) InverseTransform(parent r3.Vector) r3.Vector {
	d := parent.Sub(p.Point)
	s, c := math.Sincos(p.Orientation.Yaw)
	return r3.Vector{
		X: d.X*c + d.Y*s,
		Y: -d.X*s + d.Y*c,
		Z: d.Z,
	}
}

// Compose returns child, given relative to parent, in parent's own frame of reference.
// Headings add and are normalized; roll and pitch are taken from the child.
func Compose(parent, child Pose) Pose {
	return Pose{
		Point: parent.Transform(child.Point),
		Orientation: EulerAngles{
			Roll:  child.Orientation.Roll,
			Pitch: child.Orientation.Pitch,
			Yaw:   utils.NormalizeAngle(parent.Orientation.Yaw + child.Orientation.Yaw),
		},
	}
}

// PoseAlmostEqual returns whether two poses are within epsilon in every component.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	return a.Point.Sub(b.Point).Norm() < epsilon &&
		utils.AngleDiff(a.Orientation.Yaw, b.Orientation.Yaw) < epsilon &&
		utils.AngleDiff(a.Orientation.Roll, b.Orientation.Roll) < epsilon &&
		utils.AngleDiff(a.Orientation.Pitch, b.Orientation.Pitch) < epsilon
}

func (p Pose) String() string {
	return fmt.Sprintf("[%.3f %.3f %.3f %.3f]", p.Point.X, p.Point.Y, p.Point.Z, p.Orientation.Yaw)
}
