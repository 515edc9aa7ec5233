package world

import (
	"strings"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/resource"
	"go.viam.com/rangesim/spatialmath"
)

// Shape is the footprint of an entity.
type Shape string

// Known shapes.
const (
	ShapeBox      Shape = "box"
	ShapeCylinder Shape = "cylinder"
)

// ParseShape parses the world-file name of a shape. The empty string is a box.
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(s)) {
	case "", ShapeBox:
		return ShapeBox, nil
	case ShapeCylinder:
		return ShapeCylinder, nil
	default:
		return "", errors.Errorf("unknown shape %q", s)
	}
}

// newBadDimensionsError is returned when an entity has a negative or empty footprint.
func newBadDimensionsError(name string, size r3.Vector) error {
	return errors.Errorf("entity %q has invalid dimensions %v", name, size)
}

// An Entity is a solid body in the world. Its pose is the center of its footprint at the
// height of its base; it extends Size.Z upwards from there.
type Entity struct {
	name         resource.Name
	shape        Shape
	size         r3.Vector
	reflectivity raycast.Reflectivity

	mu   sync.RWMutex
	pose spatialmath.Pose
}

var _ raycast.Entity = (*Entity)(nil)

// NewEntity returns an entity that is not yet part of any world.
func NewEntity(
	name string,
	shape Shape,
	size r3.Vector,
	pose spatialmath.Pose,
	reflectivity raycast.Reflectivity,
) (*Entity, error) {
	if name == "" {
		return nil, errors.New("entity name is required")
	}
	if size.X <= 0 || size.Y <= 0 || size.Z < 0 {
		return nil, newBadDimensionsError(name, size)
	}
	if shape != ShapeBox && shape != ShapeCylinder {
		return nil, errors.Errorf("unknown shape %q", shape)
	}
	return &Entity{
		name:         resource.NewEntityName(name),
		shape:        shape,
		size:         size,
		reflectivity: reflectivity,
		pose:         pose,
	}, nil
}

// Name returns the resource name of the entity.
func (e *Entity) Name() resource.Name {
	return e.name
}

// ID returns the entity's stable identifier.
func (e *Entity) ID() string {
	return e.name.UUID
}

// Shape returns the entity's footprint shape.
func (e *Entity) Shape() Shape {
	return e.shape
}

// Size returns the entity's bounding dimensions.
func (e *Entity) Size() r3.Vector {
	return e.size
}

// Reflectivity returns how the entity appears to lasers.
func (e *Entity) Reflectivity() raycast.Reflectivity {
	return e.reflectivity
}

// Pose returns the entity's current world pose.
func (e *Entity) Pose() spatialmath.Pose {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pose
}

func (e *Entity) setPose(pose spatialmath.Pose) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pose = pose
}

// containsHeight returns whether z lies within the entity's vertical extent.
func (e *Entity) containsHeight(pose spatialmath.Pose, z float64) bool {
	return z >= pose.Point.Z && z <= pose.Point.Z+e.size.Z
}

// corners returns the footprint's bounding corners in world coordinates.
func (e *Entity) corners(pose spatialmath.Pose) []r3.Vector {
	hx, hy := e.size.X/2, e.size.Y/2
	local := []r3.Vector{{X: hx, Y: hy}, {X: hx, Y: -hy}, {X: -hx, Y: hy}, {X: -hx, Y: -hy}}
	out := make([]r3.Vector, 0, 2*len(local))
	for _, c := range local {
		p := pose.Transform(c)
		out = append(out, p, r3.Vector{X: p.X, Y: p.Y, Z: p.Z + e.size.Z})
	}
	return out
}
