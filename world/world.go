// Package world holds the simulated bodies that sensors observe and resolves rays cast
// against them.
package world

import (
	"math"
	"sort"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/spatialmath"
)

// World is a set of entities. Raycasts may run concurrently with each other; adding,
// removing or moving entities waits for them.
type World struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	logger   logging.Logger
}

var _ raycast.Port = (*World)(nil)

// New returns an empty world.
func New(logger logging.Logger) *World {
	return &World{entities: map[string]*Entity{}, logger: logger}
}

// NewEntityExistsError is returned when adding an entity whose name is taken.
func NewEntityExistsError(name string) error {
	return errors.Errorf("entity %q already exists", name)
}

// NewEntityNotFoundError is returned when an entity cannot be found by name.
func NewEntityNotFoundError(name string) error {
	return errors.Errorf("entity %q not found", name)
}

// AddEntity adds an entity to the world.
func (w *World) AddEntity(e *Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	name := e.Name().Name
	if _, ok := w.entities[name]; ok {
		return NewEntityExistsError(name)
	}
	w.entities[name] = e
	w.logger.Debugw("added entity", "name", name, "shape", e.Shape(), "pose", e.Pose())
	return nil
}

// RemoveEntity removes the named entity from the world.
func (w *World) RemoveEntity(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entities[name]; !ok {
		return NewEntityNotFoundError(name)
	}
	delete(w.entities, name)
	return nil
}

// Entity returns the named entity.
func (w *World) Entity(name string) (*Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[name]
	return e, ok
}

// Entities returns every entity, sorted by name.
func (w *World) Entities() []*Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	entities := lo.Values(w.entities)
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].Name().Name < entities[j].Name().Name
	})
	return entities
}

// SetPose moves the named entity.
func (w *World) SetPose(name string, pose spatialmath.Pose) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[name]
	if !ok {
		return NewEntityNotFoundError(name)
	}
	e.setPose(pose)
	return nil
}

// Bounds returns the corners of the axis-aligned box containing every entity. ok is false
// for an empty world.
func (w *World) Bounds() (low, high r3.Vector, ok bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.entities) == 0 {
		return r3.Vector{}, r3.Vector{}, false
	}
	low = r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	high = r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, e := range w.entities {
		for _, c := range e.corners(e.Pose()) {
			low = r3.Vector{X: math.Min(low.X, c.X), Y: math.Min(low.Y, c.Y), Z: math.Min(low.Z, c.Z)}
			high = r3.Vector{X: math.Max(high.X, c.X), Y: math.Max(high.Y, c.Y), Z: math.Max(high.Z, c.Z)}
		}
	}
	return low, high, true
}

// Raycast returns the nearest entity accepted by filter along origin's heading within
// maxRange. A nil filter accepts every entity.
func (w *World) Raycast(origin spatialmath.Pose, maxRange float64, filter raycast.Filter, zTest bool) raycast.Result {
	w.mu.RLock()
	defer w.mu.RUnlock()

	best := raycast.Result{Range: maxRange}
	for _, e := range w.entities {
		if filter != nil && !filter(e) {
			continue
		}
		pose := e.Pose()
		if zTest && !e.containsHeight(pose, origin.Point.Z) {
			continue
		}
		d, hit := e.intersect(pose, origin)
		if !hit || d > best.Range {
			continue
		}
		// equal ranges resolve by name so repeated scans agree
		if prev, ok := best.Hit.(*Entity); ok && d == best.Range && prev.Name().Name < e.Name().Name {
			continue
		}
		best = raycast.Result{Range: d, Hit: e}
	}
	return best
}
