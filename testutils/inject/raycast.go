package inject

import (
	"sync"

	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/spatialmath"
)

// RaycastPort is an injected raycast port. It records every ray it is asked to cast.
type RaycastPort struct {
	raycast.Port
	RaycastFunc func(origin spatialmath.Pose, maxRange float64, filter raycast.Filter, zTest bool) raycast.Result

	mu   sync.Mutex
	rays []Ray
}

// Ray is one recorded call to Raycast.
type Ray struct {
	Origin   spatialmath.Pose
	MaxRange float64
	ZTest    bool
}

// Raycast calls the injected Raycast or the real version. With neither, every ray misses.
func (p *RaycastPort) Raycast(
	origin spatialmath.Pose,
	maxRange float64,
	filter raycast.Filter,
	zTest bool,
) raycast.Result {
	p.mu.Lock()
	p.rays = append(p.rays, Ray{Origin: origin, MaxRange: maxRange, ZTest: zTest})
	p.mu.Unlock()
	if p.RaycastFunc == nil {
		if p.Port == nil {
			return raycast.Result{Range: maxRange}
		}
		return p.Port.Raycast(origin, maxRange, filter, zTest)
	}
	return p.RaycastFunc(origin, maxRange, filter, zTest)
}

// Rays returns the rays cast so far.
func (p *RaycastPort) Rays() []Ray {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Ray(nil), p.rays...)
}

// Reset forgets the recorded rays.
func (p *RaycastPort) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rays = nil
}

// Entity is an injected raycast entity with a fixed reflectivity.
type Entity struct {
	Name string
	R    raycast.Reflectivity
}

// Reflectivity returns the injected reflectivity.
func (e *Entity) Reflectivity() raycast.Reflectivity {
	return e.R
}
