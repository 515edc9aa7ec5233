// Package raycast defines the contract between range sensors and the world engine that
// resolves their rays. Sensors depend only on this package; the world implements Port.
package raycast

import (
	"strings"

	"github.com/pkg/errors"

	"go.viam.com/rangesim/spatialmath"
)

// Reflectivity classifies how an entity appears to laser rangefinders.
type Reflectivity int

const (
	// Transparent entities are invisible to lasers; rays pass through them.
	Transparent Reflectivity = iota
	// Visible entities stop rays and return a dim reflection.
	Visible
	// Bright entities stop rays and return a bright reflection.
	Bright
)

func (r Reflectivity) String() string {
	switch r {
	case Transparent:
		return "transparent"
	case Visible:
		return "visible"
	case Bright:
		return "bright"
	default:
		return "unknown"
	}
}

// An Entity is anything a ray can strike.
type Entity interface {
	Reflectivity() Reflectivity
}

// A Filter decides whether a candidate entity can occlude a ray.
type Filter func(candidate Entity) bool

// Result is the outcome of a single ray. Hit is nil when nothing qualifying was struck within
// the requested range, in which case Range equals that maximum range.
type Result struct {
	Range float64
	Hit   Entity
}

// A Port resolves rays against a world. Implementations must be safe to call concurrently
// from multiple sensors within the same tick.
type Port interface {
	// Raycast casts a ray from origin along origin's heading, up to maxRange meters, and
	// returns the first entity accepted by filter. When zTest is true only entities whose
	// vertical extent contains the ray height can be struck.
	Raycast(origin spatialmath.Pose, maxRange float64, filter Filter, zTest bool) Result
}

// ParseReflectivity parses the world-file name of a reflectivity.
func ParseReflectivity(s string) (Reflectivity, error) {
	switch strings.ToLower(s) {
	case "transparent", "none":
		return Transparent, nil
	case "", "visible":
		return Visible, nil
	case "bright":
		return Bright, nil
	default:
		return Transparent, errors.Errorf("unknown reflectivity %q", s)
	}
}
