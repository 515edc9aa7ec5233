package laser

import (
	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/spatialmath"
)

// NewFilter returns the raycast filter used by lasers mounted on owner. It rejects the owner
// itself and every entity that does not reflect lasers.
func NewFilter(owner raycast.Entity) raycast.Filter {
	return func(candidate raycast.Entity) bool {
		if candidate == nil || candidate == owner {
			return false
		}
		return candidate.Reflectivity() > raycast.Transparent
	}
}

// ScanSampler fills a SampleBuffer by casting rays into the world. It keeps no state between
// calls, so distinct samplers may run concurrently against the same Port.
type ScanSampler struct {
	// Owner is the entity the sensor is mounted on.
	Owner raycast.Entity
	// Height is the vertical size of the sensor body. Rays leave at its center.
	Height float64
}

// Origin returns the pose rays are cast from when the sensor is mounted at pose.
func (s *ScanSampler) Origin(pose spatialmath.Pose) spatialmath.Pose {
	origin := pose.Flat()
	origin.Point.Z += s.Height / 2
	return origin
}

// Update scans the world from pose and overwrites buf with the result.
//
// Only every cfg.Resolution-th bearing is cast. The range of each skipped sample is
// interpolated linearly between its two cast neighbors and its reflectance is taken from the
// left neighbor. Samples after the last cast bearing hold the last cast sample.
func (s *ScanSampler) Update(pose spatialmath.Pose, cfg Config, port raycast.Port, buf *SampleBuffer) error {
	if cfg.SampleCount < 2 {
		return invalidConfiguration("samples must be at least 2, got %d", cfg.SampleCount)
	}
	res := cfg.Resolution
	if res < 1 {
		res = 1
	}
	if buf.Len() != cfg.SampleCount {
		buf.Resize(cfg.SampleCount)
	}
	samples := buf.Samples()

	origin := s.Origin(pose)
	filter := NewFilter(s.Owner)
	heading := origin.Heading()

	last := 0
	for t := 0; t < cfg.SampleCount; t += res {
		ray := origin.WithHeading(heading + cfg.Bearing(t))
		result := port.Raycast(ray, cfg.RangeMax, filter, true)

		samples[t].Range = result.Range
		if result.Hit != nil && result.Hit.Reflectivity() >= raycast.Bright {
			samples[t].Reflectance = 1
		} else {
			samples[t].Reflectance = 0
		}
		last = t
	}

	if res > 1 {
		for t := res; t < cfg.SampleCount; t += res {
			left := samples[t-res]
			right := samples[t].Range
			for g := 1; g < res; g++ {
				samples[t-g] = left
				samples[t-g].Range = right - float64(g)*(right-left.Range)/float64(res)
			}
		}
		for t := last + 1; t < cfg.SampleCount; t++ {
			samples[t] = samples[last]
		}
	}

	buf.MarkDirty()
	return nil
}
