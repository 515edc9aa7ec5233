package inject

import (
	"context"
	"time"

	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/resource"
	"go.viam.com/rangesim/spatialmath"
)

// Sensor is an injected sensor. Calls without an injected func fall through to the embedded
// Sensor, or do nothing when there is none.
type Sensor struct {
	sensor.Sensor
	name            resource.Name
	UpdateFunc      func(ctx context.Context, pose spatialmath.Pose) error
	IntervalFunc    func() time.Duration
	StartupFunc     func(ctx context.Context) error
	ShutdownFunc    func(ctx context.Context) error
	ReadingsFunc    func(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error)
	ReconfigureFunc func(ctx context.Context, conf resource.Config) error
	CloseFunc       func(ctx context.Context) error
}

// NewSensor returns a new injected sensor.
func NewSensor(name string) *Sensor {
	return &Sensor{name: resource.NewSensorName(name)}
}

// Name returns the name of the resource.
func (s *Sensor) Name() resource.Name {
	return s.name
}

// Update calls the injected Update or the real version.
func (s *Sensor) Update(ctx context.Context, pose spatialmath.Pose) error {
	if s.UpdateFunc == nil {
		if s.Sensor == nil {
			return nil
		}
		return s.Sensor.Update(ctx, pose)
	}
	return s.UpdateFunc(ctx, pose)
}

// Interval calls the injected Interval or the real version.
func (s *Sensor) Interval() time.Duration {
	if s.IntervalFunc == nil {
		if s.Sensor == nil {
			return 0
		}
		return s.Sensor.Interval()
	}
	return s.IntervalFunc()
}

// Startup calls the injected Startup or the real version.
func (s *Sensor) Startup(ctx context.Context) error {
	if s.StartupFunc == nil {
		if s.Sensor == nil {
			return nil
		}
		return s.Sensor.Startup(ctx)
	}
	return s.StartupFunc(ctx)
}

// Shutdown calls the injected Shutdown or the real version.
func (s *Sensor) Shutdown(ctx context.Context) error {
	if s.ShutdownFunc == nil {
		if s.Sensor == nil {
			return nil
		}
		return s.Sensor.Shutdown(ctx)
	}
	return s.ShutdownFunc(ctx)
}

// Readings calls the injected Readings or the real version.
func (s *Sensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	if s.ReadingsFunc == nil {
		if s.Sensor == nil {
			return map[string]interface{}{}, nil
		}
		return s.Sensor.Readings(ctx, extra)
	}
	return s.ReadingsFunc(ctx, extra)
}

// Reconfigure calls the injected Reconfigure or the real version.
func (s *Sensor) Reconfigure(ctx context.Context, conf resource.Config) error {
	if s.ReconfigureFunc == nil {
		if s.Sensor == nil {
			return nil
		}
		return s.Sensor.Reconfigure(ctx, conf)
	}
	return s.ReconfigureFunc(ctx, conf)
}

// Close calls the injected Close or the real version.
func (s *Sensor) Close(ctx context.Context) error {
	if s.CloseFunc == nil {
		if s.Sensor == nil {
			return nil
		}
		return s.Sensor.Close(ctx)
	}
	return s.CloseFunc(ctx)
}
