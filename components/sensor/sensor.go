// Package sensor defines the capability every simulated sensor kind provides to the scheduler.
package sensor

import (
	"context"
	"time"

	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/resource"
	"go.viam.com/rangesim/spatialmath"
)

// A Sensor is a simulated sensing device mounted on an entity. The scheduler calls Update at
// most once per tick, and never concurrently for the same sensor.
type Sensor interface {
	resource.Resource

	// Update samples the world from the given world-frame mount pose.
	Update(ctx context.Context, pose spatialmath.Pose) error
	// Interval is how much simulated time must pass between updates.
	Interval() time.Duration
	// Startup is called when the sensor gains its first subscriber.
	Startup(ctx context.Context) error
	// Shutdown is called when the sensor loses its last subscriber.
	Shutdown(ctx context.Context) error
	// Readings return data specific to the kind of sensor.
	Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error)
	// Reconfigure applies a new configuration between ticks.
	Reconfigure(ctx context.Context, conf resource.Config) error
}

// Dependencies are the collaborators a sensor is constructed with.
type Dependencies struct {
	// Owner is the entity the sensor is mounted on; its rays never strike it.
	Owner raycast.Entity
	// Port resolves rays against the world.
	Port raycast.Port
}
