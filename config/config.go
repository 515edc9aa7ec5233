// Package config defines the world file that describes a simulation.
package config

import (
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/resource"
	"go.viam.com/rangesim/spatialmath"
	"go.viam.com/rangesim/utils"
)

// DefaultTickMs is the simulated time step used when a world file does not set one.
const DefaultTickMs = 100

// Config is a whole world file.
type Config struct {
	TickMs   float64  `json:"tick_ms,omitempty"`
	Entities []Entity `json:"entities,omitempty"`
	Agents   []Agent  `json:"agents,omitempty"`

	// ConfigFilePath is the path the config was read from, if any.
	ConfigFilePath string `json:"-"`
}

// Pose is the world-file form of a pose. Angles are radians.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`
}

// Vector is the world-file form of a size.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Velocity is an agent's body-frame velocity in m/s and its yaw rate in rad/s.
type Velocity struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

// Entity is a static body.
type Entity struct {
	Name         string `json:"name"`
	Shape        string `json:"shape,omitempty"`
	Pose         Pose   `json:"pose"`
	Size         Vector `json:"size"`
	Reflectivity string `json:"reflectivity,omitempty"`
}

// Agent is a body that moves and carries sensors.
type Agent struct {
	Name         string   `json:"name"`
	Shape        string   `json:"shape,omitempty"`
	Pose         Pose     `json:"pose"`
	Size         Vector   `json:"size"`
	Reflectivity string   `json:"reflectivity,omitempty"`
	Velocity     Velocity `json:"velocity"`
	Sensors      []Sensor `json:"sensors,omitempty"`
}

// Sensor is a sensor mounted on an agent.
type Sensor struct {
	Name       string                `json:"name"`
	Kind       string                `json:"kind"`
	Mount      Pose                  `json:"mount"`
	Subscribed *bool                 `json:"subscribed,omitempty"`
	Attributes resource.AttributeMap `json:"attributes,omitempty"`
}

// Tick returns the simulated time step.
func (c *Config) Tick() time.Duration {
	ms := c.TickMs
	if ms == 0 {
		ms = DefaultTickMs
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// MountedSensor is a sensor together with the agent that carries it.
type MountedSensor struct {
	Agent  string
	Sensor Sensor
}

// Sensors returns every sensor in the file, in file order.
func (c *Config) Sensors() []MountedSensor {
	var out []MountedSensor
	for _, a := range c.Agents {
		for _, s := range a.Sensors {
			out = append(out, MountedSensor{Agent: a.Name, Sensor: s})
		}
	}
	return out
}

// Validate checks the whole file and returns every problem found.
func (c *Config) Validate() error {
	var errs error
	if c.TickMs < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("tick_ms", errors.New("must not be negative")))
	}

	bodyNames := append(
		lo.Map(c.Entities, func(e Entity, _ int) string { return e.Name }),
		lo.Map(c.Agents, func(a Agent, _ int) string { return a.Name })...)
	for _, dup := range lo.FindDuplicates(bodyNames) {
		errs = multierr.Append(errs, errors.Errorf("duplicate entity name %q", dup))
	}
	sensorNames := lo.Map(c.Sensors(), func(s MountedSensor, _ int) string { return s.Sensor.Name })
	for _, dup := range lo.FindDuplicates(sensorNames) {
		errs = multierr.Append(errs, errors.Errorf("duplicate sensor name %q", dup))
	}

	for i, e := range c.Entities {
		errs = multierr.Append(errs, validateBody(fmt.Sprintf("entities.%d", i), e.Name, e.Shape, e.Size, e.Reflectivity))
	}
	for i, a := range c.Agents {
		path := fmt.Sprintf("agents.%d", i)
		errs = multierr.Append(errs, validateBody(path, a.Name, a.Shape, a.Size, a.Reflectivity))
		for j, s := range a.Sensors {
			errs = multierr.Append(errs, s.Validate(fmt.Sprintf("%s.sensors.%d", path, j)))
		}
	}
	return errs
}

func validateBody(path, name, shape string, size Vector, reflectivity string) error {
	if name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if shape != "" && shape != "box" && shape != "cylinder" {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown shape %q", shape))
	}
	if size.X <= 0 || size.Y <= 0 || size.Z < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("invalid size %+v", size))
	}
	if _, err := raycast.ParseReflectivity(reflectivity); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// Validate checks the sensor's kind and attributes.
func (s *Sensor) Validate(path string) error {
	if s.Name == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if s.Kind == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "kind")
	}
	conf := s.ResourceConfig()
	if err := sensor.ConvertAttributes(&conf); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return conf.Validate(path)
}

// IsSubscribed returns whether the sensor starts subscribed. Sensors are subscribed unless the
// file says otherwise.
func (s *Sensor) IsSubscribed() bool {
	return s.Subscribed == nil || *s.Subscribed
}

// ResourceConfig returns the component config of the sensor.
func (s *Sensor) ResourceConfig() resource.Config {
	return resource.Config{Name: s.Name, Kind: s.Kind, Attributes: s.Attributes}
}

// ToPose converts to a spatialmath pose.
func (p Pose) ToPose() spatialmath.Pose {
	return spatialmath.Pose{
		Point:       r3.Vector{X: p.X, Y: p.Y, Z: p.Z},
		Orientation: spatialmath.EulerAngles{Roll: p.Roll, Pitch: p.Pitch, Yaw: p.Yaw},
	}
}

// ToVector converts to an r3 vector.
func (v Vector) ToVector() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}
