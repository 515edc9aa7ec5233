package simulation

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/config"
	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/utils"
	"go.viam.com/rangesim/world"
)

func newEntity(name, shape string, size config.Vector, pose config.Pose, reflectivity string) (*world.Entity, error) {
	sh, err := world.ParseShape(shape)
	if err != nil {
		return nil, err
	}
	r, err := raycast.ParseReflectivity(reflectivity)
	if err != nil {
		return nil, err
	}
	return world.NewEntity(name, sh, size.ToVector(), pose.ToPose(), r)
}

func velocity(v config.Velocity) Velocity {
	return Velocity{X: v.X, Y: v.Y, Yaw: v.Yaw}
}

// FromConfig builds a world and a simulation of it from a world file. Sensors marked as
// subscribed are started.
func FromConfig(ctx context.Context, conf *config.Config, clk clock.Clock, logger logging.Logger) (*Simulation, error) {
	w := world.New(logger.Sublogger("world"))
	for _, ec := range conf.Entities {
		e, err := newEntity(ec.Name, ec.Shape, ec.Size, ec.Pose, ec.Reflectivity)
		if err != nil {
			return nil, err
		}
		if err := w.AddEntity(e); err != nil {
			return nil, err
		}
	}

	sim, err := New(w, clk, conf.Tick(), logger)
	if err != nil {
		return nil, err
	}
	guard := utils.NewGuard(func() { goutils.UncheckedError(sim.Close(ctx)) })
	defer guard.OnFail()

	for _, ac := range conf.Agents {
		e, err := newEntity(ac.Name, ac.Shape, ac.Size, ac.Pose, ac.Reflectivity)
		if err != nil {
			return nil, err
		}
		if _, err := sim.AddAgent(e, velocity(ac.Velocity)); err != nil {
			return nil, err
		}
	}

	if err := sim.addSensors(ctx, conf.Sensors()); err != nil {
		return nil, err
	}
	guard.Success()
	return sim, nil
}

func (s *Simulation) addSensors(ctx context.Context, sensors []config.MountedSensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ms := range sensors {
		if err := s.addSensor(ctx, ms); err != nil {
			return err
		}
	}
	return nil
}

// addSensor builds, mounts and optionally subscribes a sensor. Callers hold s.mu.
func (s *Simulation) addSensor(ctx context.Context, ms config.MountedSensor) error {
	a, ok := s.agents[ms.Agent]
	if !ok {
		return errors.Errorf("agent %q not found", ms.Agent)
	}
	deps := sensor.Dependencies{Owner: a.Entity(), Port: s.world}
	sens, err := sensor.New(ctx, deps, ms.Sensor.ResourceConfig(), s.logger)
	if err != nil {
		return err
	}
	if err := s.mount(ms.Agent, sens, ms.Sensor.Kind, ms.Sensor.Mount.ToPose()); err != nil {
		return multierr.Combine(err, sens.Close(ctx))
	}
	if ms.Sensor.IsSubscribed() {
		return s.subscribe(ctx, ms.Sensor.Name)
	}
	return nil
}

// removeSensor shuts down, closes and unmounts a sensor. Callers hold s.mu.
func (s *Simulation) removeSensor(ctx context.Context, name string) error {
	m := s.mounts[name]
	var errs error
	if m.subscribers > 0 {
		m.subscribers = 0
		errs = m.sensor.Shutdown(ctx)
	}
	delete(s.mounts, name)
	return multierr.Combine(errs, m.sensor.Close(ctx))
}

// Apply brings a running simulation in line with a re-read world file between ticks. It
// updates the tick, agent velocities and every sensor: changed attributes reconfigure in
// place, changed kinds or agents rebuild, and sensors missing from the file are removed.
// Entities and agents cannot be added or removed this way.
func (s *Simulation) Apply(ctx context.Context, conf *config.Config) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	if tick := conf.Tick(); tick != s.tick {
		s.logger.Infow("tick changed", "from", s.tick, "to", tick)
		s.tick = tick
	}
	for _, ac := range conf.Agents {
		a, ok := s.agents[ac.Name]
		if !ok {
			s.logger.Warnw("ignoring agent added to world file", "agent", ac.Name)
			continue
		}
		a.SetVelocity(velocity(ac.Velocity))
	}

	wanted := lo.SliceToMap(conf.Sensors(), func(ms config.MountedSensor) (string, config.MountedSensor) {
		return ms.Sensor.Name, ms
	})
	for _, name := range lo.Keys(s.mounts) {
		if _, ok := wanted[name]; !ok {
			s.logger.Infow("removing sensor", "sensor", name)
			errs = multierr.Append(errs, s.removeSensor(ctx, name))
		}
	}

	for _, ms := range conf.Sensors() {
		if _, ok := s.agents[ms.Agent]; !ok {
			continue
		}
		name := ms.Sensor.Name
		m, ok := s.mounts[name]
		if ok && (m.kind != ms.Sensor.Kind || m.agent.Name() != ms.Agent) {
			s.logger.Infow("rebuilding sensor", "sensor", name, "kind", ms.Sensor.Kind, "agent", ms.Agent)
			errs = multierr.Append(errs, s.removeSensor(ctx, name))
			ok = false
		}
		if !ok {
			errs = multierr.Append(errs, s.addSensor(ctx, ms))
			continue
		}

		if err := m.sensor.Reconfigure(ctx, ms.Sensor.ResourceConfig()); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "failed to reconfigure sensor %q", name))
			continue
		}
		m.pose = ms.Sensor.Mount.ToPose()
		switch {
		case ms.Sensor.IsSubscribed() && m.subscribers == 0:
			errs = multierr.Append(errs, s.subscribe(ctx, name))
		case !ms.Sensor.IsSubscribed() && m.subscribers > 0:
			m.subscribers = 1
			errs = multierr.Append(errs, s.unsubscribe(ctx, name))
		}
	}
	return errs
}
