// Package simulation advances a world in fixed ticks, moving agents and updating the sensors
// they carry.
package simulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/spatialmath"
	"go.viam.com/rangesim/utils"
	"go.viam.com/rangesim/world"
)

// A StepListener is called after every completed tick with the new simulated time.
type StepListener func(ctx context.Context, simTime time.Duration)

// Simulation owns a world, the agents in it and the sensors they carry.
type Simulation struct {
	world  *world.World
	clock  clock.Clock
	logger logging.Logger

	mu        sync.Mutex
	tick      time.Duration
	simTime   time.Duration
	agents    map[string]*Agent
	mounts    map[string]*mount
	listeners []StepListener
	workers   *utils.StoppableWorkers

	steps atomic.Int64
}

// New returns a simulation of w that advances by tick each step. clk paces Start; tests pass
// a mock.
func New(w *world.World, clk clock.Clock, tick time.Duration, logger logging.Logger) (*Simulation, error) {
	if tick <= 0 {
		return nil, errors.Errorf("tick must be positive, got %v", tick)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Simulation{
		world:  w,
		clock:  clk,
		logger: logger,
		tick:   tick,
		agents: map[string]*Agent{},
		mounts: map[string]*mount{},
	}, nil
}

// World returns the simulated world.
func (s *Simulation) World() *world.World {
	return s.world
}

// AddAgent adds entity to the world as an agent moving at velocity.
func (s *Simulation) AddAgent(entity *world.Entity, velocity Velocity) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := entity.Name().Name
	if _, ok := s.agents[name]; ok {
		return nil, errors.Errorf("agent %q already exists", name)
	}
	if err := s.world.AddEntity(entity); err != nil {
		return nil, err
	}
	a := &Agent{entity: entity, velocity: velocity}
	s.agents[name] = a
	return a, nil
}

// Agent returns the named agent.
func (s *Simulation) Agent(name string) (*Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[name]
	return a, ok
}

// Mount attaches a sensor of the given kind to the named agent at the given pose relative to
// the agent. The sensor starts unsubscribed.
func (s *Simulation) Mount(agentName string, sens sensor.Sensor, kind string, pose spatialmath.Pose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mount(agentName, sens, kind, pose)
}

func (s *Simulation) mount(agentName string, sens sensor.Sensor, kind string, pose spatialmath.Pose) error {
	a, ok := s.agents[agentName]
	if !ok {
		return errors.Errorf("agent %q not found", agentName)
	}
	name := sens.Name().Name
	if _, ok := s.mounts[name]; ok {
		return errors.Errorf("sensor %q already mounted", name)
	}
	s.mounts[name] = &mount{sensor: sens, kind: kind, agent: a, pose: pose}
	return nil
}

// Sensor returns the named sensor.
func (s *Simulation) Sensor(name string) (sensor.Sensor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mounts[name]
	if !ok {
		return nil, false
	}
	return m.sensor, true
}

// SensorNames returns the names of all mounted sensors, sorted.
func (s *Simulation) SensorNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := lo.Keys(s.mounts)
	sort.Strings(names)
	return names
}

// SensorPose returns the named sensor's current world pose.
func (s *Simulation) SensorPose(name string) (spatialmath.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mounts[name]
	if !ok {
		return spatialmath.Pose{}, newSensorNotFoundError(name)
	}
	return m.worldPose(), nil
}

func newSensorNotFoundError(name string) error {
	return errors.Errorf("sensor %q not found", name)
}

// Subscribe adds a subscriber to the named sensor. The first subscriber starts it up.
func (s *Simulation) Subscribe(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribe(ctx, name)
}

func (s *Simulation) subscribe(ctx context.Context, name string) error {
	m, ok := s.mounts[name]
	if !ok {
		return newSensorNotFoundError(name)
	}
	if m.subscribers == 0 {
		if err := m.sensor.Startup(ctx); err != nil {
			return errors.Wrapf(err, "failed to start sensor %q", name)
		}
		m.updated = false
	}
	m.subscribers++
	return nil
}

// Unsubscribe removes a subscriber from the named sensor. The last one shuts it down.
func (s *Simulation) Unsubscribe(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribe(ctx, name)
}

func (s *Simulation) unsubscribe(ctx context.Context, name string) error {
	m, ok := s.mounts[name]
	if !ok {
		return newSensorNotFoundError(name)
	}
	if m.subscribers == 0 {
		return errors.Errorf("sensor %q has no subscribers", name)
	}
	m.subscribers--
	if m.subscribers == 0 {
		return m.sensor.Shutdown(ctx)
	}
	return nil
}

// Subscribers returns how many subscribers the named sensor has.
func (s *Simulation) Subscribers(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.mounts[name]; ok {
		return m.subscribers
	}
	return 0
}

// SimTime returns the simulated time elapsed.
func (s *Simulation) SimTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simTime
}

// Tick returns the simulated time step.
func (s *Simulation) Tick() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Steps returns how many ticks have completed.
func (s *Simulation) Steps() int64 {
	return s.steps.Load()
}

// AddStepListener registers a function to call after every tick.
func (s *Simulation) AddStepListener(l StepListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Step advances the simulation by one tick. Agents move first, then every subscribed sensor
// whose interval has elapsed updates, in parallel. Sensor errors are logged and returned
// combined; the tick still completes.
func (s *Simulation) Step(ctx context.Context) error {
	s.mu.Lock()
	s.simTime += s.tick
	simTime := s.simTime

	for _, a := range s.agents {
		if a.Velocity().IsZero() {
			continue
		}
		if err := s.world.SetPose(a.Name(), a.advance(s.tick)); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	due := lo.Filter(lo.Values(s.mounts), func(m *mount, _ int) bool { return m.due(simTime) })
	sort.Slice(due, func(i, j int) bool { return due[i].name() < due[j].name() })
	// a failing sensor does not cancel the rest of the tick
	var errsMu sync.Mutex
	var errs error
	updates := lo.Map(due, func(m *mount, _ int) utils.SimpleFunc {
		pose := m.worldPose()
		return func(ctx context.Context) error {
			defer utils.SlowLogger(ctx, "waiting for sensor update", "sensor", m.name(), s.logger)()
			if err := m.sensor.Update(ctx, pose); err != nil {
				s.logger.Errorw("sensor update failed", "sensor", m.name(), "error", err)
				errsMu.Lock()
				errs = multierr.Append(errs, errors.Wrapf(err, "sensor %q", m.name()))
				errsMu.Unlock()
			}
			return nil
		}
	})
	_, err := utils.RunInParallel(ctx, updates)
	err = multierr.Combine(err, errs)
	for _, m := range due {
		m.updated = true
		m.lastUpdate = simTime
	}
	listeners := append([]StepListener(nil), s.listeners...)
	s.mu.Unlock()

	s.steps.Inc()
	for _, l := range listeners {
		l(ctx, simTime)
	}
	return err
}

// Start steps the simulation once per tick of wall time in the background until Stop is
// called or ctx is done.
func (s *Simulation) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workers != nil && s.workers.Context().Err() == nil {
		return errors.New("simulation already running")
	}
	tick := s.tick
	s.workers = utils.NewStoppableWorkers(ctx, func(ctx context.Context) {
		ticker := s.clock.Ticker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := s.Step(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warnw("step completed with errors", "sim_time", s.SimTime(), "error", err)
			}
		}
	})
	return nil
}

// Stop halts background stepping started by Start and waits for the current tick.
func (s *Simulation) Stop() {
	s.mu.Lock()
	workers := s.workers
	s.workers = nil
	s.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
}

// Close stops the simulation and closes every sensor.
func (s *Simulation) Close(ctx context.Context) error {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs error
	for _, name := range lo.Keys(s.mounts) {
		errs = multierr.Combine(errs, s.mounts[name].sensor.Close(ctx))
	}
	return errs
}
