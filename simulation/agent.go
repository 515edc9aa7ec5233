package simulation

import (
	"sync"
	"time"

	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/spatialmath"
	"go.viam.com/rangesim/world"
)

// Velocity is a body-frame velocity: X forward and Y left in m/s, Yaw in rad/s.
type Velocity struct {
	X, Y, Yaw float64
}

// IsZero returns whether the velocity is zero.
func (v Velocity) IsZero() bool {
	return v == Velocity{}
}

// An Agent is a world entity that moves under its own velocity and carries sensors.
type Agent struct {
	entity *world.Entity

	mu       sync.Mutex
	velocity Velocity
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.entity.Name().Name
}

// Entity returns the world entity that is the agent's body.
func (a *Agent) Entity() *world.Entity {
	return a.entity
}

// Pose returns the agent's current world pose.
func (a *Agent) Pose() spatialmath.Pose {
	return a.entity.Pose()
}

// Velocity returns the agent's current velocity.
func (a *Agent) Velocity() Velocity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.velocity
}

// SetVelocity changes the agent's velocity from the next tick on.
func (a *Agent) SetVelocity(v Velocity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.velocity = v
}

// advance returns the pose the agent reaches after moving for dt.
func (a *Agent) advance(dt time.Duration) spatialmath.Pose {
	v := a.Velocity()
	s := dt.Seconds()
	return spatialmath.Compose(a.Pose(), spatialmath.NewPose(v.X*s, v.Y*s, 0, v.Yaw*s))
}

// mount is a sensor attached to an agent.
type mount struct {
	sensor sensor.Sensor
	kind   string
	agent  *Agent
	pose   spatialmath.Pose

	subscribers int
	updated     bool
	lastUpdate  time.Duration
}

func (m *mount) name() string {
	return m.sensor.Name().Name
}

// worldPose is the sensor's pose in world coordinates.
func (m *mount) worldPose() spatialmath.Pose {
	return spatialmath.Compose(m.agent.Pose(), m.pose)
}

// due returns whether the sensor should update at simTime.
func (m *mount) due(simTime time.Duration) bool {
	if m.subscribers == 0 {
		return false
	}
	return !m.updated || simTime-m.lastUpdate >= m.sensor.Interval()
}
