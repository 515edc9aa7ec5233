// Package laser implements a simulated scanning laser rangefinder.
package laser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/resource"
	"go.viam.com/rangesim/spatialmath"
)

// Geometry is the physical body of a laser relative to its mount.
type Geometry struct {
	Pose spatialmath.Pose
	Size r3.Vector
}

// DefaultGeometry is the body of a laser that does not configure one.
func DefaultGeometry() Geometry {
	return Geometry{Size: r3.Vector{X: 0.15, Y: 0.15, Z: 0.2}}
}

// Laser is a scanning rangefinder mounted on an entity.
type Laser struct {
	resource.Named

	mu       sync.Mutex
	conf     Config
	geometry Geometry
	sampler  ScanSampler
	port     raycast.Port
	buf      SampleBuffer
	valid    bool
	watts    float64
	logger   logging.Logger
}

var _ sensor.Sensor = (*Laser)(nil)

// NewLaser returns a laser owned by owner that casts rays through port.
func NewLaser(
	name resource.Name,
	owner raycast.Entity,
	port raycast.Port,
	conf Config,
	logger logging.Logger,
) (*Laser, error) {
	if port == nil {
		return nil, errors.New("laser requires a raycast port")
	}
	if err := conf.Validate(logger); err != nil {
		return nil, err
	}
	geometry := DefaultGeometry()
	return &Laser{
		Named:    name.AsNamed(),
		conf:     conf,
		geometry: geometry,
		sampler:  ScanSampler{Owner: owner, Height: geometry.Size.Z},
		port:     port,
		logger:   logger,
	}, nil
}

// Update scans the world from the given world-frame mount pose.
func (l *Laser) Update(ctx context.Context, pose spatialmath.Pose) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	body := spatialmath.Compose(pose, l.geometry.Pose)
	if err := l.sampler.Update(body, l.conf, l.port, &l.buf); err != nil {
		return err
	}
	l.valid = true
	return nil
}

// Interval returns the configured update period.
func (l *Laser) Interval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conf.Interval
}

// GetConfig returns the configuration in force.
func (l *Laser) GetConfig() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conf
}

// SetConfig validates and installs a new configuration. On error the previous configuration
// stays in force. A changed sample count resizes the buffer on the next Update.
func (l *Laser) SetConfig(conf Config) error {
	if err := conf.Validate(l.logger); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conf = conf
	return nil
}

// Geometry returns the laser's body.
func (l *Laser) Geometry() Geometry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.geometry
}

// SetGeometry changes the laser's body. Rays leave at half its height.
func (l *Laser) SetGeometry(geometry Geometry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.geometry = geometry
	l.sampler.Height = geometry.Size.Z
}

// GetSamples returns a copy of the latest scan and its length. The slice is nil until the
// first Update after Startup.
func (l *Laser) GetSamples() ([]Sample, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.valid {
		return nil, 0
	}
	samples := make([]Sample, l.buf.Len())
	copy(samples, l.buf.Samples())
	return samples, len(samples)
}

// SetSamples replaces the scan with externally supplied samples, bypassing the world. count
// must equal len(samples) and becomes the configured sample count.
func (l *Laser) SetSamples(samples []Sample, count int) error {
	if count != len(samples) {
		return errors.Errorf("sample count %d does not match %d samples", count, len(samples))
	}
	if count < 2 {
		return invalidConfiguration("samples must be at least 2, got %d", count)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Replace(samples)
	l.conf.SampleCount = count
	l.valid = true
	return nil
}

// IsDirty returns whether the scan changed since it was last consumed.
func (l *Laser) IsDirty() bool {
	return l.buf.IsDirty()
}

// ClearDirty marks the scan as consumed.
func (l *Laser) ClearDirty() {
	l.buf.ClearDirty()
}

// Startup powers the laser on.
func (l *Laser) Startup(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watts = DefaultWatts
	l.logger.Debug("laser startup")
	return nil
}

// Shutdown powers the laser off and releases its samples.
func (l *Laser) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watts = 0
	l.buf.Release()
	l.valid = false
	l.logger.Debug("laser shutdown")
	return nil
}

// Watts returns the current power draw.
func (l *Laser) Watts() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.watts
}

// Readings returns the latest scan and summary statistics over its ranges.
func (l *Laser) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	samples, n := l.GetSamples()
	ranges := make([]float64, n)
	reflectances := make([]float64, n)
	bright := 0
	for i, s := range samples {
		ranges[i] = s.Range
		reflectances[i] = s.Reflectance
		if s.Reflectance > 0 {
			bright++
		}
	}
	readings := map[string]interface{}{
		"ranges":       ranges,
		"reflectances": reflectances,
		"sample_count": n,
		"bright_count": bright,
	}
	if n > 0 {
		readings["min_range"] = floats.Min(ranges)
		readings["max_range"] = floats.Max(ranges)
		readings["mean_range"] = stat.Mean(ranges, nil)
		if median, err := stats.Median(ranges); err == nil {
			readings["median_range"] = median
		}
	}
	return readings, nil
}

// Reconfigure applies the scan attributes of a new config.
func (l *Laser) Reconfigure(ctx context.Context, conf resource.Config) error {
	if err := sensor.ConvertAttributes(&conf); err != nil {
		return err
	}
	attrs, err := resource.NativeConfig[*AttributeConfig](conf)
	if err != nil {
		return err
	}
	scanConf := attrs.ScanConfig()
	if err := scanConf.Validate(l.logger); err != nil {
		return err
	}
	if attrs.Height < 0 {
		return errors.Errorf("height must not be negative, got %v", attrs.Height)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if attrs.Height > 0 {
		l.geometry.Size.Z = attrs.Height
		l.sampler.Height = attrs.Height
	}
	l.conf = scanConf
	return nil
}

// Close powers the laser off.
func (l *Laser) Close(ctx context.Context) error {
	return l.Shutdown(ctx)
}

func (l *Laser) String() string {
	samples, _ := l.GetSamples()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\tRanges[ ", l.Name())
	if samples == nil {
		sb.WriteString("<none until subscribed>")
	}
	for _, s := range samples {
		fmt.Fprintf(&sb, "%.2f ", s.Range)
	}
	sb.WriteString(" ]\n\tReflectance[ ")
	if samples == nil {
		sb.WriteString("<none until subscribed>")
	}
	for _, s := range samples {
		fmt.Fprintf(&sb, "%.2f ", s.Reflectance)
	}
	sb.WriteString(" ]")
	return sb.String()
}
