// Package fake implements a laser that plays back fixed scans instead of casting rays.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/rangesim/components/laser"
	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/resource"
	"go.viam.com/rangesim/spatialmath"
	"go.viam.com/rangesim/utils"
)

// Kind is the sensor kind of a playback laser.
const Kind = "fake_laser"

// Config is used for converting fake laser attributes.
type Config struct {
	Scans        [][]float64 `json:"scans"`
	Reflectances [][]float64 `json:"reflectances,omitempty"`
	IntervalMs   *float64    `json:"interval_ms,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if len(conf.Scans) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "scans")
	}
	if len(conf.Reflectances) != 0 && len(conf.Reflectances) != len(conf.Scans) {
		return utils.NewConfigValidationError(path,
			errors.Errorf("got %d reflectance lists for %d scans", len(conf.Reflectances), len(conf.Scans)))
	}
	for i, scan := range conf.Scans {
		if len(scan) < 2 {
			return utils.NewConfigValidationError(path, errors.Errorf("scan %d has fewer than 2 samples", i))
		}
		for _, r := range scan {
			if r < 0 {
				return utils.NewConfigValidationError(path, errors.Errorf("scan %d has a negative range", i))
			}
		}
		if len(conf.Reflectances) == 0 {
			continue
		}
		if len(conf.Reflectances[i]) != len(scan) {
			return utils.NewConfigValidationError(path,
				errors.Errorf("scan %d has %d ranges but %d reflectances", i, len(scan), len(conf.Reflectances[i])))
		}
		for _, r := range conf.Reflectances[i] {
			if r != 0 && r != 1 {
				return utils.NewConfigValidationError(path,
					errors.Errorf("scan %d has reflectance %v; must be 0 or 1", i, r))
			}
		}
	}
	if conf.IntervalMs != nil && *conf.IntervalMs < 0 {
		return utils.NewConfigValidationError(path, errors.New("interval_ms must not be negative"))
	}
	return nil
}

func (conf *Config) samples() [][]laser.Sample {
	scans := make([][]laser.Sample, 0, len(conf.Scans))
	for i, ranges := range conf.Scans {
		scan := make([]laser.Sample, len(ranges))
		for j, r := range ranges {
			scan[j].Range = r
			if len(conf.Reflectances) != 0 {
				scan[j].Reflectance = conf.Reflectances[i][j]
			}
		}
		scans = append(scans, scan)
	}
	return scans
}

func init() {
	sensor.RegisterKind(Kind, sensor.Registration{
		Constructor: func(
			ctx context.Context,
			deps sensor.Dependencies,
			conf resource.Config,
			logger logging.Logger,
		) (sensor.Sensor, error) {
			return NewLaser(ctx, deps, conf, logger)
		},
		AttributeMapConverter: func(attributes resource.AttributeMap) (resource.ConfigValidator, error) {
			attrs, err := resource.DecodeAttributes[Config](attributes)
			if err != nil {
				return nil, err
			}
			return attrs, nil
		},
	})
}

// Laser is a laser that cycles through configured scans, one per update.
type Laser struct {
	*laser.Laser

	mu    sync.Mutex
	scans [][]laser.Sample
	next  int
}

// missPort answers every ray with a miss at full range.
type missPort struct{}

func (missPort) Raycast(origin spatialmath.Pose, maxRange float64, filter raycast.Filter, zTest bool) raycast.Result {
	return raycast.Result{Range: maxRange}
}

// NewLaser returns a playback laser from a converted config.
func NewLaser(ctx context.Context, deps sensor.Dependencies, conf resource.Config, logger logging.Logger) (*Laser, error) {
	attrs, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}
	if err := attrs.Validate(conf.Name); err != nil {
		return nil, err
	}
	scans := attrs.samples()
	scanConf := laser.DefaultConfig()
	scanConf.SampleCount = len(scans[0])
	scanConf.Interval = interval(attrs)

	inner, err := laser.NewLaser(conf.ResourceName(), deps.Owner, missPort{}, scanConf, logger)
	if err != nil {
		return nil, err
	}
	return &Laser{Laser: inner, scans: scans}, nil
}

func interval(attrs *Config) time.Duration {
	if attrs.IntervalMs == nil {
		return laser.DefaultInterval
	}
	return time.Duration(*attrs.IntervalMs * float64(time.Millisecond))
}

// Update injects the next scan, wrapping around after the last one. The pose is ignored.
func (f *Laser) Update(ctx context.Context, pose spatialmath.Pose) error {
	f.mu.Lock()
	scan := f.scans[f.next]
	f.next = (f.next + 1) % len(f.scans)
	f.mu.Unlock()
	return f.SetSamples(scan, len(scan))
}

// Reconfigure replaces the scans and restarts playback from the first one.
func (f *Laser) Reconfigure(ctx context.Context, conf resource.Config) error {
	if err := sensor.ConvertAttributes(&conf); err != nil {
		return err
	}
	if err := conf.Validate(conf.Name); err != nil {
		return err
	}
	attrs, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return err
	}
	scans := attrs.samples()
	scanConf := f.GetConfig()
	scanConf.SampleCount = len(scans[0])
	scanConf.Interval = interval(attrs)
	if err := f.SetConfig(scanConf); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = scans
	f.next = 0
	return nil
}
