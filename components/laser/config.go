package laser

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/utils"
)

// Defaults for a laser that does not configure every field.
const (
	DefaultSampleCount = 180
	DefaultRangeMin    = 0.0
	DefaultRangeMax    = 8.0
	DefaultFOV         = math.Pi
	DefaultResolution  = 1
	DefaultInterval    = 100 * time.Millisecond
	DefaultWatts       = 17.5
)

// ErrInvalidConfiguration is wrapped by every error reporting a scan configuration that
// cannot be sampled.
var ErrInvalidConfiguration = errors.New("invalid laser configuration")

func invalidConfiguration(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}

// Config is the set of scan parameters in force for one tick.
type Config struct {
	// SampleCount is the number of angular samples in one scan.
	SampleCount int
	// FOV is the total angular span in radians, symmetric about the forward axis.
	FOV float64
	// RangeMin is recorded but not enforced as a floor on reported range.
	RangeMin float64
	// RangeMax is the length of every cast ray.
	RangeMax float64
	// Resolution casts only every Resolution-th bearing and interpolates the rest.
	Resolution int
	// Interval is the update period requested from the scheduler.
	Interval time.Duration
}

// DefaultConfig returns the configuration of a laser that sets nothing.
func DefaultConfig() Config {
	return Config{
		SampleCount: DefaultSampleCount,
		FOV:         DefaultFOV,
		RangeMin:    DefaultRangeMin,
		RangeMax:    DefaultRangeMax,
		Resolution:  DefaultResolution,
		Interval:    DefaultInterval,
	}
}

// Validate rejects configurations that cannot be sampled. A resolution below 1 is not an
// error; it is forced to 1 and a warning is logged.
func (c *Config) Validate(logger logging.Logger) error {
	if c.SampleCount < 2 {
		return invalidConfiguration("samples must be at least 2, got %d", c.SampleCount)
	}
	if c.FOV <= 0 || c.FOV > 2*math.Pi {
		return invalidConfiguration("fov must be in (0, 2pi], got %v", c.FOV)
	}
	if c.RangeMax <= 0 {
		return invalidConfiguration("range_max must be positive, got %v", c.RangeMax)
	}
	if c.RangeMin < 0 || c.RangeMin > c.RangeMax {
		return invalidConfiguration("range_min must be in [0, range_max], got %v", c.RangeMin)
	}
	if c.Interval < 0 {
		return invalidConfiguration("interval must not be negative, got %v", c.Interval)
	}
	if c.Resolution < 1 {
		if logger != nil {
			logger.Warnw("laser resolution set < 1. Forcing to 1", "resolution", c.Resolution)
		}
		c.Resolution = 1
	}
	return nil
}

// BearingStep is the angle between adjacent samples.
func (c Config) BearingStep() float64 {
	return c.FOV / float64(c.SampleCount-1)
}

// Bearing is the angle of sample t relative to the sensor's forward axis. Sample 0 is at
// -FOV/2 and sample SampleCount-1 is at +FOV/2.
func (c Config) Bearing(t int) float64 {
	return -c.FOV/2 + float64(t)*c.BearingStep()
}

// AttributeConfig is the world-file form of a laser's configuration. Absent fields fall back
// to the defaults; present fields are validated as given.
type AttributeConfig struct {
	Samples    *int     `json:"samples,omitempty"`
	RangeMin   *float64 `json:"range_min,omitempty"`
	RangeMax   *float64 `json:"range_max,omitempty"`
	FOV        *float64 `json:"fov,omitempty"`
	Resolution *int     `json:"resolution,omitempty"`
	IntervalMs *float64 `json:"interval_ms,omitempty"`
	// Height is the vertical size of the sensor body; rays leave at half of it.
	Height float64 `json:"height,omitempty"`
}

// Validate checks the attributes in isolation, without logging or mutating them.
func (attrs *AttributeConfig) Validate(path string) error {
	conf := attrs.ScanConfig()
	if conf.Resolution < 1 {
		conf.Resolution = 1
	}
	if err := conf.Validate(nil); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if attrs.Height < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("height must not be negative, got %v", attrs.Height))
	}
	return nil
}

// ScanConfig merges the attributes over the defaults.
func (attrs *AttributeConfig) ScanConfig() Config {
	conf := DefaultConfig()
	if attrs.Samples != nil {
		conf.SampleCount = *attrs.Samples
	}
	if attrs.RangeMin != nil {
		conf.RangeMin = *attrs.RangeMin
	}
	if attrs.RangeMax != nil {
		conf.RangeMax = *attrs.RangeMax
	}
	if attrs.FOV != nil {
		conf.FOV = *attrs.FOV
	}
	if attrs.Resolution != nil {
		conf.Resolution = *attrs.Resolution
	}
	if attrs.IntervalMs != nil {
		conf.Interval = time.Duration(*attrs.IntervalMs * float64(time.Millisecond))
	}
	return conf
}
