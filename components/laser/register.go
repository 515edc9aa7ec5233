package laser

import (
	"context"

	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/resource"
)

// Kind is the sensor kind of a raycasting laser.
const Kind = "laser"

func init() {
	sensor.RegisterKind(Kind, sensor.Registration{
		Constructor: newLaserSensor,
		AttributeMapConverter: func(attributes resource.AttributeMap) (resource.ConfigValidator, error) {
			attrs, err := resource.DecodeAttributes[AttributeConfig](attributes)
			if err != nil {
				return nil, err
			}
			return attrs, nil
		},
	})
}

func newLaserSensor(
	ctx context.Context,
	deps sensor.Dependencies,
	conf resource.Config,
	logger logging.Logger,
) (sensor.Sensor, error) {
	attrs, err := resource.NativeConfig[*AttributeConfig](conf)
	if err != nil {
		return nil, err
	}
	l, err := NewLaser(conf.ResourceName(), deps.Owner, deps.Port, attrs.ScanConfig(), logger)
	if err != nil {
		return nil, err
	}
	if attrs.Height > 0 {
		geometry := l.Geometry()
		geometry.Size.Z = attrs.Height
		l.SetGeometry(geometry)
	}
	return l, nil
}
