package sensor_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/resource"
	"go.viam.com/rangesim/testutils/inject"
)

type stubAttributes struct {
	Level int `json:"level"`
}

func (attrs *stubAttributes) Validate(path string) error {
	if attrs.Level < 0 {
		return errors.Errorf("%s: level must not be negative", path)
	}
	return nil
}

func init() {
	sensor.RegisterKind("registry_test_stub", sensor.Registration{
		Constructor: func(
			ctx context.Context,
			deps sensor.Dependencies,
			conf resource.Config,
			logger logging.Logger,
		) (sensor.Sensor, error) {
			attrs, err := resource.NativeConfig[*stubAttributes](conf)
			if err != nil {
				return nil, err
			}
			s := inject.NewSensor(conf.Name)
			s.ReadingsFunc = func(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
				return map[string]interface{}{"level": attrs.Level}, nil
			}
			return s, nil
		},
		AttributeMapConverter: func(attributes resource.AttributeMap) (resource.ConfigValidator, error) {
			attrs, err := resource.DecodeAttributes[stubAttributes](attributes)
			if err != nil {
				return nil, err
			}
			return attrs, nil
		},
	})
}

func TestRegisterKindPanics(t *testing.T) {
	noop := func(context.Context, sensor.Dependencies, resource.Config, logging.Logger) (sensor.Sensor, error) {
		return nil, nil
	}
	test.That(t, func() {
		sensor.RegisterKind("registry_test_stub", sensor.Registration{Constructor: noop})
	}, test.ShouldPanic)
	test.That(t, func() {
		sensor.RegisterKind("registry_test_nil", sensor.Registration{})
	}, test.ShouldPanic)
	_, ok := sensor.Lookup("registry_test_nil")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestKinds(t *testing.T) {
	kinds := sensor.Kinds()
	test.That(t, kinds, test.ShouldContain, "registry_test_stub")
	for i := 1; i < len(kinds); i++ {
		test.That(t, kinds[i-1] < kinds[i], test.ShouldBeTrue)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	s, err := sensor.New(ctx, sensor.Dependencies{}, resource.Config{
		Name:       "stub0",
		Kind:       "registry_test_stub",
		Attributes: resource.AttributeMap{"level": 3},
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Name(), test.ShouldResemble, resource.NewSensorName("stub0"))
	readings, err := s.Readings(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readings["level"], test.ShouldEqual, 3)

	_, err = sensor.New(ctx, sensor.Dependencies{}, resource.Config{
		Name:       "stub0",
		Kind:       "registry_test_stub",
		Attributes: resource.AttributeMap{"level": -1},
	}, logger)
	test.That(t, err, test.ShouldBeError, errors.New("stub0.attributes: level must not be negative"))

	_, err = sensor.New(ctx, sensor.Dependencies{}, resource.Config{Name: "x", Kind: "sonar"}, logger)
	test.That(t, err, test.ShouldBeError, sensor.NewUnknownKindError("sonar"))

	_, err = sensor.New(ctx, sensor.Dependencies{}, resource.Config{Kind: "registry_test_stub"}, logger)
	test.That(t, err, test.ShouldBeError, `error validating "": "name" is required`)
}
