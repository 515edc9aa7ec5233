package resource_test

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rangesim/resource"
)

type testAttrs struct {
	Samples int     `json:"samples"`
	FOV     float64 `json:"fov"`
	Label   string  `json:"label,omitempty"`
}

func (a *testAttrs) Validate(path string) error {
	if a.Samples < 0 {
		return errors.Errorf("%s: negative samples", path)
	}
	return nil
}

func TestDecodeAttributes(t *testing.T) {
	attrs, err := resource.DecodeAttributes[testAttrs](resource.AttributeMap{
		"samples": 90.0,
		"fov":     "3.14",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, attrs.Samples, test.ShouldEqual, 90)
	test.That(t, attrs.FOV, test.ShouldAlmostEqual, 3.14)

	_, err = resource.DecodeAttributes[testAttrs](resource.AttributeMap{"bogus": 1})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bogus")
}

func TestConfigValidate(t *testing.T) {
	conf := resource.Config{Kind: "laser"}
	test.That(t, conf.Validate("sensors.0"), test.ShouldBeError, `error validating "sensors.0": "name" is required`)

	conf = resource.Config{Name: "l"}
	test.That(t, conf.Validate("sensors.0"), test.ShouldBeError, `error validating "sensors.0": "kind" is required`)

	conf = resource.Config{Name: "l", Kind: "laser", ConvertedAttributes: &testAttrs{Samples: -1}}
	err := conf.Validate("sensors.0")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sensors.0.attributes")

	conf.ConvertedAttributes = &testAttrs{Samples: 3}
	test.That(t, conf.Validate("sensors.0"), test.ShouldBeNil)

	native, err := resource.NativeConfig[*testAttrs](conf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, native.Samples, test.ShouldEqual, 3)

	test.That(t, conf.ResourceName().Name, test.ShouldEqual, "l")
	test.That(t, resource.AttributeMap{"a": 1}.Has("a"), test.ShouldBeTrue)
}
