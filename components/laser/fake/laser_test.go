package fake

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/rangesim/components/laser"
	"go.viam.com/rangesim/components/sensor"
	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/resource"
	"go.viam.com/rangesim/spatialmath"
)

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		conf Config
		err  string
	}{
		{"no scans", Config{}, `error validating "s": "scans" is required`},
		{"short scan", Config{Scans: [][]float64{{1}}}, "scan 0 has fewer than 2 samples"},
		{"negative range", Config{Scans: [][]float64{{1, -1}}}, "scan 0 has a negative range"},
		{
			"reflectance count",
			Config{Scans: [][]float64{{1, 2}}, Reflectances: [][]float64{{0, 1}, {1, 1}}},
			"got 2 reflectance lists for 1 scans",
		},
		{
			"reflectance length",
			Config{Scans: [][]float64{{1, 2}}, Reflectances: [][]float64{{0}}},
			"scan 0 has 2 ranges but 1 reflectances",
		},
		{
			"partial reflectance",
			Config{Scans: [][]float64{{1, 2}}, Reflectances: [][]float64{{0, 0.5}}},
			"scan 0 has reflectance 0.5; must be 0 or 1",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.conf.Validate("s")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.err)
		})
	}
	conf := Config{Scans: [][]float64{{1, 2}, {3, 4, 5}}}
	test.That(t, conf.Validate("s"), test.ShouldBeNil)
}

func TestPlayback(t *testing.T) {
	ctx := context.Background()
	conf := resource.Config{
		Name: "replay",
		Kind: Kind,
		Attributes: resource.AttributeMap{
			"scans":        []interface{}{[]interface{}{1.0, 2.0}, []interface{}{3.0, 4.0, 5.0}},
			"reflectances": []interface{}{[]interface{}{0, 1}, []interface{}{1, 0, 1}},
			"interval_ms":  250,
		},
	}
	s, err := sensor.New(ctx, sensor.Dependencies{}, conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Interval(), test.ShouldEqual, 250*time.Millisecond)

	f, ok := s.(*Laser)
	test.That(t, ok, test.ShouldBeTrue)

	expected := [][]laser.Sample{
		{{Range: 1, Reflectance: 0}, {Range: 2, Reflectance: 1}},
		{{Range: 3, Reflectance: 1}, {Range: 4, Reflectance: 0}, {Range: 5, Reflectance: 1}},
		{{Range: 1, Reflectance: 0}, {Range: 2, Reflectance: 1}},
	}
	for _, scan := range expected {
		test.That(t, s.Update(ctx, spatialmath.NewZeroPose()), test.ShouldBeNil)
		test.That(t, f.IsDirty(), test.ShouldBeTrue)
		f.ClearDirty()
		samples, n := f.GetSamples()
		test.That(t, n, test.ShouldEqual, len(scan))
		test.That(t, samples, test.ShouldResemble, scan)
		test.That(t, f.GetConfig().SampleCount, test.ShouldEqual, len(scan))
	}
}

func TestReconfigureRestartsPlayback(t *testing.T) {
	ctx := context.Background()
	conf := resource.Config{
		Name:       "replay",
		Kind:       Kind,
		Attributes: resource.AttributeMap{"scans": [][]float64{{1, 1}, {2, 2}}},
	}
	s, err := sensor.New(ctx, sensor.Dependencies{}, conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Update(ctx, spatialmath.NewZeroPose()), test.ShouldBeNil)

	conf.Attributes = resource.AttributeMap{"scans": [][]float64{{7, 8, 9}}}
	test.That(t, s.Reconfigure(ctx, conf), test.ShouldBeNil)
	test.That(t, s.Update(ctx, spatialmath.NewZeroPose()), test.ShouldBeNil)
	readings, err := s.Readings(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readings["ranges"], test.ShouldResemble, []float64{7, 8, 9})

	conf.Attributes = resource.AttributeMap{"scans": [][]float64{}}
	test.That(t, s.Reconfigure(ctx, conf), test.ShouldNotBeNil)
}
