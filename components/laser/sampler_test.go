package laser

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/rangesim/raycast"
	"go.viam.com/rangesim/spatialmath"
	"go.viam.com/rangesim/testutils/inject"
)

// indexedPort answers each ray with rangeFor(index), where index is recovered from the
// ray's heading relative to the configured sweep.
func indexedPort(conf Config, rangeFor func(int) float64, hitFor func(int) raycast.Entity) *inject.RaycastPort {
	return &inject.RaycastPort{
		RaycastFunc: func(origin spatialmath.Pose, maxRange float64, filter raycast.Filter, zTest bool) raycast.Result {
			idx := int(math.Round((origin.Heading() + conf.FOV/2) / conf.BearingStep()))
			res := raycast.Result{Range: rangeFor(idx)}
			if hitFor != nil {
				res.Hit = hitFor(idx)
			}
			return res
		},
	}
}

func testConfig(n, res int) Config {
	conf := DefaultConfig()
	conf.SampleCount = n
	conf.Resolution = res
	return conf
}

func TestUpdateEmptyWorld(t *testing.T) {
	conf := testConfig(5, 1)
	port := &inject.RaycastPort{}
	sampler := ScanSampler{}
	var buf SampleBuffer

	test.That(t, sampler.Update(spatialmath.NewZeroPose(), conf, port, &buf), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldEqual, 5)
	test.That(t, buf.IsDirty(), test.ShouldBeTrue)
	for _, s := range buf.Samples() {
		test.That(t, s.Range, test.ShouldEqual, conf.RangeMax)
		test.That(t, s.Reflectance, test.ShouldEqual, 0.0)
	}

	rays := port.Rays()
	test.That(t, rays, test.ShouldHaveLength, 5)
	expected := []float64{-math.Pi / 2, -math.Pi / 4, 0, math.Pi / 4, math.Pi / 2}
	for i, ray := range rays {
		test.That(t, ray.Origin.Heading(), test.ShouldAlmostEqual, expected[i])
		test.That(t, ray.MaxRange, test.ShouldEqual, conf.RangeMax)
		test.That(t, ray.ZTest, test.ShouldBeTrue)
	}
}

func TestUpdateFullResolutionCastsEveryBearing(t *testing.T) {
	conf := testConfig(37, 1)
	port := indexedPort(conf, func(i int) float64 { return float64(i) * 0.1 }, nil)
	var buf SampleBuffer
	test.That(t, (&ScanSampler{}).Update(spatialmath.NewZeroPose(), conf, port, &buf), test.ShouldBeNil)
	test.That(t, port.Rays(), test.ShouldHaveLength, 37)
	for i, s := range buf.Samples() {
		test.That(t, s.Range, test.ShouldAlmostEqual, float64(i)*0.1)
	}
}

func TestUpdateInterpolates(t *testing.T) {
	bright := &inject.Entity{R: raycast.Bright}
	dim := &inject.Entity{R: raycast.Visible}

	t.Run("resolution 2", func(t *testing.T) {
		conf := testConfig(5, 2)
		port := indexedPort(conf,
			func(i int) float64 { return 1 + float64(i*i) },
			func(i int) raycast.Entity {
				if i == 0 {
					return bright
				}
				return dim
			})
		var buf SampleBuffer
		test.That(t, (&ScanSampler{}).Update(spatialmath.NewZeroPose(), conf, port, &buf), test.ShouldBeNil)
		test.That(t, port.Rays(), test.ShouldHaveLength, 3)

		samples := buf.Samples()
		test.That(t, samples[0], test.ShouldResemble, Sample{Range: 1, Reflectance: 1})
		test.That(t, samples[2], test.ShouldResemble, Sample{Range: 5, Reflectance: 0})
		test.That(t, samples[4], test.ShouldResemble, Sample{Range: 17, Reflectance: 0})
		test.That(t, samples[1].Range, test.ShouldAlmostEqual, 3.0)
		test.That(t, samples[1].Reflectance, test.ShouldEqual, 1.0)
		test.That(t, samples[3].Range, test.ShouldAlmostEqual, 11.0)
		test.That(t, samples[3].Reflectance, test.ShouldEqual, 0.0)
	})

	t.Run("resolution 3", func(t *testing.T) {
		conf := testConfig(7, 3)
		port := indexedPort(conf, func(i int) float64 { return 1 + float64(i*i) }, nil)
		var buf SampleBuffer
		test.That(t, (&ScanSampler{}).Update(spatialmath.NewZeroPose(), conf, port, &buf), test.ShouldBeNil)
		test.That(t, port.Rays(), test.ShouldHaveLength, 3)

		samples := buf.Samples()
		for _, left := range []int{0, 3} {
			right := left + 3
			for g := 1; g < 3; g++ {
				rl, rr := samples[left].Range, samples[right].Range
				test.That(t, samples[left+g].Range, test.ShouldAlmostEqual, rl+float64(g)*(rr-rl)/3)
				test.That(t, samples[right-g].Range, test.ShouldAlmostEqual, rr-float64(g)*(rr-rl)/3)
			}
		}
		test.That(t, samples[1].Range, test.ShouldAlmostEqual, 4.0)
		test.That(t, samples[2].Range, test.ShouldAlmostEqual, 7.0)
	})
}

func TestUpdateTrailingGapHoldsLastCast(t *testing.T) {
	bright := &inject.Entity{R: raycast.Bright}
	conf := testConfig(6, 2)
	port := indexedPort(conf,
		func(i int) float64 { return float64(i + 1) },
		func(i int) raycast.Entity {
			if i == 4 {
				return bright
			}
			return nil
		})
	var buf SampleBuffer
	buf.Replace([]Sample{{9, 9}, {9, 9}, {9, 9}, {9, 9}, {9, 9}, {9, 9}})

	test.That(t, (&ScanSampler{}).Update(spatialmath.NewZeroPose(), conf, port, &buf), test.ShouldBeNil)
	test.That(t, port.Rays(), test.ShouldHaveLength, 3)
	samples := buf.Samples()
	test.That(t, samples[5], test.ShouldResemble, samples[4])
	test.That(t, samples[5], test.ShouldResemble, Sample{Range: 5, Reflectance: 1})
	for _, s := range samples {
		test.That(t, s.Range, test.ShouldNotEqual, 9.0)
	}
}

func TestUpdateIdempotent(t *testing.T) {
	conf := testConfig(31, 4)
	port := indexedPort(conf, func(i int) float64 { return math.Sin(float64(i)) + 2 }, nil)
	pose := spatialmath.NewPose(1, 2, 0, 0.3)
	sampler := ScanSampler{Height: 0.2}

	var first, second SampleBuffer
	test.That(t, sampler.Update(pose, conf, port, &first), test.ShouldBeNil)
	test.That(t, sampler.Update(pose, conf, port, &second), test.ShouldBeNil)
	test.That(t, second.Samples(), test.ShouldResemble, first.Samples())
}

func TestUpdateResize(t *testing.T) {
	port := &inject.RaycastPort{}
	var buf SampleBuffer
	sampler := ScanSampler{}
	for _, n := range []int{5, 180, 2, 64, 64, 3} {
		for _, res := range []int{1, 2, 5} {
			test.That(t, sampler.Update(spatialmath.NewZeroPose(), testConfig(n, res), port, &buf), test.ShouldBeNil)
			test.That(t, buf.Len(), test.ShouldEqual, n)
		}
	}
}

func TestUpdateRejectsTooFewSamples(t *testing.T) {
	port := &inject.RaycastPort{}
	var buf SampleBuffer
	buf.Replace([]Sample{{1, 0}, {2, 0}})
	buf.ClearDirty()

	for _, n := range []int{0, 1} {
		err := (&ScanSampler{}).Update(spatialmath.NewZeroPose(), testConfig(n, 1), port, &buf)
		test.That(t, errors.Is(err, ErrInvalidConfiguration), test.ShouldBeTrue)
	}
	test.That(t, port.Rays(), test.ShouldBeEmpty)
	test.That(t, buf.Samples(), test.ShouldResemble, []Sample{{1, 0}, {2, 0}})
	test.That(t, buf.IsDirty(), test.ShouldBeFalse)
}

func TestRayOrigin(t *testing.T) {
	conf := testConfig(3, 1)
	port := &inject.RaycastPort{}
	pose := spatialmath.Pose{
		Point:       spatialmath.NewPose(1, 2, 0.5, 0).Point,
		Orientation: spatialmath.EulerAngles{Roll: 0.2, Pitch: -0.4, Yaw: 1},
	}
	test.That(t, (&ScanSampler{Height: 0.2}).Update(pose, conf, port, &SampleBuffer{}), test.ShouldBeNil)

	rays := port.Rays()
	test.That(t, rays, test.ShouldHaveLength, 3)
	for i, ray := range rays {
		test.That(t, ray.Origin.Point.X, test.ShouldEqual, 1.0)
		test.That(t, ray.Origin.Point.Y, test.ShouldEqual, 2.0)
		test.That(t, ray.Origin.Point.Z, test.ShouldAlmostEqual, 0.6)
		test.That(t, ray.Origin.Orientation.Roll, test.ShouldEqual, 0.0)
		test.That(t, ray.Origin.Orientation.Pitch, test.ShouldEqual, 0.0)
		test.That(t, ray.Origin.Heading(), test.ShouldAlmostEqual, 1+conf.Bearing(i))
	}
}

func TestFilter(t *testing.T) {
	owner := &inject.Entity{Name: "owner", R: raycast.Bright}
	filter := NewFilter(owner)
	test.That(t, filter(owner), test.ShouldBeFalse)
	test.That(t, filter(nil), test.ShouldBeFalse)
	test.That(t, filter(&inject.Entity{R: raycast.Transparent}), test.ShouldBeFalse)
	test.That(t, filter(&inject.Entity{R: raycast.Reflectivity(-1)}), test.ShouldBeFalse)
	test.That(t, filter(&inject.Entity{R: raycast.Visible}), test.ShouldBeTrue)
	test.That(t, filter(&inject.Entity{R: raycast.Bright}), test.ShouldBeTrue)

	var passed []raycast.Filter
	port := &inject.RaycastPort{
		RaycastFunc: func(origin spatialmath.Pose, maxRange float64, f raycast.Filter, zTest bool) raycast.Result {
			passed = append(passed, f)
			return raycast.Result{Range: maxRange}
		},
	}
	test.That(t, (&ScanSampler{Owner: owner}).Update(spatialmath.NewZeroPose(), testConfig(2, 1), port, &SampleBuffer{}),
		test.ShouldBeNil)
	test.That(t, passed, test.ShouldHaveLength, 2)
	for _, f := range passed {
		test.That(t, f(owner), test.ShouldBeFalse)
		test.That(t, f(&inject.Entity{R: raycast.Transparent}), test.ShouldBeFalse)
	}
}

func TestSampleBuffer(t *testing.T) {
	var buf SampleBuffer
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	test.That(t, buf.IsDirty(), test.ShouldBeFalse)

	in := []Sample{{1, 0}, {2, 1}, {3, 0}}
	buf.Replace(in)
	test.That(t, buf.IsDirty(), test.ShouldBeTrue)
	test.That(t, buf.Samples(), test.ShouldResemble, in)
	in[0].Range = 100
	test.That(t, buf.Samples()[0].Range, test.ShouldEqual, 1.0)

	buf.ClearDirty()
	test.That(t, buf.IsDirty(), test.ShouldBeFalse)

	buf.Resize(4)
	test.That(t, buf.Len(), test.ShouldEqual, 4)
	buf.Release()
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	test.That(t, buf.Samples(), test.ShouldBeNil)
}
