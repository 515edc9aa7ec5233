package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
	"go.viam.com/test"

	// register sensor kinds.
	_ "go.viam.com/rangesim/components/register"
	"go.viam.com/rangesim/logging"
)

const roomJSON = `{
	"tick_ms": 50,
	"entities": [
		{"name": "north", "pose": {"x": 0, "y": 5, "z": 0, "yaw": 0}, "size": {"x": 10, "y": 0.2, "z": 1}, "reflectivity": "bright"},
		{"name": "post", "shape": "cylinder", "pose": {"x": 2, "y": 2, "z": 0, "yaw": 0}, "size": {"x": 0.3, "y": 0.3, "z": 2}}
	],
	"agents": [
		{
			"name": "robot",
			"pose": {"x": 0, "y": 0, "z": 0, "yaw": 1.5707963},
			"size": {"x": 0.5, "y": 0.5, "z": 0.3},
			"velocity": {"x": 0.1, "y": 0, "yaw": 0},
			"sensors": [
				{"name": "front", "kind": "laser", "mount": {"x": 0.2, "y": 0, "z": 0.3, "yaw": 0},
				 "attributes": {"samples": 91, "range_max": ${RANGESIM_TEST_RANGE}}},
				{"name": "replay", "kind": "fake_laser", "subscribed": false, "mount": {"x": 0, "y": 0, "z": 0, "yaw": 0},
				 "attributes": {"scans": [[1, 2, 3]]}}
			]
		}
	]
}`

func writeWorld(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "world.json")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestRead(t *testing.T) {
	t.Setenv("RANGESIM_TEST_RANGE", "6.5")
	path := writeWorld(t, t.TempDir(), roomJSON)

	conf, err := Read(context.Background(), path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, conf.Tick(), test.ShouldEqual, 50*time.Millisecond)
	test.That(t, conf.Entities, test.ShouldHaveLength, 2)
	test.That(t, conf.Entities[1].Shape, test.ShouldEqual, "cylinder")
	test.That(t, conf.Agents, test.ShouldHaveLength, 1)
	test.That(t, conf.Agents[0].Velocity.X, test.ShouldEqual, 0.1)

	sensors := conf.Sensors()
	test.That(t, sensors, test.ShouldHaveLength, 2)
	test.That(t, sensors[0].Agent, test.ShouldEqual, "robot")
	test.That(t, sensors[0].Sensor.IsSubscribed(), test.ShouldBeTrue)
	test.That(t, sensors[1].Sensor.IsSubscribed(), test.ShouldBeFalse)
	test.That(t, sensors[0].Sensor.Attributes["range_max"], test.ShouldEqual, 6.5)

	test.That(t, cmp.Diff(Pose{X: 0.2, Z: 0.3}, sensors[0].Sensor.Mount), test.ShouldBeEmpty)
	pose := sensors[0].Sensor.Mount.ToPose()
	test.That(t, pose.Point.X, test.ShouldEqual, 0.2)
	test.That(t, pose.Point.Z, test.ShouldEqual, 0.3)

	rc := sensors[0].Sensor.ResourceConfig()
	test.That(t, rc.Name, test.ShouldEqual, "front")
	test.That(t, rc.Kind, test.ShouldEqual, "laser")
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "nope.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := FromReader(context.Background(), "bad", strings.NewReader(`{"tick_ms": "fast"}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode Config from json")

	_, err = FromReader(context.Background(), "bad", strings.NewReader(`{"ticks": 1}`), logger)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown field")

	conf, err := FromReader(context.Background(), "empty", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Tick(), test.ShouldEqual, DefaultTickMs*time.Millisecond)
}

func TestValidateCombinesErrors(t *testing.T) {
	conf := Config{
		TickMs: -1,
		Entities: []Entity{
			{Name: "a", Size: Vector{X: 1, Y: 1, Z: 1}},
			{Name: "a", Size: Vector{X: 1, Y: 1, Z: 1}, Shape: "cone"},
			{Name: "b", Size: Vector{X: 0, Y: 1, Z: 1}},
			{Name: "c", Size: Vector{X: 1, Y: 1, Z: 1}, Reflectivity: "shiny"},
			{Size: Vector{X: 1, Y: 1, Z: 1}},
		},
		Agents: []Agent{{
			Name: "r",
			Size: Vector{X: 1, Y: 1, Z: 1},
			Sensors: []Sensor{
				{Name: "s", Kind: "laser", Attributes: map[string]interface{}{"samples": 1}},
				{Name: "s", Kind: "sonar"},
				{Name: "t"},
			},
		}},
	}
	err := conf.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	errs := multierr.Errors(err)
	test.That(t, errs, test.ShouldHaveLength, 10)

	msg := err.Error()
	for _, want := range []string{
		`error validating "tick_ms"`,
		`duplicate entity name "a"`,
		`duplicate sensor name "s"`,
		`unknown shape "cone"`,
		"invalid size",
		`unknown reflectivity "shiny"`,
		`error validating "entities.4": "name" is required`,
		"invalid laser configuration",
		`unknown sensor kind "sonar"`,
		`error validating "agents.0.sensors.2": "kind" is required`,
	} {
		test.That(t, msg, test.ShouldContainSubstring, want)
	}
}

func TestWatcher(t *testing.T) {
	t.Setenv("RANGESIM_TEST_RANGE", "6.5")
	dir := t.TempDir()
	path := writeWorld(t, dir, roomJSON)

	w, err := NewWatcher(context.Background(), path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	// unrelated files in the directory are ignored
	test.That(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o600), test.ShouldBeNil)
	// invalid rewrites are logged and skipped
	writeWorld(t, dir, `{"tick_ms": -5}`)
	writeWorld(t, dir, strings.Replace(roomJSON, `"tick_ms": 50`, `"tick_ms": 25`, 1))

	timeout := time.After(10 * time.Second)
	for {
		select {
		case conf := <-w.Configs():
			if conf.Tick() != 25*time.Millisecond {
				continue
			}
			test.That(t, conf.Agents[0].Sensors, test.ShouldHaveLength, 2)
			return
		case <-timeout:
			t.Fatal("timed out waiting for reloaded config")
		}
	}
}

func TestSchema(t *testing.T) {
	raw, err := json.Marshal(Schema())
	test.That(t, err, test.ShouldBeNil)
	for _, field := range []string{"tick_ms", "entities", "agents", "reflectivity", "subscribed", "attributes"} {
		test.That(t, string(raw), test.ShouldContainSubstring, field)
	}
	test.That(t, string(raw), test.ShouldNotContainSubstring, "ConfigFilePath")
}
