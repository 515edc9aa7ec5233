package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/rangesim/config"
	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/render"
	"go.viam.com/rangesim/simulation"
	"go.viam.com/rangesim/utils"
)

// ValidateAction reads and validates a world file, including every sensor's attributes.
func ValidateAction(c *cli.Context) error {
	logger := newLogger(c)
	conf, err := config.Read(c.Context, c.String(generalFlagConfig), logger)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s is valid: %d entities, %d agents, %d sensors",
		conf.ConfigFilePath, len(conf.Entities), len(conf.Agents), len(conf.Sensors()))
	return nil
}

// SchemaAction prints the JSON schema of world files.
func SchemaAction(c *cli.Context) error {
	raw, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal schema")
	}
	printf(c.App.Writer, "%s", raw)
	return nil
}

// ScanAction builds the world, runs one tick and prints a table of samples per laser.
func ScanAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	ctx := c.Context
	sim, err := loadSimulation(ctx, c.String(generalFlagConfig), logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, sim.Close(context.Background()))
	}()

	names := sim.SensorNames()
	if only := c.String(scanFlagSensor); only != "" {
		if _, ok := sim.Sensor(only); !ok {
			return errors.Errorf("no sensor named %q", only)
		}
		names = []string{only}
	}

	if err := sim.Step(ctx); err != nil {
		return errors.Wrap(err, "scan failed")
	}
	for _, name := range names {
		s, _ := sim.Sensor(name)
		src, ok := s.(render.ScanSource)
		if !ok {
			printf(c.App.Writer, "%s does not produce scans", name)
			continue
		}
		printf(c.App.Writer, "%s", scanTable(name, src))
	}
	return nil
}

// RunAction steps the simulation for a number of ticks, rendering and reloading as asked.
func RunAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	ticks := c.Int(runFlagTicks)
	if ticks <= 0 {
		return errors.Errorf("--%s must be positive, got %d", runFlagTicks, ticks)
	}
	renderDir := c.String(runFlagRenderDir)
	if c.Bool(runFlagPlot) && renderDir == "" {
		return errors.Errorf("--%s requires --%s", runFlagPlot, runFlagRenderDir)
	}

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
	defer cancel()

	path := c.String(generalFlagConfig)
	sim, err := loadSimulation(ctx, path, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, sim.Close(context.Background()))
	}()

	var rec *recorder
	if renderDir != "" {
		rec, err = newRecorder(sim, renderDir, logger)
		if err != nil {
			return err
		}
		defer goutils.UncheckedErrorFunc(rec.Close)
		sim.AddStepListener(rec.onStep)
	}

	var configs <-chan *config.Config
	if c.Bool(runFlagWatch) {
		watcher, err := config.NewWatcher(ctx, path, logger)
		if err != nil {
			return err
		}
		defer goutils.UncheckedErrorFunc(watcher.Close)
		configs = watcher.Configs()
	}

	if c.Bool(runFlagRealtime) {
		err = runRealtime(ctx, sim, ticks, configs, logger)
	} else {
		err = runStepped(ctx, sim, ticks, configs, logger)
	}
	if errors.Is(err, context.Canceled) && c.Context.Err() == nil {
		logger.Info("interrupted")
		err = nil
	}
	if err != nil {
		return err
	}

	if rec != nil && c.Bool(runFlagPlot) {
		if err := rec.plot(); err != nil {
			return err
		}
	}
	printf(c.App.Writer, "simulated %v in %d steps", sim.SimTime(), sim.Steps())
	printf(c.App.Writer, "%s", summaryTable(ctx, sim))
	return nil
}

func loadSimulation(ctx context.Context, path string, logger logging.Logger) (*simulation.Simulation, error) {
	conf, err := config.Read(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	return simulation.FromConfig(ctx, conf, clock.New(), logger)
}

func runStepped(
	ctx context.Context,
	sim *simulation.Simulation,
	ticks int,
	configs <-chan *config.Config,
	logger logging.Logger,
) error {
	for i := 0; i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		applyPending(ctx, sim, configs, logger)
		if err := sim.Step(ctx); err != nil {
			logger.Warnw("step completed with errors", "sim_time", sim.SimTime(), "error", err)
		}
	}
	return nil
}

func runRealtime(
	ctx context.Context,
	sim *simulation.Simulation,
	ticks int,
	configs <-chan *config.Config,
	logger logging.Logger,
) error {
	target := sim.Steps() + int64(ticks)
	done := make(chan struct{})
	var once sync.Once
	sim.AddStepListener(func(ctx context.Context, simTime time.Duration) {
		if sim.Steps() >= target {
			once.Do(func() { close(done) })
		}
	})

	if err := sim.Start(ctx); err != nil {
		return err
	}
	defer sim.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case conf := <-configs:
			apply(ctx, sim, conf, logger)
		}
	}
}

// applyPending applies every reloaded config waiting on configs without blocking.
func applyPending(ctx context.Context, sim *simulation.Simulation, configs <-chan *config.Config, logger logging.Logger) {
	for {
		select {
		case conf := <-configs:
			apply(ctx, sim, conf, logger)
		default:
			return
		}
	}
}

func apply(ctx context.Context, sim *simulation.Simulation, conf *config.Config, logger logging.Logger) {
	if err := sim.Apply(ctx, conf); err != nil {
		logger.Errorw("failed to apply world file changes", "error", err)
		return
	}
	logger.Infow("applied world file changes", "sim_time", sim.SimTime())
}

// scanTable renders one laser's latest scan with a row per sample.
func scanTable(name string, src render.ScanSource) string {
	t := table.NewWriter()
	t.SetTitle(name)
	t.AppendHeader(table.Row{"#", "Bearing (deg)", "Range (m)", "Reflectance", "X (m)", "Y (m)"})
	samples, n := src.GetSamples()
	if n == 0 {
		t.SetCaption("no samples until subscribed")
		return t.Render()
	}
	conf := src.GetConfig()
	conf.SampleCount = n
	points := render.HitPoints(samples, conf)
	for i, s := range samples {
		t.AppendRow(table.Row{
			i,
			fmt.Sprintf("%.1f", utils.RadToDeg(conf.Bearing(i))),
			fmt.Sprintf("%.3f", s.Range),
			fmt.Sprintf("%.0f", s.Reflectance),
			fmt.Sprintf("%.3f", points[i].X),
			fmt.Sprintf("%.3f", points[i].Y),
		})
	}
	return t.Render()
}

// summaryTable renders each sensor's subscription state and range statistics.
func summaryTable(ctx context.Context, sim *simulation.Simulation) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Sensor", "Subscribers", "Samples", "Bright", "Min (m)", "Mean (m)", "Max (m)"})
	for _, name := range sim.SensorNames() {
		s, ok := sim.Sensor(name)
		if !ok {
			continue
		}
		readings, err := s.Readings(ctx, nil)
		if err != nil {
			t.AppendRow(table.Row{name, sim.Subscribers(name), err.Error()})
			continue
		}
		t.AppendRow(table.Row{
			name,
			sim.Subscribers(name),
			reading(readings, "sample_count"),
			reading(readings, "bright_count"),
			reading(readings, "min_range"),
			reading(readings, "mean_range"),
			reading(readings, "max_range"),
		})
	}
	return t.Render()
}

func reading(readings map[string]interface{}, key string) string {
	switch v := readings[key].(type) {
	case nil:
		return "-"
	case float64:
		return fmt.Sprintf("%.3f", v)
	default:
		return fmt.Sprint(v)
	}
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
