package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/render"
	"go.viam.com/rangesim/simulation"
	"go.viam.com/rangesim/utils"
)

type recording struct {
	source   render.ScanSource
	renderer *render.ScanRenderer
	frames   int
}

// recorder writes a PNG for every laser whose scan changed during a tick.
type recorder struct {
	sim    *simulation.Simulation
	dir    string
	logger logging.Logger

	mu         sync.Mutex
	recordings map[string]*recording
}

func newRecorder(sim *simulation.Simulation, dir string, logger logging.Logger) (*recorder, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "failed to create render directory %q", dir)
	}
	return &recorder{
		sim:        sim,
		dir:        dir,
		logger:     logger.Sublogger("recorder"),
		recordings: map[string]*recording{},
	}, nil
}

// recordingFor returns the recording of the named sensor, starting a new one if the sensor
// was rebuilt since the last tick.
func (r *recorder) recordingFor(name string) (*recording, bool) {
	s, ok := r.sim.Sensor(name)
	if !ok {
		return nil, false
	}
	src, ok := s.(render.ScanSource)
	if !ok {
		return nil, false
	}
	rec, ok := r.recordings[name]
	if !ok || rec.source != src {
		rec = &recording{source: src, renderer: render.NewScanRenderer(src, render.DefaultOptions())}
		r.recordings[name] = rec
	}
	return rec, true
}

func (r *recorder) onStep(ctx context.Context, simTime time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range r.sim.SensorNames() {
		rec, ok := r.recordingFor(name)
		if !ok || !rec.source.IsDirty() {
			continue
		}
		img, err := rec.renderer.Next(ctx)
		if errors.Is(err, render.ErrNoScan) {
			continue
		}
		if err == nil {
			err = r.save(fmt.Sprintf("%s_%08d.png", name, simTime.Milliseconds()), func(path string) error {
				return gg.SavePNG(path, img)
			})
		}
		if err != nil {
			r.logger.Errorw("failed to record scan", "sensor", name, "error", err)
			continue
		}
		rec.frames++
	}
}

func (r *recorder) save(file string, write func(path string) error) error {
	path, err := utils.SafeJoinDir(r.dir, file)
	if err != nil {
		return err
	}
	if err := write(path); err != nil {
		return err
	}
	r.logger.Debugw("wrote", "path", path)
	return nil
}

// plot writes a range plot of every recorded laser's latest scan.
func (r *recorder) plot() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs error
	for name, rec := range r.recordings {
		samples, n := rec.source.GetSamples()
		if n == 0 {
			continue
		}
		errs = multierr.Append(errs, r.save(name+"_ranges.png", func(path string) error {
			return render.PlotRanges(name, samples, rec.source.GetConfig(), path)
		}))
	}
	return errs
}

// Close releases every renderer.
func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs error
	for _, rec := range r.recordings {
		errs = multierr.Append(errs, rec.renderer.Close())
	}
	return errs
}
