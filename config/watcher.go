package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/rangesim/logging"
	"go.viam.com/rangesim/utils"
)

// watchDebounce is how long the file must stay quiet before it is re-read. Editors and
// copies often produce several events per save.
const watchDebounce = 50 * time.Millisecond

// A Watcher re-reads a world file whenever it changes on disk.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	configs chan *Config
	changed chan struct{}
	workers *utils.StoppableWorkers
	logger  logging.Logger
}

// NewWatcher watches the world file at path. Files that fail to read or validate are logged
// and skipped.
func NewWatcher(ctx context.Context, path string, logger logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	// editors often replace the file, so watch its directory
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		goutils.UncheckedErrorFunc(fsw.Close)
		return nil, errors.Wrapf(err, "failed to watch %q", path)
	}
	w := &Watcher{
		path:    abs,
		fsw:     fsw,
		configs: make(chan *Config),
		changed: make(chan struct{}, 1),
		logger:  logger,
	}
	w.workers = utils.NewStoppableWorkers(ctx, w.watch)
	return w, nil
}

// Configs delivers each successfully re-read config.
func (w *Watcher) Configs() <-chan *Config {
	return w.configs
}

func (w *Watcher) watch(ctx context.Context) {
	debounced := debounce.New(watchDebounce)
	notify := func() {
		select {
		case w.changed <- struct{}{}:
		default:
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("world file watcher error", "error", err)
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			debounced(notify)
		case <-w.changed:
			conf, err := Read(ctx, w.path, w.logger)
			if err != nil {
				w.logger.Warnw("ignoring changed world file", "path", w.path, "error", err)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case w.configs <- conf:
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.workers.Stop()
	return w.fsw.Close()
}
