package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/pulsemonitor/logging"
)

// DefaultWatchDebounce is how long a config file must stay unchanged before it is re-read.
const DefaultWatchDebounce = 250 * time.Millisecond

// A Watcher reports the config read from a file each time the file changes.
type Watcher interface {
	// Config returns a channel of configs. Changes that do not produce a valid config are
	// logged and skipped.
	Config() <-chan *Config
	Close() error
}

type fsConfigWatcher struct {
	fsWatcher *fsnotify.Watcher
	configCh  chan *Config
	workers   *goutils.StoppableWorkers
}

// NewWatcher watches the config file at path. The file's directory is watched rather than the
// file itself so that editors which replace the file on save are followed.
func NewWatcher(ctx context.Context, path string, logger logging.Logger) (Watcher, error) {
	return newWatcher(path, DefaultWatchDebounce, logger)
}

func newWatcher(path string, after time.Duration, logger logging.Logger) (*fsConfigWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		goutils.UncheckedError(fsWatcher.Close())
		return nil, errors.Wrapf(err, "watching %s", path)
	}

	w := &fsConfigWatcher{
		fsWatcher: fsWatcher,
		configCh:  make(chan *Config),
	}
	reload := make(chan struct{}, 1)
	debounced := debounce.New(after)
	w.workers = goutils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				debounced(func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			case err, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("config watcher error", "error", err)
			}
		}
	}, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reload:
			}
			cfg, err := Read(ctx, path, logger)
			if err != nil {
				logger.Errorw("error reading changed config", "path", path, "error", err)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case w.configCh <- cfg:
			}
		}
	})
	return w, nil
}

func (w *fsConfigWatcher) Config() <-chan *Config {
	return w.configCh
}

func (w *fsConfigWatcher) Close() error {
	w.workers.Stop()
	return w.fsWatcher.Close()
}
