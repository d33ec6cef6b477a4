package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DebounceInterval is how long a burst of file events must be quiet before the file is reloaded.
const DebounceInterval = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	once    sync.Once
}

// NewWatcher starts watching the directory holding path. Watching the directory keeps the watch alive
// across editors that replace the file by rename.
//
// Parameters:
//   - path: the configuration file
//   - logger: logger for reload failures, may be nil
//
// Returns:
//   - *Watcher: the watcher, to be started with Run
//   - error: error if the directory cannot be watched
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{path: abs, watcher: w, logger: logger.Named("config")}, nil
}

// Run delivers every successfully reloaded configuration to onChange until ctx is done.
// A file that fails to load is logged and the previous configuration stays in effect.
//
// Parameters:
//   - ctx: stops the watcher when done
//   - onChange: receives each new configuration
//
// Returns:
//   - error: nil when ctx ends, or the watcher's error
func (w *Watcher) Run(ctx context.Context, onChange func(*Config)) error {
	defer w.Close()

	debounce := time.NewTimer(DebounceInterval)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			debounce.Reset(DebounceInterval)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		case <-debounce.C:
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn("config reload failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.logger.Info("config reloaded", zap.String("path", w.path))
			onChange(cfg)
		}
	}
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.watcher.Close()
	})
	return err
}
