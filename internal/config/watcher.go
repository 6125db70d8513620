package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads a single configuration file. Editors and config
// management tools tend to replace files rather than write in place, so the
// parent directory is watched and events are filtered by file name.
type Watcher struct {
	path     string
	onChange func(path string)
	watcher  *fsnotify.Watcher
	logger   *zap.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	started bool
}

// NewWatcher creates a watcher for path; onChange fires on create/write.
func NewWatcher(path string, onChange func(path string), logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		watcher:  fsw,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins delivering change events in a background goroutine.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				w.logger.Info("Config file changed, reloading",
					zap.String("file", w.path),
					zap.String("op", event.Op.String()))
				w.onChange(w.path)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("Config watcher error", zap.Error(err))
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		w.watcher.Close()
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	w.started = false
}
