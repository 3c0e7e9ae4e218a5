package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Burrhanburak/scrape-site/internal/utils"
)

// Watcher reloads the configuration file when it changes on disk and
// notifies registered callbacks with the freshly parsed configuration.
// Reloads that fail validation are logged and dropped; the previous
// configuration stays in effect.
type Watcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	logger     utils.Logger

	mu        sync.RWMutex
	callbacks []func(*Config)
	stopped   bool
}

// NewWatcher starts watching the given configuration file.
func NewWatcher(configPath string, logger utils.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if logger == nil {
		logger = utils.NewNopLogger()
	}

	w := &Watcher{
		watcher:    fw,
		configPath: configPath,
		logger:     logger,
	}

	if err := fw.Add(configPath); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	// Editors often replace the file instead of writing in place, so watch
	// the directory too.
	if err := fw.Add(filepath.Dir(configPath)); err != nil {
		logger.Warnf("failed to watch config directory: %v", err)
	}

	go w.watch()

	return w, nil
}

// OnChange registers a callback invoked after each successful reload.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name == w.configPath && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	w.mu.RLock()
	if w.stopped {
		w.mu.RUnlock()
		return
	}
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	cfg, err := LoadFromFile(w.configPath)
	if err != nil {
		w.logger.Warnf("config reload failed, keeping previous configuration: %v", err)
		return
	}

	w.logger.WithField("path", w.configPath).Info("configuration reloaded")
	for _, callback := range callbacks {
		callback(cfg)
	}
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	return w.watcher.Close()
}
