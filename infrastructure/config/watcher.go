package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Changes within this window collapse into one reload. Editors tend to
// fire several write events per save.
const reloadDebounce = 500 * time.Millisecond

// Watcher hot-reloads configuration when files under the config directory
// change. It only arms itself in development; elsewhere it just holds the
// initial config.
type Watcher struct {
	current   *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher creates a watcher seeded with the already-loaded config.
func NewWatcher(initial *Config, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		current: initial,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	if !initial.IsDevelopment() {
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = fsWatcher

	dir := getEnv("CONFIG_DIR", "config")
	if _, err := os.Stat(dir); err == nil {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		go w.watchLoop()
		logger.Info("Configuration hot reloading enabled", zap.String("dir", dir))
	} else {
		fsWatcher.Close()
		w.watcher = nil
		logger.Debug("No config directory, hot reloading disabled", zap.String("dir", dir))
	}

	return w, nil
}

// Current returns the latest configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after each successful reload.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		close(w.stopCh)
	}
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isConfigFile(event.Name) {
				continue
			}
			w.logger.Info("Configuration file changed", zap.String("file", event.Name))
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load()
	if err != nil {
		// Keep serving the previous config; a broken edit must not take
		// the process down.
		w.logger.Error("Configuration reload failed, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, callback := range callbacks {
		go func(cb func(*Config)) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Config change callback panicked", zap.Any("panic", r))
				}
			}()
			cb(cfg)
		}(callback)
	}

	w.logger.Info("Configuration reloaded", zap.Int("callbacks", len(callbacks)))
}

func isConfigFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
