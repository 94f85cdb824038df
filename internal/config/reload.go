package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader watches the config file for changes and invokes a callback
// with the freshly merged Config.
type Reloader struct {
	watcher *fsnotify.Watcher
	path    string
	apply   func(Config)
	logger  *zap.Logger
}

// NewReloader creates a file watcher for the given config path.
func NewReloader(path string, apply func(Config), logger *zap.Logger) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config reloader: %w", err)
	}

	if _, err := os.Stat(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config reloader: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config reloader: watch %q: %w", path, err)
	}

	return &Reloader{
		watcher: watcher,
		path:    path,
		apply:   apply,
		logger:  logger,
	}, nil
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
// Writes are debounced so a burst of editor saves triggers one reload.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := Load(r.path)
	if err != nil {
		r.logger.Error("config reload failed, keeping previous config",
			zap.String("path", r.path),
			zap.Error(err),
		)
		return
	}
	r.apply(cfg)
	r.logger.Info("config reloaded", zap.String("path", r.path))
}
