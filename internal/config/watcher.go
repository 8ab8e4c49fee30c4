package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sethvargo/go-envconfig"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	path     string
	lookuper envconfig.Lookuper
	debounce time.Duration
	logger   *slog.Logger
	onReload func(cfg *Config, err error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLookuper sets the environment source used on reload.
func WithLookuper(l envconfig.Lookuper) WatcherOption {
	return func(w *Watcher) {
		w.lookuper = l
	}
}

// NewWatcher creates a watcher for path. onReload receives either the new
// validated configuration or the error that prevented loading it.
func NewWatcher(path string, logger *slog.Logger, onReload func(cfg *Config, err error), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		lookuper: envconfig.OsLookuper(),
		debounce: DefaultDebounce,
		logger:   logger,
		onReload: onReload,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled.
//
// The parent directory is watched rather than the file so that editors
// which save by rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.logger.Info("Watching configuration for changes", slog.String("path", w.path))

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Config watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadWithLookuper(w.path, w.lookuper)
	if err != nil {
		w.logger.Warn("Configuration reload failed, keeping current settings",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
	} else {
		w.logger.Info("Configuration reloaded", slog.String("path", w.path))
	}

	if w.onReload != nil {
		w.onReload(cfg, err)
	}
}
