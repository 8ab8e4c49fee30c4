package main

import (
	"log/slog"
	"sync"

	"github.com/skypro1111/audio-relay/internal/config"
	"github.com/skypro1111/audio-relay/internal/metrics"
	"github.com/skypro1111/audio-relay/internal/server"
	"github.com/skypro1111/audio-relay/internal/vad"
)

// reloader applies the live-reloadable subset of a new configuration:
// the gate threshold and the log level. Everything else needs a restart.
type reloader struct {
	logger  *slog.Logger
	level   *slog.LevelVar
	gate    *vad.Gate
	http    *server.HTTPServer
	metrics *metrics.Metrics

	mu      sync.Mutex
	current *config.Config
}

func (r *reloader) onReload(cfg *config.Config, err error) {
	if err != nil {
		r.metrics.RecordConfigReload(false)
		return
	}
	r.metrics.RecordConfigReload(true)

	r.mu.Lock()
	defer r.mu.Unlock()

	if level, err := config.ParseLevel(cfg.Logging.Level); err == nil && level != r.level.Level() {
		r.level.Set(level)
		r.logger.Info("Log level changed", slog.String("level", cfg.Logging.Level))
	}

	if r.gate != nil && cfg.Client.DBThreshold != r.gate.Threshold() {
		if err := r.gate.SetThreshold(cfg.Client.DBThreshold); err != nil {
			r.logger.Warn("Rejected volume threshold", slog.String("error", err.Error()))
		} else {
			r.logger.Info("Volume threshold changed", slog.Float64("db_threshold", cfg.Client.DBThreshold))
		}
	}

	if restartRequired(r.current, cfg) {
		r.logger.Warn("Configuration changes beyond db_threshold and logging.level take effect after a restart")
	}

	r.current = cfg
	if r.http != nil {
		r.http.UpdateConfig(cfg)
	}
}

// restartRequired reports whether next differs from prev in any field that
// is not applied live.
func restartRequired(prev, next *config.Config) bool {
	if prev == nil || next == nil {
		return false
	}
	a, b := *prev, *next
	a.Client.DBThreshold, b.Client.DBThreshold = 0, 0
	a.Logging.Level, b.Logging.Level = "", ""
	return a != b
}
