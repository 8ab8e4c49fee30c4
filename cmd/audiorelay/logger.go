package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/skypro1111/audio-relay/internal/config"
)

// initLogger creates the structured logger. The level is read through
// level so a configuration reload can change it in place. The returned
// function closes a log file if one was opened.
func initLogger(cfg config.LoggingConfig, level *slog.LevelVar) (*slog.Logger, func()) {
	parsed, err := config.ParseLevel(cfg.Level)
	if err != nil {
		parsed = slog.LevelInfo
	}
	level.Set(parsed)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: parsed == slog.LevelDebug,
	}

	var (
		output  io.Writer = os.Stdout
		cleanup           = func() {}
	)
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
		} else {
			output = file
			cleanup = func() { file.Close() }
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler), cleanup
}
