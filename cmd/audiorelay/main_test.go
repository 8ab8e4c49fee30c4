package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/audio-relay/internal/config"
	"github.com/skypro1111/audio-relay/internal/metrics"
	"github.com/skypro1111/audio-relay/internal/vad"
)

func TestDevicesCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"devices"})

	require.NoError(t, cmd.Execute())

	text := out.String()
	for _, want := range []string{"null", "tone", "wav", "Default input:", "Default output:"} {
		assert.Contains(t, text, want)
	}
}

func TestServerCommandMissingConfig(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"server", "--config", filepath.Join(t.TempDir(), "missing.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestExplicitEnvFileMustExist(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"client", "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env file")
}

func TestInitLoggerLevelVar(t *testing.T) {
	var level slog.LevelVar
	path := filepath.Join(t.TempDir(), "relay.log")

	logger, closeLog := initLogger(config.LoggingConfig{Level: "warn", Format: "json", Output: path}, &level)
	logger.Info("hidden")
	level.Set(slog.LevelInfo)
	logger.Info("visible")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "hidden"))
	assert.True(t, strings.Contains(string(data), "visible"))
}

func TestRestartRequired(t *testing.T) {
	base := config.Default()

	live := *base
	live.Client.DBThreshold = -10
	live.Logging.Level = "debug"
	assert.False(t, restartRequired(base, &live))

	moved := *base
	moved.Server.BindAddress = "0.0.0.0:9999"
	assert.True(t, restartRequired(base, &moved))

	assert.False(t, restartRequired(nil, base))
}

func TestReloaderAppliesLiveSettings(t *testing.T) {
	gate, err := vad.NewGate(-50)
	require.NoError(t, err)

	var level slog.LevelVar
	m := metrics.NewMetrics()
	r := &reloader{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		level:   &level,
		gate:    gate,
		metrics: m,
		current: config.Default(),
	}

	next := config.Default()
	next.Client.DBThreshold = -25
	next.Logging.Level = "error"
	r.onReload(next, nil)

	assert.Equal(t, -25.0, gate.Threshold())
	assert.Equal(t, slog.LevelError, level.Level())

	r.onReload(nil, assert.AnError)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigReloads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigReloads.WithLabelValues("failure")))
}
