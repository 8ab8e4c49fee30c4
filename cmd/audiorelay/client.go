package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/skypro1111/audio-relay/internal/config"
	"github.com/skypro1111/audio-relay/internal/device"
	"github.com/skypro1111/audio-relay/internal/encryption"
	"github.com/skypro1111/audio-relay/internal/metrics"
	"github.com/skypro1111/audio-relay/internal/server"
	"github.com/skypro1111/audio-relay/internal/transport"
	"github.com/skypro1111/audio-relay/internal/vad"
)

func newClientCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "client",
		Short: "Capture, encrypt and send audio to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runClient(cmd.Context(), opts, cfg)
		},
	}
}

func runClient(parent context.Context, opts *rootOptions, cfg *config.Config) error {
	var level slog.LevelVar
	logger, closeLog := initLogger(cfg.Logging, &level)
	defer closeLog()

	endpoint := transport.NewEndpoint(transport.RoleClient)
	logger = logger.With(slog.String("endpoint_id", endpoint.ID()))

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("role", string(endpoint.Role())),
		slog.String("config_path", opts.configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("server_address", cfg.Client.ServerAddress),
		slog.String("input_device", cfg.Client.InputDevice),
		slog.Float64("db_threshold", cfg.Client.DBThreshold),
		slog.Int("queue_size", cfg.Client.QueueSize),
		slog.String("cipher_mode", string(cfg.Encryption.CipherMode())),
		slog.String("log_level", cfg.Logging.Level),
	)

	appMetrics := metrics.NewMetrics()

	key, err := cfg.Encryption.KeyBytes()
	if err != nil {
		logger.Error("Invalid encryption key", slog.String("error", err.Error()))
		return err
	}
	fc, err := encryption.New(cfg.Encryption.CipherMode(), key)
	if err != nil {
		logger.Error("Failed to create frame cipher", slog.String("error", err.Error()))
		return err
	}

	gate, err := vad.NewGate(cfg.Client.DBThreshold)
	if err != nil {
		logger.Error("Invalid volume threshold", slog.String("error", err.Error()))
		return err
	}

	in, err := device.OpenInput(cfg.Client.InputDevice)
	if err != nil {
		logger.Error("Failed to open input device",
			slog.String("device", cfg.Client.InputDevice),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer in.Close()

	logger.Info("Input device opened",
		slog.String("device", in.Name()),
		slog.Int("sample_rate", in.Config().SampleRate),
		slog.Int("channels", in.Config().Channels),
		slog.Int("frame_size", in.Config().FrameSize),
	)

	// Dial binds an ephemeral local port and fixes the peer.
	conn, err := net.Dial("udp", cfg.Client.ServerAddress)
	if err != nil {
		logger.Error("Failed to connect UDP socket",
			slog.String("server_address", cfg.Client.ServerAddress),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to connect to %s: %w", cfg.Client.ServerAddress, err)
	}
	defer conn.Close()
	endpoint.MarkBound(conn.LocalAddr().String(), conn.RemoteAddr().String())

	logger.Info("Client connected",
		slog.String("local_addr", conn.LocalAddr().String()),
		slog.String("server_address", conn.RemoteAddr().String()),
	)

	sender, err := transport.NewSender(conn, fc, gate, transport.SenderConfig{
		Channels:  in.Config().Channels,
		QueueSize: cfg.Client.QueueSize,
		Endpoint:  endpoint,
	}, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create sender", slog.String("error", err.Error()))
		return err
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, server.Components{
			Endpoint: endpoint,
			Sender:   sender,
			Gate:     gate,
			Device:   in.Name(),
			Stream:   in.Config(),
		}, appMetrics)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sender.Run(gctx) })
	g.Go(func() error { return in.Run(gctx, sender.OnCapture) })
	if httpServer != nil {
		g.Go(func() error { return httpServer.Run(gctx) })
	}
	if opts.watch {
		r := &reloader{logger: logger, level: &level, gate: gate, http: httpServer, metrics: appMetrics, current: cfg}
		watcher := config.NewWatcher(opts.configPath, logger, r.onReload)
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				logger.Warn("Configuration hot reload disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	logger.Info("Streaming audio",
		slog.Float64("db_threshold", gate.Threshold()),
	)

	err = g.Wait()

	stats := sender.GetStatistics()
	logger.Info("Final sender statistics",
		slog.Uint64("frames_captured", stats.FramesCaptured),
		slog.Uint64("frames_gated", stats.FramesGated),
		slog.Uint64("frames_dropped", stats.FramesDropped),
		slog.Uint64("packets_sent", stats.PacketsSent),
		slog.Uint64("send_errors", stats.SendErrors),
	)

	if err != nil {
		logger.Error("Service stopped with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Service stopped")
	return nil
}
