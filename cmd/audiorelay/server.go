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

	"github.com/skypro1111/audio-relay/internal/audio"
	"github.com/skypro1111/audio-relay/internal/config"
	"github.com/skypro1111/audio-relay/internal/device"
	"github.com/skypro1111/audio-relay/internal/encryption"
	"github.com/skypro1111/audio-relay/internal/metrics"
	"github.com/skypro1111/audio-relay/internal/server"
	"github.com/skypro1111/audio-relay/internal/transport"
)

func newServerCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Receive, decrypt and play audio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), opts, cfg)
		},
	}
}

func runServer(parent context.Context, opts *rootOptions, cfg *config.Config) error {
	var level slog.LevelVar
	logger, closeLog := initLogger(cfg.Logging, &level)
	defer closeLog()

	endpoint := transport.NewEndpoint(transport.RoleServer)
	logger = logger.With(slog.String("endpoint_id", endpoint.ID()))

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("role", string(endpoint.Role())),
		slog.String("config_path", opts.configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.String("output_device", cfg.Server.OutputDevice),
		slog.Int("socket_buffer_size", cfg.Server.SocketBufferSize),
		slog.Int("low_watermark", cfg.Server.LowWatermark),
		slog.Int("high_watermark", cfg.Server.HighWatermark),
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

	out, err := device.OpenOutput(cfg.Server.OutputDevice)
	if err != nil {
		logger.Error("Failed to open output device",
			slog.String("device", cfg.Server.OutputDevice),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer out.Close()

	logger.Info("Output device opened",
		slog.String("device", out.Name()),
		slog.Int("sample_rate", out.Config().SampleRate),
		slog.Int("channels", out.Config().Channels),
		slog.Int("frame_size", out.Config().FrameSize),
	)

	buffer, err := audio.NewJitterBuffer(cfg.Server.LowWatermark, cfg.Server.HighWatermark)
	if err != nil {
		logger.Error("Failed to create jitter buffer", slog.String("error", err.Error()))
		return err
	}

	conn, err := net.ListenPacket("udp", cfg.Server.BindAddress)
	if err != nil {
		logger.Error("Failed to bind UDP socket",
			slog.String("bind_address", cfg.Server.BindAddress),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}
	defer conn.Close()

	if udp, ok := conn.(*net.UDPConn); ok && cfg.Server.SocketBufferSize > 0 {
		if err := udp.SetReadBuffer(cfg.Server.SocketBufferSize); err != nil {
			logger.Warn("Failed to set UDP socket buffer size",
				slog.Int("buffer_size", cfg.Server.SocketBufferSize),
				slog.String("error", err.Error()),
			)
		}
	}
	endpoint.MarkBound(conn.LocalAddr().String(), "")

	receiver, err := transport.NewReceiver(conn, fc, buffer, transport.ReceiverConfig{
		Channels: out.Config().Channels,
		Endpoint: endpoint,
	}, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create receiver", slog.String("error", err.Error()))
		return err
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, server.Components{
			Endpoint: endpoint,
			Receiver: receiver,
			Device:   out.Name(),
			Stream:   out.Config(),
		}, appMetrics)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return receiver.Run(gctx) })
	g.Go(func() error { return out.Run(gctx, receiver.OnPlayback) })
	if httpServer != nil {
		g.Go(func() error { return httpServer.Run(gctx) })
	}
	if opts.watch {
		r := &reloader{logger: logger, level: &level, http: httpServer, metrics: appMetrics, current: cfg}
		watcher := config.NewWatcher(opts.configPath, logger, r.onReload)
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				logger.Warn("Configuration hot reload disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("udp_address", conn.LocalAddr().String()),
	)

	err = g.Wait()

	stats := receiver.GetStatistics()
	logger.Info("Final receiver statistics",
		slog.Uint64("packets_received", stats.PacketsReceived),
		slog.Uint64("packets_accepted", stats.PacketsAccepted),
		slog.Uint64("decrypt_failures", stats.DecryptFailures),
		slog.Uint64("late_packets", stats.LatePackets),
		slog.Uint64("trimmed_samples", stats.Buffer.Trimmed),
		slog.Uint64("underruns", stats.Buffer.Underruns),
	)

	if err != nil {
		logger.Error("Service stopped with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Service stopped")
	return nil
}
