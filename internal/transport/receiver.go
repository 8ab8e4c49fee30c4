package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/skypro1111/audio-relay/internal/audio"
	"github.com/skypro1111/audio-relay/internal/encryption"
	"github.com/skypro1111/audio-relay/internal/metrics"
	"github.com/skypro1111/audio-relay/internal/protocol"
)

// ReceiverConfig contains receive path parameters
type ReceiverConfig struct {
	// Channels is the interleaved channel count of the playback device.
	Channels int
	// ResyncGap is passed to the sequence window in authenticated mode.
	ResyncGap uint64
	// Endpoint receives state transitions. A new server endpoint is created when nil.
	Endpoint *Endpoint
}

// Receiver decrypts datagrams into a jitter buffer and feeds playback from it.
type Receiver struct {
	conn     net.PacketConn
	cipher   encryption.FrameCipher
	buffer   *audio.JitterBuffer
	window   *protocol.SequenceWindow
	channels int
	endpoint *Endpoint
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// scratch is owned by the playback callback.
	scratch []int16

	// Statistics
	packetsReceived atomic.Uint64
	packetsAccepted atomic.Uint64
	decryptFailures atomic.Uint64
	latePackets     atomic.Uint64
	receiveErrors   atomic.Uint64
	bytesReceived   atomic.Uint64
}

// ReceiverStatistics represents receive path counters
type ReceiverStatistics struct {
	PacketsReceived uint64                 `json:"packets_received"`
	PacketsAccepted uint64                 `json:"packets_accepted"`
	DecryptFailures uint64                 `json:"decrypt_failures"`
	LatePackets     uint64                 `json:"late_packets"`
	ReceiveErrors   uint64                 `json:"receive_errors"`
	BytesReceived   uint64                 `json:"bytes_received"`
	Buffer          audio.JitterStats      `json:"jitter_buffer"`
	Sequence        protocol.SequenceStats `json:"sequence"`
}

// NewReceiver creates a receiver reading from conn into buffer. Every
// collaborator, logger and metrics included, is required.
func NewReceiver(conn net.PacketConn, fc encryption.FrameCipher, buffer *audio.JitterBuffer, cfg ReceiverConfig,
	logger *slog.Logger, m *metrics.Metrics) (*Receiver, error) {

	if cfg.Channels < 1 {
		return nil, fmt.Errorf("channels must be at least 1, got %d", cfg.Channels)
	}
	if conn == nil || fc == nil || buffer == nil || logger == nil || m == nil {
		return nil, errors.New("receiver requires a connection, cipher, buffer, logger and metrics")
	}
	if cfg.Endpoint == nil {
		cfg.Endpoint = NewEndpoint(RoleServer)
	}

	return &Receiver{
		conn:     conn,
		cipher:   fc,
		buffer:   buffer,
		window:   protocol.NewSequenceWindow(cfg.ResyncGap),
		channels: cfg.Channels,
		endpoint: cfg.Endpoint,
		logger:   logger,
		metrics:  m,
	}, nil
}

// Run reads datagrams until ctx is cancelled or the socket is closed.
// Undecryptable packets are dropped; socket errors are logged and the loop
// continues.
func (r *Receiver) Run(ctx context.Context) error {
	// Unblock ReadFrom on cancellation.
	stop := context.AfterFunc(ctx, func() {
		r.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	r.logger.Info("Receiver started",
		slog.String("endpoint_id", r.endpoint.ID()),
		slog.String("local_addr", r.conn.LocalAddr().String()),
		slog.String("cipher_mode", string(r.cipher.Mode())),
	)

	// Sized for the largest datagram; a shorter slice truncates silently.
	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		n, remoteAddr, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("Receiver stopping due to context cancellation")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				r.logger.Info("Receiver stopping, socket closed")
				return nil
			}

			r.receiveErrors.Add(1)
			r.metrics.RecordReceiveError()
			r.logger.Error("Failed to read UDP packet", slog.String("error", err.Error()))
			continue
		}

		r.handlePacket(buf[:n], remoteAddr)
	}
}

// handlePacket decrypts one datagram and queues its samples for playback.
func (r *Receiver) handlePacket(packet []byte, remoteAddr net.Addr) {
	r.packetsReceived.Add(1)
	r.bytesReceived.Add(uint64(len(packet)))
	r.metrics.RecordPacketReceived()

	frame, err := r.cipher.Decrypt(packet)
	if err != nil {
		r.decryptFailures.Add(1)
		r.metrics.RecordDecryptFailure()
		r.logger.Debug("Dropping undecryptable packet",
			slog.String("remote_addr", remoteAddr.String()),
			slog.Int("packet_size", len(packet)),
			slog.String("error", err.Error()),
		)
		return
	}

	if frame.Sequenced && !r.window.Accept(frame.Sequence) {
		r.latePackets.Add(1)
		r.metrics.RecordLatePacket()
		r.logger.Debug("Dropping late packet",
			slog.String("remote_addr", remoteAddr.String()),
			slog.Uint64("sequence", frame.Sequence),
		)
		return
	}

	trimmed := r.buffer.Append(frame.Samples)
	r.packetsAccepted.Add(1)
	r.metrics.RecordBufferAppend(r.buffer.Len(), trimmed)

	if trimmed > 0 {
		r.logger.Debug("Jitter buffer trimmed", slog.Int("discarded_samples", trimmed))
	}
	r.logger.Debug("Audio packet received",
		slog.String("remote_addr", remoteAddr.String()),
		slog.Int("samples", len(frame.Samples)),
	)
}

// OnPlayback fills one interleaved output buffer from the jitter buffer,
// padding with silence on underrun.
func (r *Receiver) OnPlayback(out []int16) {
	if r.endpoint.MarkStreaming() {
		r.logger.Info("Playback started", slog.String("endpoint_id", r.endpoint.ID()))
	}

	need := len(out) / r.channels
	if cap(r.scratch) < need {
		r.scratch = make([]int16, need)
	}
	mono := r.scratch[:need]

	n := r.buffer.Drain(mono)
	audio.Upmix(out, mono, r.channels)

	r.metrics.RecordBufferDrain(r.buffer.Len(), n < need)
}

// Endpoint returns the endpoint this receiver reports to.
func (r *Receiver) Endpoint() *Endpoint {
	return r.endpoint
}

// GetStatistics returns current receiver statistics
func (r *Receiver) GetStatistics() ReceiverStatistics {
	return ReceiverStatistics{
		PacketsReceived: r.packetsReceived.Load(),
		PacketsAccepted: r.packetsAccepted.Load(),
		DecryptFailures: r.decryptFailures.Load(),
		LatePackets:     r.latePackets.Load(),
		ReceiveErrors:   r.receiveErrors.Load(),
		BytesReceived:   r.bytesReceived.Load(),
		Buffer:          r.buffer.GetStats(),
		Sequence:        r.window.GetStats(),
	}
}
