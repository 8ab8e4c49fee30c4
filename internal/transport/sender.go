package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/skypro1111/audio-relay/internal/audio"
	"github.com/skypro1111/audio-relay/internal/encryption"
	"github.com/skypro1111/audio-relay/internal/metrics"
	"github.com/skypro1111/audio-relay/internal/vad"
)

// DefaultQueueSize is the capacity of the send queue in packets.
const DefaultQueueSize = 100

// SenderConfig contains send path parameters
type SenderConfig struct {
	// Channels is the interleaved channel count of captured frames.
	Channels int
	// QueueSize is the send queue capacity. Zero uses DefaultQueueSize.
	QueueSize int
	// Endpoint receives state transitions. A new client endpoint is created when nil.
	Endpoint *Endpoint
}

// Sender gates, downmixes and encrypts captured frames and writes them to
// a connected socket.
type Sender struct {
	conn     io.Writer
	cipher   encryption.FrameCipher
	gate     *vad.Gate
	channels int
	endpoint *Endpoint
	logger   *slog.Logger
	metrics  *metrics.Metrics

	queue chan []byte

	// scratch is owned by the capture callback.
	scratch []int16

	// Statistics
	framesCaptured atomic.Uint64
	framesGated    atomic.Uint64
	framesQueued   atomic.Uint64
	framesDropped  atomic.Uint64
	encryptErrors  atomic.Uint64
	packetsSent    atomic.Uint64
	bytesSent      atomic.Uint64
	sendErrors     atomic.Uint64
}

// SenderStatistics represents send path counters
type SenderStatistics struct {
	FramesCaptured uint64 `json:"frames_captured"`
	FramesGated    uint64 `json:"frames_gated"`
	FramesQueued   uint64 `json:"frames_queued"`
	FramesDropped  uint64 `json:"frames_dropped"`
	EncryptErrors  uint64 `json:"encrypt_errors"`
	PacketsSent    uint64 `json:"packets_sent"`
	BytesSent      uint64 `json:"bytes_sent"`
	SendErrors     uint64 `json:"send_errors"`
	QueueSize      int    `json:"queue_size"`
	QueueCapacity  int    `json:"queue_capacity"`
}

// NewSender creates a sender writing to conn, which must already be
// connected to the peer. Every collaborator, logger and metrics included,
// is required.
func NewSender(conn io.Writer, fc encryption.FrameCipher, gate *vad.Gate, cfg SenderConfig,
	logger *slog.Logger, m *metrics.Metrics) (*Sender, error) {

	if conn == nil || fc == nil || gate == nil || logger == nil || m == nil {
		return nil, errors.New("sender requires a connection, cipher, gate, logger and metrics")
	}
	if cfg.Channels < 1 {
		return nil, fmt.Errorf("channels must be at least 1, got %d", cfg.Channels)
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("queue size cannot be negative, got %d", cfg.QueueSize)
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Endpoint == nil {
		cfg.Endpoint = NewEndpoint(RoleClient)
	}

	return &Sender{
		conn:     conn,
		cipher:   fc,
		gate:     gate,
		channels: cfg.Channels,
		endpoint: cfg.Endpoint,
		logger:   logger,
		metrics:  m,
		queue:    make(chan []byte, cfg.QueueSize),
	}, nil
}

// OnCapture handles one captured interleaved frame. It never blocks: when
// the queue is full the frame is dropped.
func (s *Sender) OnCapture(frame []int16) {
	if s.endpoint.MarkStreaming() {
		s.logger.Info("Capture started", slog.String("endpoint_id", s.endpoint.ID()))
	}
	s.framesCaptured.Add(1)

	passed := s.gate.Pass(frame)
	s.metrics.RecordCapture(passed)
	if !passed {
		s.framesGated.Add(1)
		return
	}

	s.scratch = audio.Downmix(s.scratch, frame, s.channels)

	packet, err := s.cipher.Encrypt(s.scratch)
	if err != nil {
		s.encryptErrors.Add(1)
		s.metrics.RecordEncryptError()
		s.logger.Error("Failed to encrypt frame",
			slog.Int("samples", len(s.scratch)),
			slog.String("error", err.Error()),
		)
		return
	}

	select {
	case s.queue <- packet:
		s.framesQueued.Add(1)
	default:
		s.framesDropped.Add(1)
		s.metrics.RecordFrameDropped()
		s.logger.Error("Send queue full, dropping frame",
			slog.Int("queue_capacity", cap(s.queue)),
			slog.Int("packet_size", len(packet)),
		)
	}
	s.metrics.SetSendQueueSize(len(s.queue))
}

// Run writes queued packets to the socket until ctx is cancelled. Write
// errors are logged and the loop continues.
func (s *Sender) Run(ctx context.Context) error {
	s.logger.Info("Sender started",
		slog.String("endpoint_id", s.endpoint.ID()),
		slog.String("cipher_mode", string(s.cipher.Mode())),
		slog.Int("queue_capacity", cap(s.queue)),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sender stopping due to context cancellation")
			return nil
		case packet := <-s.queue:
			s.metrics.SetSendQueueSize(len(s.queue))

			n, err := s.conn.Write(packet)
			if err != nil {
				s.sendErrors.Add(1)
				s.metrics.RecordSendError()
				s.logger.Error("Failed to send packet",
					slog.Int("packet_size", len(packet)),
					slog.String("error", err.Error()),
				)
				continue
			}

			s.packetsSent.Add(1)
			s.bytesSent.Add(uint64(n))
			s.metrics.RecordPacketSent(n)
		}
	}
}

// Endpoint returns the endpoint this sender reports to.
func (s *Sender) Endpoint() *Endpoint {
	return s.endpoint
}

// GetStatistics returns current sender statistics
func (s *Sender) GetStatistics() SenderStatistics {
	return SenderStatistics{
		FramesCaptured: s.framesCaptured.Load(),
		FramesGated:    s.framesGated.Load(),
		FramesQueued:   s.framesQueued.Load(),
		FramesDropped:  s.framesDropped.Load(),
		EncryptErrors:  s.encryptErrors.Load(),
		PacketsSent:    s.packetsSent.Load(),
		BytesSent:      s.bytesSent.Load(),
		SendErrors:     s.sendErrors.Load(),
		QueueSize:      len(s.queue),
		QueueCapacity:  cap(s.queue),
	}
}
