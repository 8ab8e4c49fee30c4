package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/audio-relay/internal/encryption"
	"github.com/skypro1111/audio-relay/internal/metrics"
)

func TestNewSenderValidation(t *testing.T) {
	fc := newTestCipher(t, encryption.ModeCBC)
	gate := newTestGate(t)

	_, err := NewSender(&recordingWriter{}, fc, gate, SenderConfig{Channels: 0}, testLogger(), metrics.NewMetrics())
	assert.Error(t, err)

	_, err = NewSender(&recordingWriter{}, fc, gate, SenderConfig{Channels: 2, QueueSize: -1}, testLogger(), metrics.NewMetrics())
	assert.Error(t, err)

	_, err = NewSender(&recordingWriter{}, fc, gate, SenderConfig{Channels: 2}, testLogger(), nil)
	assert.Error(t, err, "nil metrics must be rejected")

	_, err = NewSender(&recordingWriter{}, fc, nil, SenderConfig{Channels: 2}, testLogger(), metrics.NewMetrics())
	assert.Error(t, err, "nil gate must be rejected")

	s, err := NewSender(&recordingWriter{}, fc, gate, SenderConfig{Channels: 2}, testLogger(), metrics.NewMetrics())
	require.NoError(t, err)
	assert.Equal(t, DefaultQueueSize, s.GetStatistics().QueueCapacity)
	assert.Equal(t, RoleClient, s.Endpoint().Role())
}

func TestSenderGatesSilence(t *testing.T) {
	s, err := NewSender(&recordingWriter{}, newTestCipher(t, encryption.ModeCBC), newTestGate(t),
		SenderConfig{Channels: 2}, testLogger(), metrics.NewMetrics())
	require.NoError(t, err)

	s.OnCapture(make([]int16, 960))

	stats := s.GetStatistics()
	assert.Equal(t, uint64(1), stats.FramesCaptured)
	assert.Equal(t, uint64(1), stats.FramesGated)
	assert.Equal(t, 0, stats.QueueSize)
	assert.Equal(t, StateStreaming, s.Endpoint().State())
}

func TestSenderQueuesDownmixedFrame(t *testing.T) {
	fc := newTestCipher(t, encryption.ModeCBC)
	s, err := NewSender(&recordingWriter{}, fc, newTestGate(t),
		SenderConfig{Channels: 2}, testLogger(), metrics.NewMetrics())
	require.NoError(t, err)

	// 8 mono samples fill exactly one block, so no padding.
	s.OnCapture(loudStereo(8))
	require.Equal(t, 1, s.GetStatistics().QueueSize)

	packet := <-s.queue
	frame, err := fc.Decrypt(packet)
	require.NoError(t, err)

	want := []int16{1000, 1001, 1002, 1003, 1004, 1005, 1006, 1007}
	if diff := cmp.Diff(want, frame.Samples); diff != "" {
		t.Errorf("decrypted frame mismatch (-want +got):\n%s", diff)
	}
}

func TestSenderDropsWhenQueueFull(t *testing.T) {
	s, err := NewSender(&recordingWriter{}, newTestCipher(t, encryption.ModeCBC), newTestGate(t),
		SenderConfig{Channels: 2, QueueSize: 2}, testLogger(), metrics.NewMetrics())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			s.OnCapture(loudStereo(8))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnCapture blocked on a full queue")
	}

	stats := s.GetStatistics()
	assert.Equal(t, uint64(2), stats.FramesQueued)
	assert.Equal(t, uint64(3), stats.FramesDropped)
	assert.Equal(t, 2, stats.QueueSize)
}

func TestSenderRunWritesPackets(t *testing.T) {
	w := &recordingWriter{}
	s, err := NewSender(w, newTestCipher(t, encryption.ModeXChaCha20Poly1305), newTestGate(t),
		SenderConfig{Channels: 2}, testLogger(), metrics.NewMetrics())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	for i := 0; i < 3; i++ {
		s.OnCapture(loudStereo(10))
	}

	require.Eventually(t, func() bool { return w.count() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	stats := s.GetStatistics()
	assert.Equal(t, uint64(3), stats.PacketsSent)
	assert.Equal(t, uint64(0), stats.SendErrors)
	assert.Greater(t, stats.BytesSent, uint64(0))
}

func TestSenderRunContinuesAfterWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("connection refused")}
	s, err := NewSender(w, newTestCipher(t, encryption.ModeCBC), newTestGate(t),
		SenderConfig{Channels: 1}, testLogger(), metrics.NewMetrics())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	s.OnCapture(loudStereo(4))
	s.OnCapture(loudStereo(4))

	require.Eventually(t, func() bool { return s.GetStatistics().SendErrors == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, uint64(0), s.GetStatistics().PacketsSent)
}
