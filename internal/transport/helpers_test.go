package transport

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skypro1111/audio-relay/internal/encryption"
	"github.com/skypro1111/audio-relay/internal/vad"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCipher(t *testing.T, mode encryption.Mode) encryption.FrameCipher {
	t.Helper()
	fc, err := encryption.New(mode, testKey)
	require.NoError(t, err)
	return fc
}

func newTestGate(t *testing.T) *vad.Gate {
	t.Helper()
	gate, err := vad.NewGate(-40)
	require.NoError(t, err)
	return gate
}

// loudStereo returns an interleaved stereo frame whose downmix is
// 1000, 1001, ... for the given number of frames.
func loudStereo(frames int) []int16 {
	out := make([]int16, 0, frames*2)
	for i := 0; i < frames; i++ {
		v := int16(1000 + i)
		out = append(out, v-100, v+100)
	}
	return out
}

// recordingWriter collects written packets.
type recordingWriter struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return 0, w.err
	}
	w.packets = append(w.packets, append([]byte(nil), p...))
	return len(p), nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.packets)
}
