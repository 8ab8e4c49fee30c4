package audio

import (
	"fmt"
	"sync"
)

const (
	// DefaultLowWatermark is the number of samples kept after a trim.
	DefaultLowWatermark = 4096
	// DefaultHighWatermark is the size above which the buffer is trimmed.
	DefaultHighWatermark = 8192
)

// JitterBuffer is a bounded mono sample queue shared between one network
// receiver (Append) and one playback callback (Drain).
//
// Storage is a ring sized to the high watermark, so an Append never
// allocates. Whenever an append would push the length above the high
// watermark, the oldest samples are discarded until exactly the low
// watermark remains.
type JitterBuffer struct {
	low  int
	high int

	ring []int16
	head int // index of the oldest sample
	size int

	// Statistics
	appended  uint64
	drained   uint64
	trimmed   uint64
	trims     uint64
	underruns uint64

	mu sync.Mutex
}

// JitterStats represents jitter buffer statistics for monitoring
type JitterStats struct {
	Size          int    `json:"size_samples"`
	LowWatermark  int    `json:"low_watermark"`
	HighWatermark int    `json:"high_watermark"`
	Appended      uint64 `json:"appended_samples"`
	Drained       uint64 `json:"drained_samples"`
	Trimmed       uint64 `json:"trimmed_samples"`
	Trims         uint64 `json:"trims"`
	Underruns     uint64 `json:"underruns"`
}

// NewJitterBuffer creates a jitter buffer with the given watermarks.
func NewJitterBuffer(low, high int) (*JitterBuffer, error) {
	if low <= 0 {
		return nil, fmt.Errorf("low watermark must be positive, got %d", low)
	}
	if high <= low {
		return nil, fmt.Errorf("high watermark (%d) must be greater than low watermark (%d)", high, low)
	}

	return &JitterBuffer{
		low:  low,
		high: high,
		ring: make([]int16, high),
	}, nil
}

// Append adds samples at the tail and enforces the trim policy.
// It returns the number of samples discarded by the trim.
func (b *JitterBuffer) Append(samples []int16) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.appended += uint64(len(samples))

	trimmed := 0
	if total := b.size + len(samples); total > b.high {
		trimmed = total - b.low

		// Oldest data goes first; if the incoming batch alone exceeds the
		// low watermark its head is skipped too.
		fromRing := min(trimmed, b.size)
		b.head = (b.head + fromRing) % len(b.ring)
		b.size -= fromRing
		samples = samples[trimmed-fromRing:]

		b.trimmed += uint64(trimmed)
		b.trims++
	}

	tail := (b.head + b.size) % len(b.ring)
	n := copy(b.ring[tail:], samples)
	copy(b.ring, samples[n:])
	b.size += len(samples)

	return trimmed
}

// Drain copies up to len(dst) of the oldest samples into dst, removes them
// from the buffer and zero-fills whatever part of dst could not be served.
// It returns the number of samples copied.
func (b *JitterBuffer) Drain(dst []int16) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := min(b.size, len(dst))
	first := copy(dst[:n], b.ring[b.head:])
	copy(dst[first:n], b.ring)

	b.head = (b.head + n) % len(b.ring)
	b.size -= n
	b.drained += uint64(n)

	if n < len(dst) {
		b.underruns++
		clear(dst[n:])
	}
	return n
}

// Len returns the current number of buffered samples.
func (b *JitterBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Snapshot returns a copy of the buffered samples, oldest first.
func (b *JitterBuffer) Snapshot() []int16 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]int16, b.size)
	first := copy(out, b.ring[b.head:])
	copy(out[first:], b.ring)
	return out
}

// GetStats returns current buffer statistics
func (b *JitterBuffer) GetStats() JitterStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return JitterStats{
		Size:          b.size,
		LowWatermark:  b.low,
		HighWatermark: b.high,
		Appended:      b.appended,
		Drained:       b.drained,
		Trimmed:       b.trimmed,
		Trims:         b.trims,
		Underruns:     b.underruns,
	}
}
