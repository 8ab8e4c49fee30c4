package vad

import (
	"fmt"
	"math"
	"sync/atomic"
)

// fullScale normalizes int16 samples to [-1, 1].
const fullScale = math.MaxInt16

// Volume returns the RMS loudness of frame in dBFS. An empty frame or a frame
// of pure digital silence is -Inf.
func Volume(frame []int16) float64 {
	if len(frame) == 0 {
		return math.Inf(-1)
	}

	var sumSquares float64
	for _, sample := range frame {
		normalized := float64(sample) / fullScale
		sumSquares += normalized * normalized
	}

	rms := math.Sqrt(sumSquares / float64(len(frame)))
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

// Gate passes frames whose volume reaches the threshold.
//
// There is no hysteresis or hangover: a signal hovering around the threshold
// toggles between pass and drop on every frame.
type Gate struct {
	threshold atomic.Uint64 // math.Float64bits of the dBFS threshold

	// Statistics
	frames atomic.Uint64
	passed atomic.Uint64
}

// GateStats represents volume gate statistics
type GateStats struct {
	ThresholdDB    float64 `json:"threshold_db"`
	TotalFrames    uint64  `json:"total_frames"`
	PassedFrames   uint64  `json:"passed_frames"`
	PassPercentage float64 `json:"pass_percentage"`
}

// NewGate creates a volume gate with the given threshold in dBFS.
func NewGate(thresholdDB float64) (*Gate, error) {
	g := &Gate{}
	if err := g.SetThreshold(thresholdDB); err != nil {
		return nil, err
	}
	return g, nil
}

// Pass reports whether frame is loud enough to forward.
// Safe to call from the capture callback: it never blocks.
func (g *Gate) Pass(frame []int16) bool {
	pass := Volume(frame) >= g.Threshold()

	g.frames.Add(1)
	if pass {
		g.passed.Add(1)
	}
	return pass
}

// Threshold returns the current threshold in dBFS.
func (g *Gate) Threshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

// SetThreshold updates the threshold.
func (g *Gate) SetThreshold(thresholdDB float64) error {
	if math.IsNaN(thresholdDB) || math.IsInf(thresholdDB, 0) {
		return fmt.Errorf("threshold must be finite, got %f", thresholdDB)
	}
	if thresholdDB > 0 {
		return fmt.Errorf("threshold must be at most 0 dBFS, got %f", thresholdDB)
	}

	g.threshold.Store(math.Float64bits(thresholdDB))
	return nil
}

// GetStats returns current gate statistics
func (g *Gate) GetStats() GateStats {
	frames := g.frames.Load()
	passed := g.passed.Load()

	passPercentage := float64(0)
	if frames > 0 {
		passPercentage = float64(passed) / float64(frames) * 100
	}

	return GateStats{
		ThresholdDB:    g.Threshold(),
		TotalFrames:    frames,
		PassedFrames:   passed,
		PassPercentage: passPercentage,
	}
}
