package device

import (
	"context"
	"fmt"
	"math"
	"strconv"
)

// toneAmplitude is -6 dBFS.
const toneAmplitude = math.MaxInt16 / 2

// toneInput generates a continuous sine wave on every channel.
type toneInput struct {
	config    StreamConfig
	frequency float64
	phase     float64
}

func newToneInput(sel *selector) (*toneInput, error) {
	frequency, err := strconv.ParseFloat(sel.arg, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid tone frequency %q: %w", sel.arg, err)
	}
	if frequency <= 0 || frequency >= float64(sel.config.SampleRate)/2 {
		return nil, fmt.Errorf("tone frequency %.1f Hz must be between 0 and the Nyquist limit %d Hz",
			frequency, sel.config.SampleRate/2)
	}

	return &toneInput{config: sel.config, frequency: frequency}, nil
}

func (d *toneInput) Name() string         { return fmt.Sprintf("tone:%g", d.frequency) }
func (d *toneInput) Config() StreamConfig { return d.config }
func (d *toneInput) Close() error         { return nil }

// fill writes the next buffer of the wave into buf, keeping phase continuous.
func (d *toneInput) fill(buf []int16) {
	step := 2 * math.Pi * d.frequency / float64(d.config.SampleRate)
	channels := d.config.Channels

	for i := 0; i+channels <= len(buf); i += channels {
		s := int16(toneAmplitude * math.Sin(d.phase))
		for c := 0; c < channels; c++ {
			buf[i+c] = s
		}
		d.phase = math.Mod(d.phase+step, 2*math.Pi)
	}
}

func (d *toneInput) Run(ctx context.Context, onCapture func(frame []int16)) error {
	buf := make([]int16, d.config.BufferLen())
	return runClock(ctx, d.config.Period(), func() error {
		d.fill(buf)
		onCapture(buf)
		return nil
	})
}
