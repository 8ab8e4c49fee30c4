package device

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSampleRate    = 48000
	DefaultChannels      = 2
	DefaultFrameDuration = 10 * time.Millisecond
)

var (
	// ErrDeviceNotFound is returned when a selector names no known device.
	ErrDeviceNotFound = errors.New("audio device not found")
	// ErrUnsupportedConfig is returned when no usable stream configuration exists.
	ErrUnsupportedConfig = errors.New("no supported stream configuration")
)

// StreamConfig is the negotiated stream format.
type StreamConfig struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	// FrameSize is the number of frames (samples per channel) per callback.
	FrameSize int `json:"frame_size"`
}

// BufferLen returns the interleaved sample count of one callback buffer.
func (c StreamConfig) BufferLen() int {
	return c.FrameSize * c.Channels
}

// Period returns the wall-clock time covered by one callback buffer.
func (c StreamConfig) Period() time.Duration {
	return time.Duration(c.FrameSize) * time.Second / time.Duration(c.SampleRate)
}

// Validate checks the configuration.
func (c StreamConfig) Validate() error {
	if c.SampleRate <= 0 || c.Channels < 1 || c.FrameSize < 1 {
		return fmt.Errorf("%w: %d Hz, %d channels, %d frames per buffer",
			ErrUnsupportedConfig, c.SampleRate, c.Channels, c.FrameSize)
	}
	return nil
}

func defaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		FrameSize:  int(DefaultSampleRate * DefaultFrameDuration / time.Second),
	}
}

// InputDevice captures audio.
type InputDevice interface {
	Name() string
	Config() StreamConfig
	// Run invokes onCapture with each captured buffer until ctx is done.
	// The buffer is only valid for the duration of the call.
	Run(ctx context.Context, onCapture func(frame []int16)) error
	Close() error
}

// OutputDevice plays audio.
type OutputDevice interface {
	Name() string
	Config() StreamConfig
	// Run invokes onPlayback to fill each output buffer until ctx is done.
	Run(ctx context.Context, onPlayback func(out []int16)) error
	Close() error
}

// Kind describes a device family for listing.
type Kind struct {
	Name        string `json:"name"`
	Input       bool   `json:"input"`
	Output      bool   `json:"output"`
	Selector    string `json:"selector"`
	Description string `json:"description"`
}

// List returns the supported device kinds.
func List() []Kind {
	return []Kind{
		{Name: "null", Input: true, Output: true, Selector: "null[@<rate>[x<channels>]]", Description: "silence source / discarding sink (alias: default)"},
		{Name: "tone", Input: true, Selector: "tone:<hz>[@<rate>[x<channels>]]", Description: "sine wave generator at -6 dBFS"},
		{Name: "wav", Input: true, Output: true, Selector: "wav:<path>[@<rate>[x<channels>]]", Description: "16-bit PCM WAV file, looped on input, recorded on output"},
	}
}

// selector is a parsed device selector string.
type selector struct {
	kind   string
	arg    string
	config StreamConfig
	// explicit is true when the selector carried an @rate suffix.
	explicit bool
}

var formatSuffix = regexp.MustCompile(`@(\d+)(?:x(\d+))?$`)

func parseSelector(s string) (*selector, error) {
	s = strings.TrimSpace(s)
	sel := &selector{config: defaultStreamConfig()}

	if m := formatSuffix.FindStringSubmatch(s); m != nil {
		rate, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid sample rate in %q: %w", s, err)
		}
		sel.config.SampleRate = rate
		if m[2] != "" {
			channels, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("invalid channel count in %q: %w", s, err)
			}
			sel.config.Channels = channels
		}
		sel.config.FrameSize = int(time.Duration(rate) * DefaultFrameDuration / time.Second)
		sel.explicit = true
		s = s[:len(s)-len(m[0])]
	}

	kind, arg, _ := strings.Cut(s, ":")
	sel.kind = strings.ToLower(kind)
	sel.arg = arg

	if err := sel.config.Validate(); err != nil {
		return nil, err
	}
	return sel, nil
}

// OpenInput resolves a selector into a capture device.
func OpenInput(s string) (InputDevice, error) {
	sel, err := parseSelector(s)
	if err != nil {
		return nil, err
	}

	switch sel.kind {
	case "", "default", "null":
		return newNullInput(sel.config), nil
	case "tone":
		return newToneInput(sel)
	case "wav":
		return openWAVInput(sel)
	default:
		return nil, fmt.Errorf("%w: input %q", ErrDeviceNotFound, s)
	}
}

// OpenOutput resolves a selector into a playback device.
func OpenOutput(s string) (OutputDevice, error) {
	sel, err := parseSelector(s)
	if err != nil {
		return nil, err
	}

	switch sel.kind {
	case "", "default", "null":
		return newNullOutput(sel.config), nil
	case "wav":
		return createWAVOutput(sel)
	default:
		return nil, fmt.Errorf("%w: output %q", ErrDeviceNotFound, s)
	}
}

// runClock calls tick once per period until ctx is done.
func runClock(ctx context.Context, period time.Duration, tick func() error) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := tick(); err != nil {
				return err
			}
		}
	}
}
