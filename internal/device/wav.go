package device

import (
	"context"
	"fmt"
	"os"

	"github.com/skypro1111/audio-relay/internal/audio"
)

// wavInput plays a WAV file in a loop as if it were a microphone.
type wavInput struct {
	path    string
	config  StreamConfig
	samples []int16
	pos     int
}

func openWAVInput(sel *selector) (*wavInput, error) {
	if sel.arg == "" {
		return nil, fmt.Errorf("%w: wav input needs a file path", ErrDeviceNotFound)
	}

	data, err := os.ReadFile(sel.arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	}

	samples, format, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedConfig, sel.arg, err)
	}

	// The file dictates the stream format.
	config := StreamConfig{
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
		FrameSize:  format.SampleRate / 100,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &wavInput{path: sel.arg, config: config, samples: samples}, nil
}

func (d *wavInput) Name() string         { return "wav:" + d.path }
func (d *wavInput) Config() StreamConfig { return d.config }
func (d *wavInput) Close() error         { return nil }

// fill copies the next buffer from the file, wrapping at the end.
func (d *wavInput) fill(buf []int16) {
	for n := 0; n < len(buf); {
		c := copy(buf[n:], d.samples[d.pos:])
		n += c
		d.pos = (d.pos + c) % len(d.samples)
	}
}

func (d *wavInput) Run(ctx context.Context, onCapture func(frame []int16)) error {
	buf := make([]int16, d.config.BufferLen())
	return runClock(ctx, d.config.Period(), func() error {
		d.fill(buf)
		onCapture(buf)
		return nil
	})
}

// wavOutput records everything played into a WAV file.
type wavOutput struct {
	path   string
	config StreamConfig
	file   *os.File
	writer *audio.WAVWriter
}

func createWAVOutput(sel *selector) (*wavOutput, error) {
	if sel.arg == "" {
		return nil, fmt.Errorf("%w: wav output needs a file path", ErrDeviceNotFound)
	}

	file, err := os.Create(sel.arg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	}

	writer, err := audio.NewWAVWriter(file, audio.Format{
		SampleRate: sel.config.SampleRate,
		Channels:   sel.config.Channels,
	})
	if err != nil {
		file.Close()
		return nil, err
	}

	return &wavOutput{path: sel.arg, config: sel.config, file: file, writer: writer}, nil
}

func (d *wavOutput) Name() string         { return "wav:" + d.path }
func (d *wavOutput) Config() StreamConfig { return d.config }

func (d *wavOutput) Run(ctx context.Context, onPlayback func(out []int16)) error {
	buf := make([]int16, d.config.BufferLen())
	return runClock(ctx, d.config.Period(), func() error {
		onPlayback(buf)
		return d.writer.Write(buf)
	})
}

// Close finalizes the WAV header and closes the file. Call after Run returns.
func (d *wavOutput) Close() error {
	if err := d.writer.Close(); err != nil {
		d.file.Close()
		return err
	}
	return d.file.Close()
}
