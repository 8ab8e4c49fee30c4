package device

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skypro1111/audio-relay/internal/audio"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     string
		arg      string
		config   StreamConfig
		explicit bool
		wantErr  bool
	}{
		{name: "default", input: "default", kind: "default", config: defaultStreamConfig()},
		{name: "empty", input: "", kind: "", config: defaultStreamConfig()},
		{name: "tone", input: "tone:440", kind: "tone", arg: "440", config: defaultStreamConfig()},
		{
			name: "tone with rate and channels", input: "tone:440@16000x1", kind: "tone", arg: "440",
			config: StreamConfig{SampleRate: 16000, Channels: 1, FrameSize: 160}, explicit: true,
		},
		{
			name: "wav path with rate", input: "wav:/tmp/out.wav@8000", kind: "wav", arg: "/tmp/out.wav",
			config: StreamConfig{SampleRate: 8000, Channels: DefaultChannels, FrameSize: 80}, explicit: true,
		},
		{name: "windows path", input: `wav:C:\audio\in.wav`, kind: "wav", arg: `C:\audio\in.wav`, config: defaultStreamConfig()},
		{name: "zero channels", input: "null@48000x0", wantErr: true},
		{name: "zero rate", input: "null@0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := parseSelector(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedConfig) {
					t.Errorf("Expected ErrUnsupportedConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if sel.kind != tt.kind || sel.arg != tt.arg {
				t.Errorf("Expected kind=%q arg=%q, got kind=%q arg=%q", tt.kind, tt.arg, sel.kind, sel.arg)
			}
			if sel.config != tt.config {
				t.Errorf("Expected config %+v, got %+v", tt.config, sel.config)
			}
			if sel.explicit != tt.explicit {
				t.Errorf("Expected explicit=%v, got %v", tt.explicit, sel.explicit)
			}
		})
	}
}

func TestOpenUnknownDevice(t *testing.T) {
	if _, err := OpenInput("pulse:mic"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound, got %v", err)
	}
	if _, err := OpenOutput("tone:440"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected tone to be input only, got %v", err)
	}
	if _, err := OpenInput("wav:" + filepath.Join(t.TempDir(), "missing.wav")); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected ErrDeviceNotFound for missing file, got %v", err)
	}
}

func TestStreamConfigPeriod(t *testing.T) {
	config := StreamConfig{SampleRate: 48000, Channels: 2, FrameSize: 480}
	if config.Period() != 10*time.Millisecond {
		t.Errorf("Expected 10ms period, got %v", config.Period())
	}
	if config.BufferLen() != 960 {
		t.Errorf("Expected 960 samples per buffer, got %d", config.BufferLen())
	}
}

func TestNullInputRunsCallbacks(t *testing.T) {
	dev, err := OpenInput("null@8000x2")
	if err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	defer dev.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	err = dev.Run(ctx, func(frame []int16) {
		calls.Add(1)
		if len(frame) != dev.Config().BufferLen() {
			t.Errorf("Expected %d samples, got %d", dev.Config().BufferLen(), len(frame))
		}
		for _, s := range frame {
			if s != 0 {
				t.Errorf("Expected silence, got %d", s)
				return
			}
		}
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if calls.Load() == 0 {
		t.Error("Expected at least one capture callback")
	}
}

func TestToneInputFill(t *testing.T) {
	dev, err := OpenInput("tone:1000@8000x2")
	if err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	tone := dev.(*toneInput)

	buf := make([]int16, tone.config.BufferLen())
	tone.fill(buf)

	var peak int16
	for i := 0; i < len(buf); i += 2 {
		if buf[i] != buf[i+1] {
			t.Fatalf("Expected identical channels at frame %d, got %d and %d", i/2, buf[i], buf[i+1])
		}
		peak = max(peak, buf[i])
	}
	if peak < toneAmplitude*9/10 {
		t.Errorf("Expected peak near %d, got %d", toneAmplitude, peak)
	}

	if _, err := OpenInput("tone:5000@8000"); err == nil {
		t.Error("Expected error for tone above Nyquist")
	}
}

func TestWAVInputLoops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.wav")
	data, err := audio.EncodeWAV([]int16{1, -1, 2, -2, 3, -3}, audio.Format{SampleRate: 8000, Channels: 2})
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	dev, err := OpenInput("wav:" + path)
	if err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	if dev.Config().Channels != 2 || dev.Config().SampleRate != 8000 {
		t.Errorf("Expected the file format, got %+v", dev.Config())
	}

	wav := dev.(*wavInput)
	buf := make([]int16, 8)
	wav.fill(buf)
	want := []int16{1, -1, 2, -2, 3, -3, 1, -1}
	for i := range want {
		if buf[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, buf[i], want[i])
		}
	}
}

func TestWAVOutputRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	dev, err := OpenOutput("wav:" + path + "@8000x1")
	if err != nil {
		t.Fatalf("OpenOutput failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	if err := dev.Run(ctx, func(out []int16) {
		calls.Add(1)
		for i := range out {
			out[i] = 7
		}
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	samples, format, err := audio.DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if format.SampleRate != 8000 || format.Channels != 1 {
		t.Errorf("Unexpected format %+v", format)
	}
	if len(samples) != int(calls.Load())*80 {
		t.Errorf("Expected %d samples, got %d", calls.Load()*80, len(samples))
	}
	for _, s := range samples {
		if s != 7 {
			t.Fatalf("Expected recorded value 7, got %d", s)
		}
	}
}

func TestListKinds(t *testing.T) {
	kinds := List()
	names := make(map[string]bool)
	for _, k := range kinds {
		names[k.Name] = true
	}
	for _, want := range []string{"null", "tone", "wav"} {
		if !names[want] {
			t.Errorf("Expected device kind %q to be listed", want)
		}
	}
}
