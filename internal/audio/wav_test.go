package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func sine(frequency float64, format Format, frames int) []int16 {
	samples := make([]int16, frames*format.Channels)
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(format.SampleRate)
		s := int16(16383.0 * math.Sin(2*math.Pi*frequency*t))
		for c := 0; c < format.Channels; c++ {
			samples[i*format.Channels+c] = s
		}
	}
	return samples
}

func TestEncodeDecodeWAV(t *testing.T) {
	formats := []Format{
		{SampleRate: 8000, Channels: 1},
		{SampleRate: 48000, Channels: 2},
	}

	for _, format := range formats {
		samples := sine(440, format, 800)

		wavData, err := EncodeWAV(samples, format)
		if err != nil {
			t.Fatalf("EncodeWAV failed: %v", err)
		}

		expectedSize := wavHeaderSize + len(samples)*BytesPerSample
		if len(wavData) != expectedSize {
			t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
		}

		decoded, gotFormat, err := DecodeWAV(wavData)
		if err != nil {
			t.Fatalf("DecodeWAV failed: %v", err)
		}
		if gotFormat != format {
			t.Errorf("Expected format %+v, got %+v", format, gotFormat)
		}
		if len(decoded) != len(samples) {
			t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
		}
		for i := range samples {
			if decoded[i] != samples[i] {
				t.Fatalf("Sample mismatch at %d: expected %d, got %d", i, samples[i], decoded[i])
			}
		}
	}
}

func TestEncodeWAVErrors(t *testing.T) {
	if _, err := EncodeWAV([]int16{1, 2}, Format{SampleRate: 0, Channels: 1}); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := EncodeWAV([]int16{1, 2, 3}, Format{SampleRate: 8000, Channels: 2}); err == nil {
		t.Error("Expected error for partial frame")
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("RIFF")); err == nil {
		t.Error("Expected error for short data")
	}

	data, _ := EncodeWAV([]int16{1, 2}, Format{SampleRate: 8000, Channels: 1})
	copy(data[0:4], "RIFX")
	if _, _, err := DecodeWAV(data); err == nil {
		t.Error("Expected error for missing RIFF header")
	}
}

func TestWAVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	format := Format{SampleRate: 16000, Channels: 2}
	writer, err := NewWAVWriter(f, format)
	if err != nil {
		t.Fatalf("NewWAVWriter failed: %v", err)
	}

	chunk := sine(300, format, 160)
	for i := 0; i < 3; i++ {
		if err := writer.Write(chunk); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	decoded, gotFormat, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if gotFormat != format {
		t.Errorf("Expected format %+v, got %+v", format, gotFormat)
	}
	if len(decoded) != 3*len(chunk) {
		t.Errorf("Expected %d samples, got %d", 3*len(chunk), len(decoded))
	}
}
