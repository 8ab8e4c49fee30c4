package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const wavHeaderSize = 44

// WAVHeader represents the header structure of a canonical PCM WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// Format describes the sample rate and channel count of interleaved PCM-16 audio.
type Format struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
}

func newWAVHeader(format Format, dataSize uint32) WAVHeader {
	blockAlign := uint16(format.Channels * BytesPerSample)
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(format.Channels),
		SampleRate:    uint32(format.SampleRate),
		ByteRate:      uint32(format.SampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

func (f Format) validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels < 1 {
		return fmt.Errorf("channel count must be at least 1, got %d", f.Channels)
	}
	return nil
}

// EncodeWAV encodes interleaved PCM-16 samples into WAV format
func EncodeWAV(samples []int16, format Format) ([]byte, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}
	if len(samples)%format.Channels != 0 {
		return nil, fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), format.Channels)
	}

	dataSize := uint32(len(samples) * BytesPerSample)
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+int(dataSize)))

	if err := binary.Write(buf, binary.LittleEndian, newWAVHeader(format, dataSize)); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	buf.Write(AppendSamples(nil, samples))

	return buf.Bytes(), nil
}

// DecodeWAV decodes WAV data back to interleaved PCM-16 samples
func DecodeWAV(data []byte) ([]int16, Format, error) {
	if len(data) < wavHeaderSize {
		return nil, Format{}, fmt.Errorf("WAV data too short: need at least %d bytes, got %d", wavHeaderSize, len(data))
	}

	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, Format{}, fmt.Errorf("failed to read WAV header: %w", err)
	}

	switch {
	case string(header.ChunkID[:]) != "RIFF":
		return nil, Format{}, fmt.Errorf("invalid WAV file: missing RIFF header")
	case string(header.Format[:]) != "WAVE":
		return nil, Format{}, fmt.Errorf("invalid WAV file: missing WAVE format")
	case string(header.Subchunk1ID[:]) != "fmt ":
		return nil, Format{}, fmt.Errorf("invalid WAV file: missing fmt chunk")
	case string(header.Subchunk2ID[:]) != "data":
		return nil, Format{}, fmt.Errorf("invalid WAV file: missing data chunk")
	case header.AudioFormat != 1:
		return nil, Format{}, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", header.AudioFormat)
	case header.BitsPerSample != 16:
		return nil, Format{}, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", header.BitsPerSample)
	case header.NumChannels == 0:
		return nil, Format{}, fmt.Errorf("invalid channel count: 0")
	}

	format := Format{SampleRate: int(header.SampleRate), Channels: int(header.NumChannels)}

	payload := data[wavHeaderSize:]
	if int(header.Subchunk2Size) < len(payload) {
		payload = payload[:header.Subchunk2Size]
	}
	payload = payload[:len(payload)-len(payload)%(format.Channels*BytesPerSample)]
	if len(payload) == 0 {
		return nil, Format{}, fmt.Errorf("no audio data found")
	}

	samples, err := DecodeSamples(payload)
	if err != nil {
		return nil, Format{}, err
	}
	return samples, format, nil
}

// WAVWriter streams interleaved PCM-16 samples into a WAV file. The header
// is written with zero sizes up front and patched on Close.
type WAVWriter struct {
	w       io.WriteSeeker
	format  Format
	written uint32
	scratch []byte
}

// NewWAVWriter writes a placeholder header and returns a writer for samples.
func NewWAVWriter(w io.WriteSeeker, format Format) (*WAVWriter, error) {
	if err := format.validate(); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, newWAVHeader(format, 0)); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	return &WAVWriter{w: w, format: format}, nil
}

// Write appends samples to the data chunk.
func (ww *WAVWriter) Write(samples []int16) error {
	ww.scratch = AppendSamples(ww.scratch[:0], samples)
	n, err := ww.w.Write(ww.scratch)
	ww.written += uint32(n)
	if err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	return nil
}

// Close rewrites the header with the final data size. It does not close the
// underlying writer.
func (ww *WAVWriter) Close() error {
	if _, err := ww.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to WAV header: %w", err)
	}
	if err := binary.Write(ww.w, binary.LittleEndian, newWAVHeader(ww.format, ww.written)); err != nil {
		return fmt.Errorf("failed to rewrite WAV header: %w", err)
	}
	_, err := ww.w.Seek(0, io.SeekEnd)
	return err
}
