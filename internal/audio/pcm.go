package audio

import (
	"encoding/binary"
	"fmt"
)

// BytesPerSample is the size of one signed 16-bit PCM sample on the wire.
const BytesPerSample = 2

// AppendSamples serializes samples as little-endian int16 pairs, appending to dst.
func AppendSamples(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}

// PutSamples writes samples into dst as little-endian int16 pairs.
// dst must hold at least len(samples)*BytesPerSample bytes.
func PutSamples(dst []byte, samples []int16) {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*BytesPerSample:], uint16(s))
	}
}

// DecodeSamples converts little-endian PCM-16 bytes back to samples.
func DecodeSamples(data []byte) ([]int16, error) {
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("audio data length must be even (got %d bytes)", len(data))
	}

	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
	}
	return samples, nil
}
