package encryption

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/skypro1111/audio-relay/internal/audio"
	"github.com/skypro1111/audio-relay/internal/protocol"
)

// Sealed is XChaCha20-Poly1305 with a per-packet random nonce and a
// monotonically increasing sequence number bound as additional data.
type Sealed struct {
	aead cipher.AEAD
	rand io.Reader
	seq  atomic.Uint64
}

// NewSealed creates an authenticated frame cipher. The key must be KeySize bytes.
func NewSealed(key []byte) (*Sealed, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrKeySize, len(key))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create XChaCha20-Poly1305: %w", err)
	}

	return &Sealed{aead: aead, rand: rand.Reader}, nil
}

// Mode returns ModeXChaCha20Poly1305.
func (s *Sealed) Mode() Mode {
	return ModeXChaCha20Poly1305
}

// Encrypt returns Sequence || Nonce || Seal(frame).
func (s *Sealed) Encrypt(frame []int16) ([]byte, error) {
	header := protocol.SealedHeader{Sequence: s.seq.Add(1)}
	if _, err := io.ReadFull(s.rand, header.Nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	plainLen := len(frame) * audio.BytesPerSample
	packet := make([]byte, 0, protocol.SealedHeaderSize+plainLen+s.aead.Overhead())
	packet = header.AppendTo(packet)

	// Serialize in place and seal over the same storage.
	plain := audio.AppendSamples(packet[protocol.SealedHeaderSize:], frame)
	sealed := s.aead.Seal(plain[:0], header.Nonce[:], plain, packet[:protocol.SealedHeaderSize])

	return packet[:protocol.SealedHeaderSize+len(sealed)], nil
}

// Decrypt verifies and opens a packet produced by Encrypt.
func (s *Sealed) Decrypt(packet []byte) (Frame, error) {
	parsed, err := protocol.ParseSealed(packet)
	if err != nil {
		return Frame{}, err
	}

	plain, err := s.aead.Open(nil, parsed.Header.Nonce[:], parsed.Sealed, parsed.AdditionalData)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	samples, err := audio.DecodeSamples(plain)
	if err != nil {
		return Frame{}, err
	}

	return Frame{
		Samples:   samples,
		Sequence:  parsed.Header.Sequence,
		Sequenced: true,
	}, nil
}
