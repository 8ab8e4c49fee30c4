package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Layout constants
const (
	BlockSize = 16 // AES block size
	IVSize    = 16 // CBC initialization vector

	SequenceSize     = 8
	NonceSize        = 24 // XChaCha20 extended nonce
	TagSize          = 16 // Poly1305 tag
	SealedHeaderSize = SequenceSize + NonceSize

	// MaxDatagramSize bounds any UDP payload, IPv4 or IPv6. A read buffer
	// of this size never truncates a datagram.
	MaxDatagramSize = 1<<16 - 1
)

var (
	// ErrBlockAlignment is returned when a cbc packet is not a whole number of blocks.
	ErrBlockAlignment = errors.New("packet length is not a multiple of the block size")
	// ErrShortPacket is returned when a packet cannot hold its fixed header.
	ErrShortPacket = errors.New("packet too short")
)

// CBCPacket is a parsed cbc-mode datagram.
type CBCPacket struct {
	IV         []byte
	Ciphertext []byte
}

// ParseCBC splits a cbc datagram into IV and ciphertext without copying.
func ParseCBC(data []byte) (*CBCPacket, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBlockAlignment, len(data))
	}
	if len(data) < IVSize {
		return nil, fmt.Errorf("%w: expected at least %d bytes, got %d", ErrShortPacket, IVSize, len(data))
	}

	return &CBCPacket{
		IV:         data[:IVSize],
		Ciphertext: data[IVSize:],
	}, nil
}

// PaddedLen returns n rounded up to a whole number of blocks.
func PaddedLen(n int) int {
	return (n + BlockSize - 1) / BlockSize * BlockSize
}

// SealedHeader is the cleartext prefix of an authenticated datagram.
// The whole header is bound to the ciphertext as additional data.
type SealedHeader struct {
	Sequence uint64
	Nonce    [NonceSize]byte
}

// AppendTo appends the wire form of the header to dst.
func (h *SealedHeader) AppendTo(dst []byte) []byte {
	dst = binary.BigEndian.AppendUint64(dst, h.Sequence)
	return append(dst, h.Nonce[:]...)
}

// SealedPacket is a parsed authenticated datagram.
type SealedPacket struct {
	Header *SealedHeader
	// AdditionalData is the raw header bytes, authenticated by the AEAD.
	AdditionalData []byte
	Sealed         []byte
}

// ParseSealed splits an authenticated datagram into header and sealed payload.
func ParseSealed(data []byte) (*SealedPacket, error) {
	if len(data) < SealedHeaderSize+TagSize {
		return nil, fmt.Errorf("%w: expected at least %d bytes, got %d",
			ErrShortPacket, SealedHeaderSize+TagSize, len(data))
	}

	header := &SealedHeader{
		Sequence: binary.BigEndian.Uint64(data[:SequenceSize]),
	}
	copy(header.Nonce[:], data[SequenceSize:SealedHeaderSize])

	return &SealedPacket{
		Header:         header,
		AdditionalData: data[:SealedHeaderSize],
		Sealed:         data[SealedHeaderSize:],
	}, nil
}
