package encryption

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/skypro1111/audio-relay/internal/protocol"
)

// KeySize is the required symmetric key length (AES-256 / XChaCha20).
const KeySize = 32

// Mode selects the frame cipher.
type Mode string

const (
	ModeCBC               Mode = "cbc"
	ModeXChaCha20Poly1305 Mode = "xchacha20poly1305"
)

var (
	// ErrKeySize is returned when the key is not exactly KeySize bytes.
	ErrKeySize = errors.New("key must be 32 bytes")
	// ErrUnknownMode is returned for an unsupported cipher mode.
	ErrUnknownMode = errors.New("unknown cipher mode")
	// ErrAuthentication is returned when an authenticated packet fails verification.
	ErrAuthentication = errors.New("packet authentication failed")

	// ErrBlockAlignment and ErrShortPacket are the wire-level length errors.
	ErrBlockAlignment = protocol.ErrBlockAlignment
	ErrShortPacket    = protocol.ErrShortPacket
)

// Frame is a decrypted packet.
type Frame struct {
	Samples []int16
	// Sequence is only meaningful when Sequenced is true.
	Sequence  uint64
	Sequenced bool
}

// FrameCipher encrypts outgoing mono frames and decrypts incoming packets.
// Implementations are safe for concurrent use by one sender and one receiver.
type FrameCipher interface {
	Encrypt(frame []int16) ([]byte, error)
	Decrypt(packet []byte) (Frame, error)
	Mode() Mode
}

// Modes lists the supported cipher modes.
func Modes() []Mode {
	return []Mode{ModeCBC, ModeXChaCha20Poly1305}
}

// ParseMode validates a mode name. An empty string selects cbc.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeCBC, nil
	case ModeCBC, ModeXChaCha20Poly1305:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// DecodeKey decodes a hexadecimal key and checks its length.
func DecodeKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("invalid hex key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrKeySize, len(key))
	}
	return key, nil
}

// New creates the frame cipher for mode.
func New(mode Mode, key []byte) (FrameCipher, error) {
	switch mode {
	case ModeCBC, "":
		return NewCBC(key)
	case ModeXChaCha20Poly1305:
		return NewSealed(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
