package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/skypro1111/audio-relay/internal/audio"
	"github.com/skypro1111/audio-relay/internal/protocol"
)

// CBC is AES-256-CBC with a random IV per frame, sent ahead of the ciphertext.
//
// Frames are zero-padded to the block size and the padded length is not
// transmitted, so the receiver sees trailing zero samples it cannot tell
// apart from real ones.
type CBC struct {
	block cipher.Block
	rand  io.Reader
}

// NewCBC creates a cbc frame cipher. The key must be KeySize bytes.
func NewCBC(key []byte) (*CBC, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w, got %d", ErrKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return &CBC{block: block, rand: rand.Reader}, nil
}

// Mode returns ModeCBC.
func (c *CBC) Mode() Mode {
	return ModeCBC
}

// Encrypt serializes frame, pads it with zeros to a whole number of blocks
// and returns IV || ciphertext.
func (c *CBC) Encrypt(frame []int16) ([]byte, error) {
	plainLen := len(frame) * audio.BytesPerSample
	packet := make([]byte, protocol.IVSize+protocol.PaddedLen(plainLen))

	iv := packet[:protocol.IVSize]
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	body := packet[protocol.IVSize:]
	audio.PutSamples(body, frame)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(body, body)

	return packet, nil
}

// Decrypt reverses Encrypt. The result holds (len(packet)-IVSize)/2 samples,
// padding included.
func (c *CBC) Decrypt(packet []byte) (Frame, error) {
	parsed, err := protocol.ParseCBC(packet)
	if err != nil {
		return Frame{}, err
	}

	plain := make([]byte, len(parsed.Ciphertext))
	cipher.NewCBCDecrypter(c.block, parsed.IV).CryptBlocks(plain, parsed.Ciphertext)

	samples, err := audio.DecodeSamples(plain)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Samples: samples}, nil
}
