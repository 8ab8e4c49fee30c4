package encryption

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skypro1111/audio-relay/internal/protocol"
)

var testKey = bytes.Repeat([]byte{0x42}, KeySize)

func randomFrame(r *rand.Rand, n int) []int16 {
	frame := make([]int16, n)
	for i := range frame {
		frame[i] = int16(r.IntN(65536) - 32768)
	}
	return frame
}

func TestNewRejectsBadKeys(t *testing.T) {
	for _, mode := range Modes() {
		for _, size := range []int{0, 16, 31, 33, 64} {
			_, err := New(mode, make([]byte, size))
			assert.ErrorIs(t, err, ErrKeySize, "mode %s key size %d", mode, size)
		}
	}
}

func TestNewUnknownMode(t *testing.T) {
	_, err := New("rot13", testKey)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeCBC, mode)

	mode, err = ParseMode(" XChaCha20Poly1305 ")
	require.NoError(t, err)
	assert.Equal(t, ModeXChaCha20Poly1305, mode)

	_, err = ParseMode("ecb")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestDecodeKey(t *testing.T) {
	key, err := DecodeKey(strings.Repeat("ab", KeySize))
	require.NoError(t, err)
	assert.Len(t, key, KeySize)

	_, err = DecodeKey(strings.Repeat("ab", 16))
	assert.ErrorIs(t, err, ErrKeySize)

	_, err = DecodeKey("zz" + strings.Repeat("ab", KeySize-1))
	assert.Error(t, err)
}

func TestCBCRoundTripPrefix(t *testing.T) {
	c, err := NewCBC(testKey)
	require.NoError(t, err)

	r := rand.New(rand.NewPCG(1, 2))
	for _, n := range []int{1, 2, 7, 8, 9, 160, 441, 1024} {
		frame := randomFrame(r, n)

		packet, err := c.Encrypt(frame)
		require.NoError(t, err)
		assert.Zero(t, len(packet)%protocol.BlockSize, "packet length must be block aligned")

		decoded, err := c.Decrypt(packet)
		require.NoError(t, err)

		paddedBytes := protocol.PaddedLen(n * 2)
		require.Len(t, decoded.Samples, paddedBytes/2)
		assert.Equal(t, frame, decoded.Samples[:n])
		for _, s := range decoded.Samples[n:] {
			assert.Zero(t, s, "padding must decode to silence")
		}
		assert.False(t, decoded.Sequenced)
	}
}

func TestCBCKnownFrame(t *testing.T) {
	c, err := NewCBC(testKey)
	require.NoError(t, err)

	packet, err := c.Encrypt([]int16{1000, -1000})
	require.NoError(t, err)
	assert.Len(t, packet, protocol.IVSize+16)

	decoded, err := c.Decrypt(packet)
	require.NoError(t, err)
	assert.Equal(t, []int16{1000, -1000, 0, 0, 0, 0, 0, 0}, decoded.Samples)
}

func TestCBCFreshIVPerFrame(t *testing.T) {
	c, err := NewCBC(testKey)
	require.NoError(t, err)

	frame := []int16{1, 2, 3, 4, 5, 6, 7, 8}
	a, err := c.Encrypt(frame)
	require.NoError(t, err)
	b, err := c.Encrypt(frame)
	require.NoError(t, err)

	assert.NotEqual(t, a[:protocol.IVSize], b[:protocol.IVSize])
	assert.NotEqual(t, a[protocol.IVSize:], b[protocol.IVSize:])
}

func TestCBCDecryptMisaligned(t *testing.T) {
	c, err := NewCBC(testKey)
	require.NoError(t, err)

	for _, n := range []int{1, 15, 17, 33, 47} {
		_, err := c.Decrypt(make([]byte, n))
		assert.ErrorIs(t, err, ErrBlockAlignment, "length %d", n)
	}
}

func TestCBCTamperingGoesUndetected(t *testing.T) {
	c, err := NewCBC(testKey)
	require.NoError(t, err)

	packet, err := c.Encrypt([]int16{100, 200, 300, 400, 500, 600, 700, 800})
	require.NoError(t, err)
	packet[len(packet)-1] ^= 0xFF

	decoded, err := c.Decrypt(packet)
	require.NoError(t, err, "cbc mode has no integrity check")
	assert.Len(t, decoded.Samples, 8)
}

func TestCBCWrongKey(t *testing.T) {
	a, err := NewCBC(testKey)
	require.NoError(t, err)
	b, err := NewCBC(bytes.Repeat([]byte{0x24}, KeySize))
	require.NoError(t, err)

	frame := []int16{1000, -1000, 1000, -1000, 1000, -1000, 1000, -1000}
	packet, err := a.Encrypt(frame)
	require.NoError(t, err)

	decoded, err := b.Decrypt(packet)
	require.NoError(t, err)
	assert.NotEqual(t, frame, decoded.Samples)
}

func TestSealedRoundTrip(t *testing.T) {
	s, err := NewSealed(testKey)
	require.NoError(t, err)

	r := rand.New(rand.NewPCG(3, 4))
	for i, n := range []int{0, 1, 2, 160, 441} {
		frame := randomFrame(r, n)

		packet, err := s.Encrypt(frame)
		require.NoError(t, err)
		assert.Len(t, packet, protocol.SealedHeaderSize+n*2+protocol.TagSize)

		decoded, err := s.Decrypt(packet)
		require.NoError(t, err)
		assert.True(t, decoded.Sequenced)
		assert.Equal(t, uint64(i+1), decoded.Sequence)
		if n == 0 {
			assert.Empty(t, decoded.Samples)
		} else {
			assert.Equal(t, frame, decoded.Samples)
		}
	}
}

func TestSealedDetectsTampering(t *testing.T) {
	s, err := NewSealed(testKey)
	require.NoError(t, err)

	packet, err := s.Encrypt([]int16{1000, -1000})
	require.NoError(t, err)

	for i := range packet {
		tampered := bytes.Clone(packet)
		tampered[i] ^= 0x01
		_, err := s.Decrypt(tampered)
		assert.ErrorIs(t, err, ErrAuthentication, "flipped byte %d", i)
	}
}

func TestSealedShortPacket(t *testing.T) {
	s, err := NewSealed(testKey)
	require.NoError(t, err)

	_, err = s.Decrypt(make([]byte, protocol.SealedHeaderSize))
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestSealedConcurrentEncryptUniqueSequences(t *testing.T) {
	s, err := NewSealed(testKey)
	require.NoError(t, err)

	const workers, perWorker = 8, 200
	results := make(chan uint64, workers*perWorker)
	done := make(chan struct{})

	for w := 0; w < workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perWorker; i++ {
				packet, err := s.Encrypt([]int16{int16(i)})
				if err != nil {
					t.Error(err)
					return
				}
				frame, err := s.Decrypt(packet)
				if err != nil {
					t.Error(err)
					return
				}
				results <- frame.Sequence
			}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	close(results)

	seen := make(map[uint64]struct{})
	for seq := range results {
		_, dup := seen[seq]
		require.False(t, dup, "duplicate sequence %d", seq)
		seen[seq] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}
