// Package encryption implements the frame ciphers used on the wire.
//
// The default "cbc" mode encrypts little-endian PCM-16 frames with AES-256-CBC
// under a fresh random IV per frame. It provides confidentiality only: a
// corrupted packet of valid length decrypts into noise without any error.
// The "xchacha20poly1305" mode adds authentication and a sequence number so
// the receiver can reject tampered, late and replayed packets.
package encryption
