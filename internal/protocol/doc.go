// Package protocol defines the datagram layouts carried between relay endpoints
// and the sequence tracking used to reject late or replayed packets.
//
// Two layouts exist, one per cipher mode:
//
//	cbc:               [IV:16][Ciphertext:N*16]
//	xchacha20poly1305: [Sequence:8][Nonce:24][Sealed:N+16]
//
// Neither layout carries a length prefix or version field; the mode is fixed
// by configuration on both ends.
package protocol
