// Package transport moves encrypted audio frames over UDP.
//
// A Sender runs on the client: its OnCapture method is the capture callback
// body (gate, downmix, encrypt, enqueue) and its Run method drains the queue
// onto a connected socket. A Receiver runs on the server: its Run method
// reads and decrypts datagrams into a jitter buffer and its OnPlayback
// method is the playback callback body (drain, upmix).
//
// Callbacks never touch the network and never block on it. The only shared
// state between a callback and its background loop is the bounded send
// queue or the jitter buffer.
package transport
