// Package device is the boundary to the audio hardware collaborator.
//
// A device exposes its negotiated stream configuration and drives a callback
// with interleaved PCM-16 buffers at the stream's real-time pace. The relay
// only depends on the InputDevice and OutputDevice interfaces; the devices in
// this package (silence, sine tone, WAV file) stand in for a sound card.
package device
