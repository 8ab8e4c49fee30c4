// Package audio handles PCM sample buffering, channel mixing, and format conversion.
// It implements the jitter buffer shared between the network receiver and the
// playback callback, mono downmix/upmix, explicit little-endian sample
// serialization, and WAV encoding for file-backed devices.
package audio
