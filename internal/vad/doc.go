// Package vad provides the volume gate that decides which captured frames are
// worth sending. Loudness is measured as RMS in dBFS and compared against a
// threshold that can be retuned while audio is flowing.
package vad
