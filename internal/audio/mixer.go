package audio

// Downmix reduces an interleaved frame with the given channel count to mono.
// Each group of channels becomes one sample holding the integer-truncated
// average. A trailing partial group is dropped. The result is appended to
// dst[:0] so the capture callback can reuse its scratch slice.
func Downmix(dst, frame []int16, channels int) []int16 {
	dst = dst[:0]
	if channels <= 1 {
		return append(dst, frame...)
	}

	whole := len(frame) - len(frame)%channels
	for i := 0; i < whole; i += channels {
		var sum int32
		for _, s := range frame[i : i+channels] {
			sum += int32(s)
		}
		dst = append(dst, int16(sum/int32(channels)))
	}
	return dst
}

// Upmix replicates mono samples across channels into out.
//
// It writes len(out)/channels frames: the first min(len(mono), len(out)/channels)
// come from mono, the rest of out is zero-filled. There is no interpolation on
// underrun, a short buffer simply plays silence. Returns the number of mono
// samples consumed.
func Upmix(out, mono []int16, channels int) int {
	if channels < 1 {
		channels = 1
	}

	required := len(out) / channels
	n := min(len(mono), required)

	if channels == 1 {
		copy(out, mono[:n])
	} else {
		for i, s := range mono[:n] {
			frame := out[i*channels : (i+1)*channels]
			for c := range frame {
				frame[c] = s
			}
		}
	}

	clear(out[n*channels:])
	return n
}
