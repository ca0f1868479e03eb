package audio

// resampler converts a mono PCM stream between sample rates using linear
// interpolation. It carries interpolation state across chunks, so feeding a
// stream in one piece or in many produces identical output.
type resampler struct {
	srcRate int
	dstRate int

	pos    float64 // next output position, in source samples past carry
	carry  float64 // last source sample of the previous chunk
	primed bool
}

func newResampler(srcRate, dstRate int) *resampler {
	return &resampler{srcRate: srcRate, dstRate: dstRate}
}

// process resamples one chunk of mono samples in the -1..1 range.
// The returned slice is only valid until the next call.
func (r *resampler) process(in []float64) []float64 {
	if r.srcRate == r.dstRate {
		return in
	}
	if len(in) == 0 {
		return nil
	}

	buf := in
	if r.primed {
		buf = make([]float64, 0, len(in)+1)
		buf = append(buf, r.carry)
		buf = append(buf, in...)
	}

	step := float64(r.srcRate) / float64(r.dstRate)
	out := make([]float64, 0, int(float64(len(in))/step)+2)

	pos := r.pos
	for {
		i := int(pos)
		if i+1 >= len(buf) {
			break
		}
		frac := pos - float64(i)
		out = append(out, buf[i]*(1-frac)+buf[i+1]*frac)
		pos += step
	}

	// Keep only the final sample; everything before it is fully consumed.
	consumed := len(buf) - 1
	r.pos = pos - float64(consumed)
	r.carry = buf[consumed]
	r.primed = true

	return out
}

// downmix averages interleaved multi-channel PCM frames into mono samples in
// the -1..1 range. bits is the source bit depth.
func downmix(data []int, channels, bits int) []float64 {
	scale := float64(int64(1) << (bits - 1))
	frames := len(data) / channels
	out := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(data[f*channels+ch])
		}
		out[f] = sum / float64(channels) / scale
	}
	return out
}

// clampPCM16 converts a -1..1 sample to a 16-bit PCM value.
func clampPCM16(v float64) int {
	s := int(v * 32768)
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return s
}
