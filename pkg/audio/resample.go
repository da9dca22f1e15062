package audio

// Resample converts p to rate by linear interpolation between neighbouring
// frames, channel by channel. p is returned unchanged when the rates match
// or either rate is not positive. A trailing partial frame is dropped.
func Resample(p PCM, rate int) PCM {
	if p.SampleRate == rate || p.SampleRate <= 0 || rate <= 0 || p.Channels <= 0 {
		return p
	}
	ch := p.Channels
	src := p.Frames()
	dst := int(int64(src) * int64(rate) / int64(p.SampleRate))
	out := PCM{Samples: make([]int16, dst*ch), SampleRate: rate, Channels: ch}
	if dst == 0 {
		return out
	}

	step := float64(p.SampleRate) / float64(rate)
	for i := range dst {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)
		next := min(idx+1, src-1)
		for c := range ch {
			a := float64(p.Samples[idx*ch+c])
			b := float64(p.Samples[next*ch+c])
			out.Samples[i*ch+c] = int16(a + (b-a)*frac)
		}
	}
	return out
}
