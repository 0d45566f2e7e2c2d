package audio

import "math"

// Resample converts a block of samples from one rate to another using
// linear interpolation between the two nearest input samples. Identity
// when the rates match.
//
// Known limitation: there is no anti-aliasing filter ahead of the
// interpolation. For speech-bandwidth signals downsampled to 16 kHz the
// artifacts are inaudible, and skipping the filter keeps the finalize
// path cheap.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(math.Round(float64(len(samples)) / ratio))
	out := make([]float32, outLen)

	for i := range out {
		pos := float64(i) * ratio
		lo := int(pos)
		if lo > len(samples)-1 {
			lo = len(samples) - 1
		}
		hi := lo + 1
		if hi > len(samples)-1 {
			hi = len(samples) - 1
		}
		frac := float32(pos - float64(lo))
		out[i] = samples[lo] + frac*(samples[hi]-samples[lo])
	}
	return out
}
