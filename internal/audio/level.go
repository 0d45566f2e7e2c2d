package audio

import "math"

// RMS computes the root-mean-square amplitude of a block of samples.
// An empty block has zero loudness.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// PerceptualLevel maps a raw RMS value to a display level in [0, 1].
// The compression curve keeps quiet speech visible on an indicator while
// loud speech saturates instead of clipping.
func PerceptualLevel(rms float64) float64 {
	if rms <= 0 {
		return 0
	}
	level := math.Pow(rms, 0.65) * 1.35
	if level > 1 {
		return 1
	}
	return level
}

// BlockLevel is the convenience composition used by the capture and
// playback callbacks.
func BlockLevel(samples []float32) float64 {
	return PerceptualLevel(RMS(samples))
}
