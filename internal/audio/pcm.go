package audio

import (
	"encoding/binary"
	"math"
)

// Int16FromFloat quantizes a float sample in [-1, 1] to a signed 16-bit
// sample. Input outside the range is clamped. Negative values scale by
// 32768 and positive values by 32767 so that the full two's-complement
// range is reachable on both sides.
func Int16FromFloat(s float32) int16 {
	if s <= -1 {
		return math.MinInt16
	}
	if s >= 1 {
		return math.MaxInt16
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// FloatFromInt16 converts a signed 16-bit sample back to a float in
// [-1, 1). The round trip through Int16FromFloat loses at most 1/32768.
func FloatFromInt16(v int16) float32 {
	return float32(v) / 32768
}

// Int16sFromFloats quantizes a whole block.
func Int16sFromFloats(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = Int16FromFloat(s)
	}
	return out
}

// FloatsFromInt16s converts a whole block back to floats.
func FloatsFromInt16s(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, v := range samples {
		out[i] = FloatFromInt16(v)
	}
	return out
}

// BytesFromInt16s serializes samples as little-endian PCM bytes, the wire
// format of binary stream frames.
func BytesFromInt16s(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// Int16sFromBytes parses little-endian PCM bytes. A trailing odd byte is
// ignored; frames produced by this package are always even-sized.
func Int16sFromBytes(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
