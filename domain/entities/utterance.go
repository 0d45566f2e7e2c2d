package entities

import "time"

// TargetSampleRate is the canonical rate every finalized utterance and
// every binary stream frame is delivered at.
const TargetSampleRate = 16000

// Utterance is one finalized recording: a complete mono 16-bit PCM
// container plus the metadata the header was built from. Created once
// when capture stops and immutable thereafter.
type Utterance struct {
	// Data is the full container (44-byte header + payload).
	Data []byte

	// SampleRate is the rate declared in the header.
	SampleRate int

	// SampleCount is the number of payload samples; the payload byte
	// length is always 2 * SampleCount.
	SampleCount int
}

// Duration is the playing time of the utterance.
func (u *Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(u.SampleCount) * time.Second / time.Duration(u.SampleRate)
}
