// Package device isolates the audio hardware behind small stream
// interfaces so the capture and playback engines can be exercised with
// fakes instead of a live microphone or speaker.
package device

import "errors"

// ErrDeviceAccess reports that an input or output device could not be
// acquired (missing hardware, denied access, backend failure). Fatal to
// the capture or playback attempt that triggered it; the user retries.
var ErrDeviceAccess = errors.New("device: audio device unavailable")

// InputStream delivers blocks of mono float samples from a capture
// device. The onBlock callback runs on the audio backend's own context
// and must not block: hand the data off and return.
type InputStream interface {
	Start(onBlock func(block []float32)) error
	Stop() error
	SampleRate() int
}

// OutputStream pulls mono float samples for a playback device. The pull
// callback runs on the audio backend's own context, must fill dst
// completely and must not block.
type OutputStream interface {
	Start(pull func(dst []float32)) error
	Stop() error
	SampleRate() int
}
