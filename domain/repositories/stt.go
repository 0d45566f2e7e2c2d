package repositories

import "context"

// SpeechToText abstracts the external speech recognition collaborator.
type SpeechToText interface {
	// Transcribe converts a complete audio payload to text.
	Transcribe(ctx context.Context, audio []byte, config AudioConfig) (string, error)
}

// AudioConfig describes the audio handed to the recognizer.
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}
