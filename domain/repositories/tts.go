package repositories

import "context"

// TextToSpeech abstracts the external synthesis collaborator. The
// returned channel streams audio chunks as they arrive and is closed
// when synthesis ends; the string is the MIME type of the stream.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string, lang string) (<-chan []byte, string, error)
}
