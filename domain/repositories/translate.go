package repositories

import "context"

// Translator abstracts the external text translation collaborator.
type Translator interface {
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
}

// Summarizer abstracts the external summarization collaborator. The
// transcript is handed over pre-formatted as plain text.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, targetLang string) (string, error)
}
