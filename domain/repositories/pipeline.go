package repositories

import (
	"context"
	"io"
)

// TranslationResult is the outcome of one point-to-point translation
// turn: the synthesized audio stream plus the texts it was built from.
type TranslationResult struct {
	// Audio streams the synthesized response; the caller owns closing it.
	Audio io.ReadCloser

	// ContentType is the MIME type of the audio stream.
	ContentType string

	// SourceText is the recognized text of the captured utterance.
	SourceText string

	// TranslatedText is the text that was synthesized.
	TranslatedText string
}

// VoicePipeline is the external processing collaborator the core hands
// a captured utterance to: language pair + audio bytes in, synthesized
// audio stream out.
type VoicePipeline interface {
	Translate(ctx context.Context, fromLang, toLang string, audio []byte) (*TranslationResult, error)
}
