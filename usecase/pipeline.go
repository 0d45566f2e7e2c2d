// Package usecase composes the external AI collaborators into the
// operations the transport layer exposes.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/domain/repositories"
	"github.com/voxbridge/voxbridge/internal/audio"
)

// ErrNoSpeech reports that recognition produced no text, so there is
// nothing to translate or synthesize.
var ErrNoSpeech = errors.New("usecase: no speech recognized")

// VoicePipelineService runs one translation turn: recognize the
// captured utterance, translate the text, synthesize the reply.
type VoicePipelineService struct {
	stt        repositories.SpeechToText
	translator repositories.Translator
	tts        repositories.TextToSpeech
	logger     *zap.Logger
}

var _ repositories.VoicePipeline = (*VoicePipelineService)(nil)

// NewVoicePipelineService creates the pipeline over the given collaborators.
func NewVoicePipelineService(stt repositories.SpeechToText, translator repositories.Translator, tts repositories.TextToSpeech, logger *zap.Logger) *VoicePipelineService {
	return &VoicePipelineService{
		stt:        stt,
		translator: translator,
		tts:        tts,
		logger:     logger,
	}
}

// Translate runs the full turn on a complete container-format payload.
// The returned result streams synthesized audio; the caller closes it.
func (s *VoicePipelineService) Translate(ctx context.Context, fromLang, toLang string, payload []byte) (*repositories.TranslationResult, error) {
	_, rate, err := audio.DecodeWAV(payload)
	if err != nil {
		return nil, err
	}

	sourceText, err := s.stt.Transcribe(ctx, payload, repositories.AudioConfig{
		SampleRate: rate,
		Encoding:   "LINEAR16",
		Language:   fromLang,
	})
	if err != nil {
		return nil, fmt.Errorf("usecase: transcribe: %w", err)
	}
	if sourceText == "" {
		return nil, ErrNoSpeech
	}

	translatedText, err := s.translator.Translate(ctx, sourceText, fromLang, toLang)
	if err != nil {
		return nil, fmt.Errorf("usecase: translate: %w", err)
	}

	chunks, contentType, err := s.tts.Synthesize(ctx, translatedText, toLang)
	if err != nil {
		return nil, fmt.Errorf("usecase: synthesize: %w", err)
	}

	s.logger.Info("translation turn completed",
		zap.String("fromLang", fromLang),
		zap.String("toLang", toLang),
		zap.Int("sourceChars", len(sourceText)),
		zap.Int("translatedChars", len(translatedText)))

	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		for chunk := range chunks {
			if _, err := pw.Write(chunk); err != nil {
				// Reader gone. Drain so the synthesizer can finish.
				for range chunks {
				}
				return
			}
		}
	}()

	return &repositories.TranslationResult{
		Audio:          pr,
		ContentType:    contentType,
		SourceText:     sourceText,
		TranslatedText: translatedText,
	}, nil
}
