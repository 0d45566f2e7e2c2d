// Package speech holds in-memory stand-ins for the external AI
// collaborators, used in tests and when the server runs without API
// keys.
package speech

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/domain/entities"
	"github.com/voxbridge/voxbridge/domain/repositories"
	"github.com/voxbridge/voxbridge/internal/audio"
)

// MockSpeechToText is a placeholder recognizer.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service.
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{logger: logger}
}

// Transcribe implements repositories.SpeechToText.
func (s *MockSpeechToText) Transcribe(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	s.logger.Info("Processing speech-to-text",
		zap.Int("audioSize", len(audioData)),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("language", config.Language))

	// Mock transcription based on audio size
	switch {
	case len(audioData) > 64000:
		return "Thank you for listening, I had a lot to say today.", nil
	case len(audioData) > 16000:
		return "Hello, how are you doing?", nil
	case len(audioData) > 1000:
		return "Hello!", nil
	default:
		return "Hi", nil
	}
}

// MockTextToSpeech is a placeholder synthesizer. It produces a real
// container-format tone so downstream decode and playback paths can
// run end to end.
type MockTextToSpeech struct {
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock text-to-speech service.
func NewMockTextToSpeech(logger *zap.Logger) repositories.TextToSpeech {
	return &MockTextToSpeech{logger: logger}
}

// Synthesize implements repositories.TextToSpeech.
func (t *MockTextToSpeech) Synthesize(ctx context.Context, text string, lang string) (<-chan []byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("mock tts: text cannot be empty")
	}

	t.logger.Info("Processing text-to-speech",
		zap.String("lang", lang),
		zap.Int("textChars", len(text)))

	// Duration scales with text length, 50ms per character within
	// half a second and three seconds.
	rate := entities.TargetSampleRate
	seconds := math.Min(3.0, math.Max(0.5, float64(len(text))*0.05))
	samples := make([]int16, int(seconds*float64(rate)))
	for i := range samples {
		v := 0.2 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
		samples[i] = int16(v * 32767)
	}

	payload, err := audio.EncodeWAV(samples, rate)
	if err != nil {
		return nil, "", fmt.Errorf("mock tts: encode: %w", err)
	}

	out := make(chan []byte, 8)
	go func() {
		defer close(out)
		const chunkSize = 4096
		for off := 0; off < len(payload); off += chunkSize {
			end := off + chunkSize
			if end > len(payload) {
				end = len(payload)
			}
			select {
			case out <- payload[off:end]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, "audio/wav", nil
}

// MockTranslator tags the text with the target language instead of
// translating it.
type MockTranslator struct {
	logger *zap.Logger
}

// NewMockTranslator creates a new mock translator.
func NewMockTranslator(logger *zap.Logger) repositories.Translator {
	return &MockTranslator{logger: logger}
}

// Translate implements repositories.Translator.
func (m *MockTranslator) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	m.logger.Info("Processing translation",
		zap.String("fromLang", fromLang),
		zap.String("toLang", toLang))
	return fmt.Sprintf("[%s] %s", toLang, text), nil
}

// MockSummarizer reports utterance counts instead of summarizing.
type MockSummarizer struct {
	logger *zap.Logger
}

// NewMockSummarizer creates a new mock summarizer.
func NewMockSummarizer(logger *zap.Logger) repositories.Summarizer {
	return &MockSummarizer{logger: logger}
}

// Summarize implements repositories.Summarizer.
func (m *MockSummarizer) Summarize(ctx context.Context, transcript, targetLang string) (string, error) {
	lines := strings.Count(strings.TrimSpace(transcript), "\n") + 1
	return fmt.Sprintf("A conversation of %d utterances (summary in %s).", lines, targetLang), nil
}
