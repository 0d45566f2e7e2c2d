// Package stt adapts Google Cloud Speech-to-Text to the SpeechToText
// collaborator interface.
package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/domain/repositories"
)

// GoogleSpeechToText recognizes one complete utterance per call. The
// pipeline always hands over a finalized recording, so the one-shot
// Recognize API fits better than a streaming session.
type GoogleSpeechToText struct {
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates the adapter. Credentials come from the
// ambient Google Cloud environment (GOOGLE_APPLICATION_CREDENTIALS).
func NewGoogleSpeechToText(logger *zap.Logger) *GoogleSpeechToText {
	return &GoogleSpeechToText{logger: logger}
}

// Transcribe converts a complete audio payload to text.
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("stt: no audio data")
	}

	encoding, err := audioEncoding(config.Encoding)
	if err != nil {
		return "", err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("stt: create speech client: %w", err)
	}
	defer client.Close()

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(config.SampleRate),
			LanguageCode:    config.Language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", fmt.Errorf("stt: recognize: %w", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}
	transcript := strings.TrimSpace(strings.Join(parts, " "))

	g.logger.Debug("transcription completed",
		zap.String("language", config.Language),
		zap.Int("audioBytes", len(audioData)),
		zap.Int("chars", len(transcript)))

	return transcript, nil
}

// audioEncoding converts the config's encoding name to the API enum.
func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("stt: unsupported encoding: %s", encoding)
	}
}
