// Package tts adapts the ElevenLabs streaming synthesis API to the
// TextToSpeech collaborator interface.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxbridge/voxbridge/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultChunkSize    = 1024
	defaultOutputFormat = "mp3_44100_128"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75
)

// Config holds the ElevenLabs adapter settings. APIKey is required;
// everything else has a default.
type Config struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	ChunkSize    int
	Stability    float64
	Clarity      float64
}

// ConfigFromEnv reads the adapter settings from ELEVEN_LABS_*
// environment variables.
func ConfigFromEnv() Config {
	config := Config{
		APIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
		APIBaseURL:   os.Getenv("ELEVEN_LABS_API_BASE_URL"),
		VoiceID:      os.Getenv("ELEVEN_LABS_VOICE_ID"),
		ModelID:      os.Getenv("ELEVEN_LABS_MODEL_ID"),
		OutputFormat: os.Getenv("ELEVEN_LABS_OUTPUT_FORMAT"),
	}
	if s := os.Getenv("ELEVEN_LABS_CHUNK_SIZE"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			config.ChunkSize = v
		}
	}
	if s := os.Getenv("ELEVEN_LABS_STABILITY"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 0 && v <= 1 {
			config.Stability = v
		}
	}
	if s := os.Getenv("ELEVEN_LABS_CLARITY"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 0 && v <= 1 {
			config.Clarity = v
		}
	}
	return config
}

func validateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}
	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}
	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}
	if config.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	return nil
}

// ElevenLabsTTS implements TextToSpeech over the ElevenLabs streaming
// endpoint.
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	modelID      string
	outputFormat string
	chunkSize    int
	stability    float64
	clarity      float64
	httpClient   *http.Client
	logger       *zap.Logger
}

var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type synthesisRequest struct {
	Text                   string        `json:"text"`
	ModelID                string        `json:"model_id"`
	LanguageCode           string        `json:"language_code,omitempty"`
	VoiceSettings          voiceSettings `json:"voice_settings"`
	ApplyTextNormalization string        `json:"apply_text_normalization,omitempty"`
}

// NewElevenLabsTTS creates the adapter, applying defaults for every
// unset optional field.
func NewElevenLabsTTS(config Config, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	e := &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   config.APIBaseURL,
		voiceID:      config.VoiceID,
		modelID:      config.ModelID,
		outputFormat: config.OutputFormat,
		chunkSize:    config.ChunkSize,
		stability:    config.Stability,
		clarity:      config.Clarity,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		logger:       logger,
	}
	if e.apiBaseURL == "" {
		e.apiBaseURL = defaultAPIBaseURL
	}
	if e.voiceID == "" {
		e.voiceID = defaultVoiceID
	}
	if e.modelID == "" {
		e.modelID = defaultModelID
	}
	if e.outputFormat == "" {
		e.outputFormat = defaultOutputFormat
	}
	if e.chunkSize == 0 {
		e.chunkSize = defaultChunkSize
	}
	if e.stability == 0 {
		e.stability = defaultStability
	}
	if e.clarity == 0 {
		e.clarity = defaultClarity
	}
	return e, nil
}

// Synthesize streams synthesized speech for the text. The request is
// issued synchronously so API errors surface to the caller; only the
// body streaming happens in the background.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, lang string) (<-chan []byte, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("tts: text cannot be empty")
	}

	body, err := json.Marshal(synthesisRequest{
		Text:                   text,
		ModelID:                e.modelID,
		LanguageCode:           lang,
		ApplyTextNormalization: "auto",
		VoiceSettings: voiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("tts: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.apiBaseURL, e.voiceID, e.outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("tts: create request: %w", err)
	}

	accept := "audio/mpeg"
	if strings.HasPrefix(e.outputFormat, "pcm") {
		accept = "audio/pcm"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts: execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, "", fmt.Errorf("tts: API returned %d: %s", resp.StatusCode, string(errorBody))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = accept
	}

	e.logger.Info("synthesis stream opened",
		zap.String("lang", lang),
		zap.String("contentType", contentType),
		zap.Int("textChars", len(text)))

	out := make(chan []byte, 10)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		buffer := make([]byte, e.chunkSize)
		for {
			n, err := resp.Body.Read(buffer)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buffer[:n])
				select {
				case out <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				e.logger.Error("error reading synthesis stream", zap.Error(err))
				return
			}
		}
	}()

	return out, contentType, nil
}
