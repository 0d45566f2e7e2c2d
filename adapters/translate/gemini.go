// Package translate adapts Google's Gemini API to the Translator and
// Summarizer collaborator interfaces.
package translate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/voxbridge/voxbridge/domain/repositories"
)

const (
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 30 * time.Second
	maxAttempts    = 3
)

// Gemini serves both text translation and transcript summarization
// through a single client.
type Gemini struct {
	client  *genai.Client
	logger  *zap.Logger
	model   string
	timeout time.Duration
}

var (
	_ repositories.Translator = (*Gemini)(nil)
	_ repositories.Summarizer = (*Gemini)(nil)
)

// NewGemini creates a Gemini adapter from the GEMINI_API_KEY
// environment variable.
func NewGemini(ctx context.Context, logger *zap.Logger) (*Gemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &Gemini{
		client:  client,
		logger:  logger,
		model:   model,
		timeout: defaultTimeout,
	}, nil
}

// Translate renders one utterance into the target language. The reply
// is the bare translation, suitable for direct synthesis.
func (g *Gemini) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	prompt := fmt.Sprintf(
		"You are an interpreter between two people. Translate the following "+
			"utterance from %s to %s. Preserve tone and register. Reply with the "+
			"translation only, no explanations or quotes.\n\n%s",
		fromLang, toLang, text)
	return g.generate(ctx, prompt)
}

// Summarize condenses a formatted conversation transcript.
func (g *Gemini) Summarize(ctx context.Context, transcript, targetLang string) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize this two-party conversation in %s. A few sentences, "+
			"covering what each side said and any agreement reached. Each line is "+
			"one utterance, prefixed with the speaker and its language.\n\n%s",
		targetLang, transcript)
	return g.generate(ctx, prompt)
}

func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	}

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}
		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if attempt < maxAttempts-1 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: no content generated")
	}
	var out strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
}
