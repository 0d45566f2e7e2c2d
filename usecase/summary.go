package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/voxbridge/voxbridge/domain/entities"
	"github.com/voxbridge/voxbridge/domain/repositories"
)

// ErrEmptyTranscript reports that a session has nothing to summarize.
var ErrEmptyTranscript = errors.New("usecase: transcript is empty")

// SummaryService turns a session transcript into plain text and hands
// it to the summarization collaborator.
type SummaryService struct {
	summarizer repositories.Summarizer
}

// NewSummaryService creates the service over the given summarizer.
func NewSummaryService(summarizer repositories.Summarizer) *SummaryService {
	return &SummaryService{summarizer: summarizer}
}

// Summarize formats the entries one utterance per line and delegates.
func (s *SummaryService) Summarize(ctx context.Context, entries []entities.TranscriptEntry, targetLang string) (string, error) {
	if len(entries) == 0 {
		return "", ErrEmptyTranscript
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s %s] %s\n", e.Speaker, e.Lang, e.Text)
	}

	summary, err := s.summarizer.Summarize(ctx, b.String(), targetLang)
	if err != nil {
		return "", fmt.Errorf("usecase: summarize: %w", err)
	}
	return summary, nil
}
