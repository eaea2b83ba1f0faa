package service

import (
	"context"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// AskLogCitation captures a single cited passage for logging.
type AskLogCitation struct {
	ParagraphID string  `json:"paragraph_id"`
	ChapterID   string  `json:"chapter_id"`
	Score       float64 `json:"score"`
}

// AskLogEntry captures an ask request and its outcome.
type AskLogEntry struct {
	RequestID    string
	Query        string
	Chapters     []string
	ScopeWidened bool
	Status       string
	Provider     string
	Model        string
	DurationMs   int
	Citations    []AskLogCitation
	Failures     []domain.ProviderFailure
}

// AskLogRepository persists ask logs.
type AskLogRepository interface {
	CreateAskLog(ctx context.Context, entry AskLogEntry) (string, error)
}

func askLogCitations(passages []domain.ScoredPassage) []AskLogCitation {
	out := make([]AskLogCitation, len(passages))
	for i, p := range passages {
		out[i] = AskLogCitation{ParagraphID: p.Paragraph.ID, ChapterID: p.Paragraph.ChapterID, Score: p.Score}
	}
	return out
}
