package domain

import "strings"

// ScoringMethod names the signal that produced a passage score.
type ScoringMethod string

const (
	ScoringMethodEmbedding ScoringMethod = "embedding"
	ScoringMethodLexical   ScoringMethod = "lexical"
	ScoringMethodHybrid    ScoringMethod = "hybrid"
)

// Query is a user question, optionally with its embedding.
type Query struct {
	Text      string
	Embedding []float32
}

// NewQuery trims the text and rejects empty questions.
func NewQuery(text string, embedding []float32) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, ErrEmptyQuery
	}
	return Query{Text: text, Embedding: embedding}, nil
}

// HasEmbedding reports whether semantic scoring is possible.
func (q Query) HasEmbedding() bool {
	return len(q.Embedding) > 0
}

// ScoredPassage is a paragraph with its relevance score for one query.
type ScoredPassage struct {
	Paragraph      Paragraph     `json:"paragraph"`
	Score          float64       `json:"score"`
	Method         ScoringMethod `json:"method"`
	EmbeddingScore float64       `json:"embedding_score"`
	LexicalScore   float64       `json:"lexical_score"`
	// Truncated marks a passage cut down to fit the context budget; its
	// Paragraph.Text is the text the provider saw.
	Truncated      bool          `json:"truncated,omitempty"`
}

// ChapterScore is a chapter with its selection score.
type ChapterScore struct {
	ChapterID      string        `json:"chapter_id"`
	Score          float64       `json:"score"`
	Method         ScoringMethod `json:"method"`
	EmbeddingScore float64       `json:"embedding_score"`
	LexicalScore   float64       `json:"lexical_score"`
}

// AnswerResult is the outcome of a successful ask.
type AnswerResult struct {
	Answer       string            `json:"answer"`
	Citations    []ScoredPassage   `json:"citations"`
	Provider     string            `json:"provider"`
	Model        string            `json:"model"`
	Chapters     []string          `json:"chapters"`
	ScopeWidened bool              `json:"scope_widened"`
	Failures     []ProviderFailure `json:"failures,omitempty"`
}

// CitationIDs returns the paragraph IDs cited by the answer, in citation order.
func (r *AnswerResult) CitationIDs() []string {
	ids := make([]string, len(r.Citations))
	for i, c := range r.Citations {
		ids[i] = c.Paragraph.ID
	}
	return ids
}
