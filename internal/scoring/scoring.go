// Package scoring ranks text and embedding pairs for chapter selection and
// passage retrieval.
package scoring

import (
	"github.com/cloo-solutions/mpedge/internal/domain"
)

// Input is one side of a comparison.
type Input struct {
	Text      string
	Embedding []float32
}

// Scorer compares a query against a candidate and returns a score in [0,1].
type Scorer interface {
	Method() domain.ScoringMethod
	Score(q, c Input) float64
}

// Result carries a combined score together with its component signals.
type Result struct {
	Score          float64
	Method         domain.ScoringMethod
	EmbeddingScore float64
	LexicalScore   float64
}

// Combiner blends embedding and lexical scores with fixed weights.
type Combiner struct {
	embedding       Scorer
	lexical         Scorer
	embeddingWeight float64
	lexicalWeight   float64
}

// NewCombiner normalizes the weights so they sum to 1. Non-positive totals
// fall back to lexical only.
func NewCombiner(embeddingWeight, lexicalWeight float64) *Combiner {
	if embeddingWeight < 0 {
		embeddingWeight = 0
	}
	if lexicalWeight < 0 {
		lexicalWeight = 0
	}
	total := embeddingWeight + lexicalWeight
	if total == 0 {
		embeddingWeight, lexicalWeight, total = 0, 1, 1
	}
	return &Combiner{
		embedding:       EmbeddingScorer{},
		lexical:         NewLexicalScorer(),
		embeddingWeight: embeddingWeight / total,
		lexicalWeight:   lexicalWeight / total,
	}
}

// Weights returns the normalized (embedding, lexical) weights.
func (c *Combiner) Weights() (float64, float64) {
	return c.embeddingWeight, c.lexicalWeight
}

func (c *Combiner) Method() domain.ScoringMethod {
	return domain.ScoringMethodHybrid
}

func (c *Combiner) Score(q, cand Input) float64 {
	return c.Evaluate(q, cand).Score
}

// Evaluate scores one pair. Without comparable embeddings on both sides
// (missing, or of different dimensions) the result is lexical only; with a
// zero lexical weight it is embedding only.
func (c *Combiner) Evaluate(q, cand Input) Result {
	semantic := len(q.Embedding) > 0 && len(q.Embedding) == len(cand.Embedding) && c.embeddingWeight > 0

	var res Result
	if c.lexicalWeight > 0 || !semantic {
		res.LexicalScore = c.lexical.Score(q, cand)
	}
	if !semantic {
		res.Score = res.LexicalScore
		res.Method = c.lexical.Method()
		return res
	}

	res.EmbeddingScore = c.embedding.Score(q, cand)
	if c.lexicalWeight == 0 {
		res.Score = res.EmbeddingScore
		res.Method = c.embedding.Method()
		return res
	}
	res.Score = clamp01(c.embeddingWeight*res.EmbeddingScore + c.lexicalWeight*res.LexicalScore)
	res.Method = domain.ScoringMethodHybrid
	return res
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
