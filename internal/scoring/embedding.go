package scoring

import (
	"math"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// EmbeddingScorer is cosine similarity with negative values clamped to 0.
type EmbeddingScorer struct{}

func (EmbeddingScorer) Method() domain.ScoringMethod {
	return domain.ScoringMethodEmbedding
}

func (EmbeddingScorer) Score(q, c Input) float64 {
	return clamp01(Cosine(q.Embedding, c.Embedding))
}

// Cosine returns the cosine similarity of a and b, or 0 when either vector is
// empty, zero, or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
