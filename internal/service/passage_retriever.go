package service

import (
	"context"
	"sort"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/scoring"
	"github.com/cloo-solutions/mpedge/internal/telemetry"
)

// PassageSource returns the candidate paragraphs of a set of chapters.
type PassageSource interface {
	Candidates(chapterIDs []string) ([]domain.Paragraph, error)
}

// RetrieverConfig controls passage retrieval.
type RetrieverConfig struct {
	TopK            int
	MinScore        float64 // 0 disables the cutoff
	EmbeddingWeight float64
	LexicalWeight   float64
}

// DefaultRetrieverConfig returns the default retrieval settings.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:            5,
		MinScore:        0,
		EmbeddingWeight: 0.7,
		LexicalWeight:   0.3,
	}
}

// PassageRetriever ranks paragraphs of the selected chapters.
type PassageRetriever struct {
	source   PassageSource
	combiner *scoring.Combiner
	cfg      RetrieverConfig
}

func NewPassageRetriever(source PassageSource, cfg RetrieverConfig) *PassageRetriever {
	def := DefaultRetrieverConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.EmbeddingWeight == 0 && cfg.LexicalWeight == 0 {
		cfg.EmbeddingWeight, cfg.LexicalWeight = def.EmbeddingWeight, def.LexicalWeight
	}
	return &PassageRetriever{
		source:   source,
		combiner: scoring.NewCombiner(cfg.EmbeddingWeight, cfg.LexicalWeight),
		cfg:      cfg,
	}
}

// Retrieve returns the top-K passages of the given chapters, highest score
// first with ties in document order. Results are deterministic for a given
// query and corpus.
func (r *PassageRetriever) Retrieve(ctx context.Context, q domain.Query, chapterIDs []string) ([]domain.ScoredPassage, error) {
	_, span := telemetry.StartSpan(ctx, "passage_retriever.retrieve", telemetry.SpanAttributes{
		Operation: "retrieve_passages",
		Chapters:  chapterIDs,
	})
	defer span.End()

	candidates, err := r.source.Candidates(chapterIDs)
	if err != nil {
		return nil, err
	}

	query := scoring.Input{Text: q.Text, Embedding: q.Embedding}
	scored := make([]domain.ScoredPassage, 0, len(candidates))
	for _, p := range candidates {
		res := r.combiner.Evaluate(query, scoring.Input{Text: p.Text, Embedding: p.Embedding})
		if r.cfg.MinScore > 0 && res.Score < r.cfg.MinScore {
			continue
		}
		scored = append(scored, domain.ScoredPassage{
			Paragraph:      p,
			Score:          res.Score,
			Method:         res.Method,
			EmbeddingScore: res.EmbeddingScore,
			LexicalScore:   res.LexicalScore,
		})
	}

	if len(scored) == 0 {
		return nil, domain.ErrNoPassagesFound
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Paragraph.Ordinal < scored[j].Paragraph.Ordinal
	})

	if len(scored) > r.cfg.TopK {
		scored = scored[:r.cfg.TopK]
	}
	span.SetData("passages", len(scored))
	return scored, nil
}
