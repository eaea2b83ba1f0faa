package service

import (
	"context"
	"sort"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/scoring"
	"github.com/cloo-solutions/mpedge/internal/telemetry"
)

// ChapterSource lists the chapters available for selection.
type ChapterSource interface {
	Chapters() []domain.Chapter
}

// SelectorConfig controls chapter selection.
type SelectorConfig struct {
	MaxChapters     int
	MinScore        float64
	EmbeddingWeight float64
	LexicalWeight   float64
}

// DefaultSelectorConfig returns the default chapter selection settings.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		MaxChapters:     3,
		MinScore:        0.15,
		EmbeddingWeight: 0.6,
		LexicalWeight:   0.4,
	}
}

// ChapterSelector narrows a query to the most relevant chapters.
type ChapterSelector struct {
	chapters ChapterSource
	combiner *scoring.Combiner
	cfg      SelectorConfig
}

func NewChapterSelector(chapters ChapterSource, cfg SelectorConfig) *ChapterSelector {
	def := DefaultSelectorConfig()
	if cfg.MaxChapters <= 0 {
		cfg.MaxChapters = def.MaxChapters
	}
	if cfg.EmbeddingWeight == 0 && cfg.LexicalWeight == 0 {
		cfg.EmbeddingWeight, cfg.LexicalWeight = def.EmbeddingWeight, def.LexicalWeight
	}
	return &ChapterSelector{
		chapters: chapters,
		combiner: scoring.NewCombiner(cfg.EmbeddingWeight, cfg.LexicalWeight),
		cfg:      cfg,
	}
}

// Rank scores every chapter against the query, highest first. Ties are broken
// by chapter number, then id.
func (s *ChapterSelector) Rank(q domain.Query) []domain.ChapterScore {
	chapters := s.chapters.Chapters()
	query := scoring.Input{Text: q.Text, Embedding: q.Embedding}

	type ranked struct {
		score  domain.ChapterScore
		number int
	}
	all := make([]ranked, 0, len(chapters))
	for i := range chapters {
		ch := &chapters[i]
		res := s.combiner.Evaluate(query, scoring.Input{Text: ch.SignatureText(), Embedding: ch.Signature()})
		all = append(all, ranked{
			score: domain.ChapterScore{
				ChapterID:      ch.ID,
				Score:          res.Score,
				Method:         res.Method,
				EmbeddingScore: res.EmbeddingScore,
				LexicalScore:   res.LexicalScore,
			},
			number: ch.Number,
		})
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].score.Score != all[j].score.Score {
			return all[i].score.Score > all[j].score.Score
		}
		if all[i].number != all[j].number {
			return all[i].number < all[j].number
		}
		return all[i].score.ChapterID < all[j].score.ChapterID
	})

	out := make([]domain.ChapterScore, len(all))
	for i, r := range all {
		out[i] = r.score
	}
	return out
}

// Select returns up to MaxChapters chapters scoring at least MinScore.
// Zero scores never qualify.
func (s *ChapterSelector) Select(ctx context.Context, q domain.Query) ([]domain.ChapterScore, error) {
	_, span := telemetry.StartSpan(ctx, "chapter_selector.select", telemetry.SpanAttributes{
		Operation: "select_chapters",
	})
	defer span.End()

	selected := make([]domain.ChapterScore, 0, s.cfg.MaxChapters)
	for _, cs := range s.Rank(q) {
		if len(selected) >= s.cfg.MaxChapters {
			break
		}
		if cs.Score <= 0 || cs.Score < s.cfg.MinScore {
			// ranked descending, nothing further can qualify
			break
		}
		selected = append(selected, cs)
	}

	if len(selected) == 0 {
		return nil, domain.ErrNoChaptersMatched
	}
	span.SetData("chapters", ChapterIDs(selected))
	return selected, nil
}

// ChapterIDs extracts the chapter ids in rank order.
func ChapterIDs(scores []domain.ChapterScore) []string {
	ids := make([]string, len(scores))
	for i, s := range scores {
		ids[i] = s.ChapterID
	}
	return ids
}
