package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cloo-solutions/mpedge/internal/corpus"
	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/logger"
	"github.com/cloo-solutions/mpedge/internal/telemetry"
)

// BatchEmbedder embeds many texts at once, preserving order
type BatchEmbedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// CorpusWriter is an ingestion sink
type CorpusWriter interface {
	WriteCorpus(ctx context.Context, doc *domain.Document) error
}

// IngestConfig controls how chapter text becomes paragraphs
type IngestConfig struct {
	MinParagraphChars int
	Chunk             ChunkConfig
}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		MinParagraphChars: 40,
		Chunk:             DefaultChunkConfig(),
	}
}

// IngestService turns extracted chapter text into an embedded document
type IngestService struct {
	embedder BatchEmbedder
	cfg      IngestConfig
	log      zerolog.Logger
}

// NewIngestService creates an IngestService. A nil embedder produces a
// corpus without embeddings, which is served with lexical scoring only.
func NewIngestService(embedder BatchEmbedder, cfg IngestConfig, log zerolog.Logger) *IngestService {
	if cfg.MinParagraphChars < 0 {
		cfg.MinParagraphChars = 0
	}
	if cfg.Chunk.MaxChars <= 0 {
		cfg.Chunk = DefaultChunkConfig()
	}
	return &IngestService{
		embedder: embedder,
		cfg:      cfg,
		log:      logger.Component(log, "ingest"),
	}
}

// Build splits, chunks and embeds every chapter and freezes the result
func (s *IngestService) Build(ctx context.Context, raw []corpus.RawChapter) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest_service.build", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	chapters := make([]domain.Chapter, 0, len(raw))
	for _, rc := range raw {
		ch := domain.Chapter{
			ID:       rc.ID,
			Number:   rc.Number,
			Title:    rc.Title,
			Keywords: rc.Keywords,
			Summary:  rc.Summary,
		}
		for _, para := range splitParagraphs(rc.Text, s.cfg.MinParagraphChars) {
			for _, chunk := range chunkText(para, s.cfg.Chunk) {
				ch.Paragraphs = append(ch.Paragraphs, domain.Paragraph{Text: chunk})
			}
		}
		if err := s.embedChapter(ctx, &ch); err != nil {
			span.SetError(err)
			return nil, err
		}
		s.log.Info().Str("chapter", ch.ID).Int("paragraphs", len(ch.Paragraphs)).Msg("chapter prepared")
		chapters = append(chapters, ch)
	}

	return domain.NewDocument(chapters)
}

func (s *IngestService) embedChapter(ctx context.Context, ch *domain.Chapter) error {
	if s.embedder == nil {
		return nil
	}

	texts := make([]string, 0, len(ch.Paragraphs)+1)
	for _, p := range ch.Paragraphs {
		texts = append(texts, p.Text)
	}
	summary := ch.Summary
	if summary != "" {
		texts = append(texts, ch.Title+" "+summary)
	}
	if len(texts) == 0 {
		return nil
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chapter %s: %w", ch.ID, err)
	}
	if len(embeddings) != len(texts) {
		return fmt.Errorf("failed to embed chapter %s: got %d embeddings for %d texts", ch.ID, len(embeddings), len(texts))
	}

	for i := range ch.Paragraphs {
		ch.Paragraphs[i].Embedding = embeddings[i]
	}
	if summary != "" {
		ch.SummaryEmbedding = embeddings[len(embeddings)-1]
	}
	return nil
}

// Run builds the document and hands it to every sink in order
func (s *IngestService) Run(ctx context.Context, raw []corpus.RawChapter, sinks ...CorpusWriter) (*domain.Document, error) {
	doc, err := s.Build(ctx, raw)
	if err != nil {
		return nil, err
	}
	for _, sink := range sinks {
		name := sinkName(sink)
		if err := sink.WriteCorpus(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to write corpus to %s: %w", name, err)
		}
		s.log.Info().Str("sink", name).Msg("corpus written")
	}
	return doc, nil
}

// sinkName is the sink's String() when it has one, otherwise its type.
func sinkName(sink CorpusWriter) string {
	if named, ok := sink.(fmt.Stringer); ok {
		return named.String()
	}
	return fmt.Sprintf("%T", sink)
}
