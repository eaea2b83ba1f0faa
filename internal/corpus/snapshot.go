package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// SnapshotVersion is the current on-disk format version.
const SnapshotVersion = 1

// Snapshot is the serialized form of a Document.
type Snapshot struct {
	Version        int               `json:"version"`
	CreatedAt      time.Time         `json:"created_at"`
	EmbeddingModel string            `json:"embedding_model,omitempty"`
	Chapters       []SnapshotChapter `json:"chapters"`
}

type SnapshotChapter struct {
	ID               string              `json:"id"`
	Number           int                 `json:"number"`
	Title            string              `json:"title"`
	Keywords         []string            `json:"keywords,omitempty"`
	Summary          string              `json:"summary,omitempty"`
	SummaryEmbedding []float32           `json:"summary_embedding,omitempty"`
	Paragraphs       []SnapshotParagraph `json:"paragraphs"`
}

type SnapshotParagraph struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// NewSnapshot captures a document for serialization.
func NewSnapshot(doc *domain.Document, embeddingModel string, now time.Time) *Snapshot {
	snap := &Snapshot{
		Version:        SnapshotVersion,
		CreatedAt:      now.UTC(),
		EmbeddingModel: embeddingModel,
		Chapters:       make([]SnapshotChapter, 0, len(doc.Chapters())),
	}
	for _, ch := range doc.Chapters() {
		sc := SnapshotChapter{
			ID:               ch.ID,
			Number:           ch.Number,
			Title:            ch.Title,
			Keywords:         ch.Keywords,
			Summary:          ch.Summary,
			SummaryEmbedding: ch.SummaryEmbedding,
			Paragraphs:       make([]SnapshotParagraph, len(ch.Paragraphs)),
		}
		for i, p := range ch.Paragraphs {
			sc.Paragraphs[i] = SnapshotParagraph{ID: p.ID, Text: p.Text, Embedding: p.Embedding}
		}
		snap.Chapters = append(snap.Chapters, sc)
	}
	return snap
}

// Document rebuilds the immutable document from the snapshot.
func (s *Snapshot) Document() (*domain.Document, error) {
	if s.Version != SnapshotVersion {
		return nil, domain.ErrInvalidCorpus.WithCause(fmt.Errorf("unsupported snapshot version %d", s.Version))
	}
	chapters := make([]domain.Chapter, len(s.Chapters))
	for i, sc := range s.Chapters {
		ch := domain.Chapter{
			ID:               sc.ID,
			Number:           sc.Number,
			Title:            sc.Title,
			Keywords:         sc.Keywords,
			Summary:          sc.Summary,
			SummaryEmbedding: sc.SummaryEmbedding,
			Paragraphs:       make([]domain.Paragraph, len(sc.Paragraphs)),
		}
		for j, sp := range sc.Paragraphs {
			ch.Paragraphs[j] = domain.Paragraph{ID: sp.ID, Text: sp.Text, Embedding: sp.Embedding}
		}
		chapters[i] = ch
	}
	return domain.NewDocument(chapters)
}

// WriteSnapshot encodes the snapshot as JSON.
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a JSON snapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, domain.ErrInvalidCorpus.WithCause(fmt.Errorf("failed to decode snapshot: %w", err))
	}
	return &snap, nil
}
