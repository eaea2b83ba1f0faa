package domain

import (
	"fmt"
	"strings"
)

// Paragraph is the smallest retrievable unit of the corpus.
type Paragraph struct {
	ID        string
	ChapterID string // back-reference only
	Index     int    // position within the chapter
	Ordinal   int    // position within the whole document
	Text      string
	Embedding []float32
}

// Chapter is a top-level partition of the corpus.
type Chapter struct {
	ID               string
	Number           int
	Title            string
	Keywords         []string
	Summary          string
	SummaryEmbedding []float32
	Paragraphs       []Paragraph

	signature []float32
}

// Signature returns the embedding used for chapter selection: the summary
// embedding when one was supplied, otherwise the centroid of the paragraph
// embeddings.
func (c *Chapter) Signature() []float32 {
	if len(c.SummaryEmbedding) > 0 {
		return c.SummaryEmbedding
	}
	return c.signature
}

// SignatureText is the text matched lexically during chapter selection.
func (c *Chapter) SignatureText() string {
	parts := make([]string, 0, 3)
	if c.Title != "" {
		parts = append(parts, c.Title)
	}
	if len(c.Keywords) > 0 {
		parts = append(parts, strings.Join(c.Keywords, " "))
	}
	if c.Summary != "" {
		parts = append(parts, c.Summary)
	}
	return strings.Join(parts, " ")
}

// DisplayName mirrors the "Chapter 800 – Restriction..." label used by the UI.
func (c *Chapter) DisplayName() string {
	if c.Title == "" {
		return "Chapter " + c.ID
	}
	return fmt.Sprintf("Chapter %s – %s", c.ID, c.Title)
}

// Document is the full corpus. It is immutable once built by NewDocument.
type Document struct {
	chapters   []Chapter
	byID       map[string]int
	paragraphs int
	dimension  int
}

// NewDocument validates the chapters and freezes them into a Document. It
// assigns paragraph back-references and document order, and computes chapter
// signature centroids.
func NewDocument(chapters []Chapter) (*Document, error) {
	if len(chapters) == 0 {
		return nil, ErrCorpusEmpty
	}

	doc := &Document{
		chapters: make([]Chapter, len(chapters)),
		byID:     make(map[string]int, len(chapters)),
	}

	ordinal := 0
	for i, src := range chapters {
		id := strings.TrimSpace(src.ID)
		if id == "" {
			return nil, ErrInvalidCorpus.WithCause(fmt.Errorf("chapter %d has no id", i))
		}
		if _, dup := doc.byID[id]; dup {
			return nil, ErrInvalidCorpus.WithCause(fmt.Errorf("duplicate chapter id %q", id))
		}

		ch := src
		ch.ID = id
		ch.Keywords = append([]string(nil), src.Keywords...)
		ch.SummaryEmbedding = append([]float32(nil), src.SummaryEmbedding...)
		ch.Paragraphs = make([]Paragraph, len(src.Paragraphs))

		if err := doc.checkDimension(ch.SummaryEmbedding); err != nil {
			return nil, ErrInvalidCorpus.WithCause(fmt.Errorf("chapter %s summary: %w", id, err))
		}

		for j, p := range src.Paragraphs {
			if err := doc.checkDimension(p.Embedding); err != nil {
				return nil, ErrInvalidCorpus.WithCause(fmt.Errorf("chapter %s paragraph %d: %w", id, j, err))
			}
			p.ChapterID = id
			p.Index = j
			p.Ordinal = ordinal
			if p.ID == "" {
				p.ID = fmt.Sprintf("%s-%d", id, j)
			}
			p.Embedding = append([]float32(nil), p.Embedding...)
			ch.Paragraphs[j] = p
			ordinal++
		}
		ch.signature = centroid(ch.Paragraphs)

		doc.chapters[i] = ch
		doc.byID[id] = i
	}
	doc.paragraphs = ordinal

	return doc, nil
}

func (d *Document) checkDimension(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	if d.dimension == 0 {
		d.dimension = len(vec)
		return nil
	}
	if len(vec) != d.dimension {
		return fmt.Errorf("embedding dimension %d, expected %d", len(vec), d.dimension)
	}
	return nil
}

// Chapters returns the chapters in document order. Callers must not modify
// the returned values.
func (d *Document) Chapters() []Chapter {
	return d.chapters
}

// Chapter looks up a chapter by id.
func (d *Document) Chapter(id string) (*Chapter, bool) {
	i, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return &d.chapters[i], true
}

// ParagraphCount is the number of paragraphs across all chapters.
func (d *Document) ParagraphCount() int {
	return d.paragraphs
}

// Dimension is the embedding dimension shared by the corpus, or 0 when the
// corpus carries no embeddings.
func (d *Document) Dimension() int {
	return d.dimension
}

func centroid(paragraphs []Paragraph) []float32 {
	var sum []float64
	n := 0
	for _, p := range paragraphs {
		if len(p.Embedding) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(p.Embedding))
		}
		for i, v := range p.Embedding {
			sum[i] += float64(v)
		}
		n++
	}
	if n == 0 {
		return nil
	}
	out := make([]float32, len(sum))
	for i, v := range sum {
		out[i] = float32(v / float64(n))
	}
	return out
}
