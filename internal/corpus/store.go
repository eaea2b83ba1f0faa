// Package corpus holds the loaded, read-only document store.
package corpus

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// Store serves lookups over an immutable document. It is safe for
// concurrent use without locking since nothing mutates after Open.
type Store struct {
	doc *domain.Document
}

// NewStore wraps an already built document.
func NewStore(doc *domain.Document) *Store {
	return &Store{doc: doc}
}

// Open loads the document once through the loader.
func Open(ctx context.Context, loader Loader) (*Store, error) {
	doc, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewStore(doc), nil
}

// Document returns the underlying document.
func (s *Store) Document() *domain.Document {
	return s.doc
}

// Chapters returns every chapter in document order.
func (s *Store) Chapters() []domain.Chapter {
	return s.doc.Chapters()
}

// Chapter looks up a chapter by id.
func (s *Store) Chapter(id string) (*domain.Chapter, error) {
	ch, ok := s.doc.Chapter(id)
	if !ok {
		return nil, domain.ErrChapterNotFound.WithCause(fmt.Errorf("chapter %s", id))
	}
	return ch, nil
}

// ChapterIDs returns all chapter ids in document order.
func (s *Store) ChapterIDs() []string {
	chapters := s.doc.Chapters()
	ids := make([]string, len(chapters))
	for i := range chapters {
		ids[i] = chapters[i].ID
	}
	return ids
}

// ValidateChapters rejects ids that are not part of the corpus.
func (s *Store) ValidateChapters(ids []string) error {
	for _, id := range ids {
		if _, ok := s.doc.Chapter(id); !ok {
			return domain.ErrUnknownChapter.WithCause(fmt.Errorf("chapter %s", id))
		}
	}
	return nil
}

// Candidates returns the paragraphs of the given chapters in document order.
// Duplicate ids are ignored.
func (s *Store) Candidates(ids []string) ([]domain.Paragraph, error) {
	if err := s.ValidateChapters(ids); err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var out []domain.Paragraph
	for _, ch := range s.doc.Chapters() {
		if _, ok := wanted[ch.ID]; !ok {
			continue
		}
		out = append(out, ch.Paragraphs...)
	}
	return out, nil
}

// Stats reports corpus size.
func (s *Store) Stats() (chapters, paragraphs int) {
	return len(s.doc.Chapters()), s.doc.ParagraphCount()
}
