package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// IndexEntry describes one chapter in the ingest index file.
type IndexEntry struct {
	ID       string   `yaml:"id"`
	Number   int      `yaml:"number"`
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
	Summary  string   `yaml:"summary"`
	File     string   `yaml:"file"`
}

// Index is the chapter index consumed by ingestion.
type Index struct {
	Chapters []IndexEntry `yaml:"chapters"`

	dir string
}

// RawChapter is a chapter with its extracted plain text.
type RawChapter struct {
	ID       string
	Number   int
	Title    string
	Keywords []string
	Summary  string
	Text     string
}

// LoadIndex reads a YAML chapter index. Relative chapter files resolve
// against the index file's directory.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chapter index: %w", err)
	}

	var idx Index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, domain.ErrInvalidCorpus.WithCause(fmt.Errorf("failed to parse chapter index: %w", err))
	}
	idx.dir = filepath.Dir(path)

	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return &idx, nil
}

// Validate checks required fields and unique ids.
func (idx *Index) Validate() error {
	if len(idx.Chapters) == 0 {
		return domain.ErrCorpusEmpty
	}
	seen := make(map[string]struct{}, len(idx.Chapters))
	for i, e := range idx.Chapters {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return domain.ErrInvalidCorpus.WithCause(fmt.Errorf("index entry %d has no id", i))
		}
		if e.File == "" {
			return domain.ErrInvalidCorpus.WithCause(fmt.Errorf("chapter %s has no file", id))
		}
		if _, dup := seen[id]; dup {
			return domain.ErrInvalidCorpus.WithCause(fmt.Errorf("duplicate chapter id %q", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ReadChapters loads the text file of every chapter in index order.
func (idx *Index) ReadChapters() ([]RawChapter, error) {
	out := make([]RawChapter, 0, len(idx.Chapters))
	for _, e := range idx.Chapters {
		path := e.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(idx.dir, path)
		}
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read chapter %s: %w", e.ID, err)
		}
		out = append(out, RawChapter{
			ID:       strings.TrimSpace(e.ID),
			Number:   e.Number,
			Title:    strings.TrimSpace(e.Title),
			Keywords: e.Keywords,
			Summary:  strings.TrimSpace(e.Summary),
			Text:     string(text),
		})
	}
	return out, nil
}
