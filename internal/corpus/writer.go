package corpus

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// FileWriter stores the document as a JSON snapshot on disk.
type FileWriter struct {
	Path           string
	EmbeddingModel string
}

func (w FileWriter) WriteCorpus(ctx context.Context, doc *domain.Document) error {
	if dir := filepath.Dir(w.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, NewSnapshot(doc, w.EmbeddingModel, time.Now())); err != nil {
		return err
	}
	if err := os.WriteFile(w.Path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (w FileWriter) String() string {
	return "file:" + w.Path
}

// ObjectPutter is the subset of the S3 client used to upload snapshots.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// S3Writer stores the document as a JSON snapshot in object storage.
type S3Writer struct {
	Objects        ObjectPutter
	Key            string
	EmbeddingModel string
}

func (w S3Writer) WriteCorpus(ctx context.Context, doc *domain.Document) error {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, NewSnapshot(doc, w.EmbeddingModel, time.Now())); err != nil {
		return err
	}
	return w.Objects.PutObject(ctx, w.Key, buf.Bytes(), "application/json")
}

func (w S3Writer) String() string {
	return "s3:" + w.Key
}
