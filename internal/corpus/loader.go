package corpus

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// Loader produces the corpus document from some backing source.
type Loader interface {
	Load(ctx context.Context) (*domain.Document, error)
}

// FileLoader reads a JSON snapshot from disk.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(ctx context.Context) (*domain.Document, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	snap, err := ReadSnapshot(f)
	if err != nil {
		return nil, err
	}
	return snap.Document()
}

// ObjectGetter is the subset of the S3 client used to fetch snapshots.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// S3Loader reads a JSON snapshot from object storage.
type S3Loader struct {
	Objects ObjectGetter
	Key     string
}

func (l S3Loader) Load(ctx context.Context) (*domain.Document, error) {
	data, err := l.Objects.GetObject(ctx, l.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch corpus snapshot: %w", err)
	}
	snap, err := ReadSnapshot(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return snap.Document()
}
