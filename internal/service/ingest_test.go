package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/corpus"
	"github.com/cloo-solutions/mpedge/internal/domain"
)

// MockBatchEmbedder returns one two-dimensional vector per text
type MockBatchEmbedder struct {
	mock.Mock
}

func (m *MockBatchEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockCorpusWriter is a mock ingestion sink
type MockCorpusWriter struct {
	mock.Mock
}

func (m *MockCorpusWriter) WriteCorpus(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

// lengthEmbedder embeds each text as (len(text), 1)
type lengthEmbedder struct {
	batches [][]string
}

func (e *lengthEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	e.batches = append(e.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func rawChapters() []corpus.RawChapter {
	return []corpus.RawChapter{
		{
			ID:       "800",
			Number:   800,
			Title:    "Restriction of Application",
			Keywords: []string{"restriction"},
			Summary:  "Restriction and election practice.",
			Text: "801 Introduction\n\n" +
				"A restriction requirement may be made between independent and distinct inventions.\n\n" +
				"An election of species may be required when claims are directed to distinct species.",
		},
		{
			ID:     "2700",
			Number: 2700,
			Title:  "Patent Terms and Extensions",
			Text:   "Patent term adjustment compensates for delays by the Office during examination.",
		},
	}
}

func TestIngestService_Build(t *testing.T) {
	embedder := &lengthEmbedder{}

	svc := NewIngestService(embedder, DefaultIngestConfig(), zerolog.Nop())
	doc, err := svc.Build(context.Background(), rawChapters())

	require.NoError(t, err)
	require.Len(t, doc.Chapters(), 2)

	restriction := doc.Chapters()[0]
	require.Len(t, restriction.Paragraphs, 2)
	assert.Equal(t, "800-0", restriction.Paragraphs[0].ID)
	assert.Equal(t, "801 Introduction A restriction requirement may be made between independent and distinct inventions.", restriction.Paragraphs[0].Text)
	assert.NotEmpty(t, restriction.Paragraphs[0].Embedding)
	assert.Equal(t, []float32{float32(len("Restriction of Application Restriction and election practice.")), 1}, restriction.SummaryEmbedding)

	term := doc.Chapters()[1]
	assert.Nil(t, term.SummaryEmbedding)
	assert.Equal(t, 2, term.Paragraphs[0].Ordinal)
	assert.Equal(t, 2, doc.Dimension())
	assert.Len(t, embedder.batches, 2, "one batch per chapter")
}

func TestIngestService_BuildWithoutEmbedder(t *testing.T) {
	svc := NewIngestService(nil, DefaultIngestConfig(), zerolog.Nop())

	doc, err := svc.Build(context.Background(), rawChapters())

	require.NoError(t, err)
	assert.Equal(t, 3, doc.ParagraphCount())
	assert.Equal(t, 0, doc.Dimension())
}

func TestIngestService_BuildErrors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		embedder := new(MockBatchEmbedder)
		embedder.On("GenerateEmbeddings", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

		_, err := NewIngestService(embedder, DefaultIngestConfig(), zerolog.Nop()).Build(context.Background(), rawChapters())

		assert.ErrorContains(t, err, "failed to embed chapter 800")
	})

	t.Run("embedding count mismatch", func(t *testing.T) {
		embedder := new(MockBatchEmbedder)
		embedder.On("GenerateEmbeddings", mock.Anything, mock.Anything).Return([][]float32{{1, 0}}, nil)

		_, err := NewIngestService(embedder, DefaultIngestConfig(), zerolog.Nop()).Build(context.Background(), rawChapters())

		assert.ErrorContains(t, err, "got 1 embeddings")
	})

	t.Run("no chapters", func(t *testing.T) {
		_, err := NewIngestService(nil, DefaultIngestConfig(), zerolog.Nop()).Build(context.Background(), nil)

		assert.ErrorIs(t, err, domain.ErrCorpusEmpty)
	})
}

func TestIngestService_RunWritesEverySink(t *testing.T) {
	first := new(MockCorpusWriter)
	first.On("WriteCorpus", mock.Anything, mock.AnythingOfType("*domain.Document")).Return(nil)
	path := filepath.Join(t.TempDir(), "out", "corpus.json")

	svc := NewIngestService(nil, DefaultIngestConfig(), zerolog.Nop())
	doc, err := svc.Run(context.Background(), rawChapters(), first, corpus.FileWriter{Path: path})
	require.NoError(t, err)
	first.AssertExpectations(t)

	loaded, err := corpus.FileLoader{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, doc.ParagraphCount(), loaded.ParagraphCount())
}

func TestIngestService_RunSinkFailure(t *testing.T) {
	sink := new(MockCorpusWriter)
	sink.On("WriteCorpus", mock.Anything, mock.Anything).Return(errors.New("bucket missing"))

	_, err := NewIngestService(nil, DefaultIngestConfig(), zerolog.Nop()).Run(context.Background(), rawChapters(), sink)

	assert.ErrorContains(t, err, "bucket missing")
}

func TestIngestService_RunLogsSinkNames(t *testing.T) {
	var buf bytes.Buffer
	sink := new(MockCorpusWriter)
	sink.On("WriteCorpus", mock.Anything, mock.Anything).Return(nil)
	path := filepath.Join(t.TempDir(), "corpus.json")

	_, err := NewIngestService(nil, DefaultIngestConfig(), zerolog.New(&buf)).
		Run(context.Background(), rawChapters(), sink, corpus.FileWriter{Path: path})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"sink":"*service.MockCorpusWriter"`)
	assert.Contains(t, buf.String(), `"sink":"file:`+path+`"`)
}

func TestSinkName(t *testing.T) {
	assert.Equal(t, "s3:corpus/mpep.json", sinkName(corpus.S3Writer{Key: "corpus/mpep.json"}))
	assert.Equal(t, "*service.MockCorpusWriter", sinkName(new(MockCorpusWriter)))
}
