package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

func TestPassageRetriever_TopPassageOutscoresNonMatching(t *testing.T) {
	retriever := NewPassageRetriever(testStore(t), DefaultRetrieverConfig())
	q, _ := domain.NewQuery("What is a restriction requirement?", nil)

	passages, err := retriever.Retrieve(context.Background(), q, []string{"800"})

	require.NoError(t, err)
	require.Len(t, passages, 3)
	assert.Equal(t, "800-0", passages[0].Paragraph.ID)
	assert.Greater(t, passages[0].Score, passages[len(passages)-1].Score)
	assert.Equal(t, domain.ScoringMethodLexical, passages[0].Method)
}

func TestPassageRetriever_OnlyRequestedChapters(t *testing.T) {
	retriever := NewPassageRetriever(testStore(t), RetrieverConfig{TopK: 10})
	q := domain.Query{Text: "patent term", Embedding: []float32{0.3, 0.3, 0.3}}

	passages, err := retriever.Retrieve(context.Background(), q, []string{"2100", "2700"})

	require.NoError(t, err)
	assert.Len(t, passages, 3)
	for _, p := range passages {
		assert.Contains(t, []string{"2100", "2700"}, p.Paragraph.ChapterID)
	}
}

func TestPassageRetriever_Deterministic(t *testing.T) {
	retriever := NewPassageRetriever(testStore(t), DefaultRetrieverConfig())
	q := domain.Query{Text: "election of species", Embedding: []float32{0.9, 0.1, 0}}
	ids := []string{"800", "2100"}

	first, err := retriever.Retrieve(context.Background(), q, ids)
	require.NoError(t, err)
	second, err := retriever.Retrieve(context.Background(), q, ids)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.ScoringMethodHybrid, first[0].Method)
}

func TestPassageRetriever_TiesBreakByDocumentOrder(t *testing.T) {
	retriever := NewPassageRetriever(testStore(t), RetrieverConfig{TopK: 10})
	q := domain.Query{Text: "xylophone"}

	passages, err := retriever.Retrieve(context.Background(), q, []string{"2100", "800"})

	require.NoError(t, err)
	require.Len(t, passages, 5)
	for i := 1; i < len(passages); i++ {
		assert.Less(t, passages[i-1].Paragraph.Ordinal, passages[i].Paragraph.Ordinal)
	}
}

func TestPassageRetriever_TopKAndMinScore(t *testing.T) {
	q := domain.Query{Text: "restriction requirement", Embedding: []float32{1, 0, 0}}

	passages, err := NewPassageRetriever(testStore(t), RetrieverConfig{TopK: 2}).Retrieve(context.Background(), q, []string{"800", "2100"})
	require.NoError(t, err)
	assert.Len(t, passages, 2)

	passages, err = NewPassageRetriever(testStore(t), RetrieverConfig{TopK: 10, MinScore: 0.9}).Retrieve(context.Background(), q, []string{"800", "2100"})
	require.NoError(t, err)
	require.Len(t, passages, 1, "no padding below the cutoff")
	assert.Equal(t, "800-0", passages[0].Paragraph.ID)
}

func TestPassageRetriever_Errors(t *testing.T) {
	retriever := NewPassageRetriever(testStore(t), RetrieverConfig{MinScore: 0.99})
	q := domain.Query{Text: "xylophone"}

	_, err := retriever.Retrieve(context.Background(), q, []string{"9999"})
	assert.ErrorIs(t, err, domain.ErrUnknownChapter)

	_, err = retriever.Retrieve(context.Background(), q, []string{"800"})
	assert.ErrorIs(t, err, domain.ErrNoPassagesFound)

	_, err = retriever.Retrieve(context.Background(), q, nil)
	assert.ErrorIs(t, err, domain.ErrNoPassagesFound)
}
