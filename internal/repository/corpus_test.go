//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/service"
	"github.com/cloo-solutions/mpedge/internal/testutil"
)

func sampleDocument(t *testing.T) *domain.Document {
	t.Helper()
	doc, err := domain.NewDocument([]domain.Chapter{
		{
			ID:               "800",
			Number:           800,
			Title:            "Restriction of Application",
			Keywords:         []string{"restriction", "election"},
			Summary:          "Restriction and election practice.",
			SummaryEmbedding: []float32{0.9, 0.1, 0},
			Paragraphs: []domain.Paragraph{
				{Text: "A restriction requirement may be made.", Embedding: []float32{1, 0, 0}},
				{Text: "An election of species may be required.", Embedding: []float32{0.8, 0.2, 0}},
			},
		},
		{
			ID:     "2100",
			Number: 2100,
			Title:  "Patentability",
			Paragraphs: []domain.Paragraph{
				{Text: "Obviousness under 35 U.S.C. 103.", Embedding: []float32{0, 1, 0}},
			},
		},
	})
	require.NoError(t, err)
	return doc
}

func TestCorpusRepository_WriteAndLoad(t *testing.T) {
	ctx := context.Background()
	pool := testutil.NewMigratedPool(ctx, t, "../../migrations")
	repo := NewCorpusRepository(pool)

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrCorpusEmpty)

	doc := sampleDocument(t)
	require.NoError(t, repo.WriteCorpus(ctx, doc))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc.Chapters(), loaded.Chapters())
	assert.Equal(t, 3, loaded.Dimension())

	// writing again replaces rather than appends
	require.NoError(t, repo.WriteCorpus(ctx, doc))
	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.ParagraphCount())
}

func TestCorpusRepository_WithoutEmbeddings(t *testing.T) {
	ctx := context.Background()
	pool := testutil.NewMigratedPool(ctx, t, "../../migrations")
	repo := NewCorpusRepository(pool)

	doc, err := domain.NewDocument([]domain.Chapter{
		{ID: "2700", Number: 2700, Title: "Patent Terms", Paragraphs: []domain.Paragraph{{Text: "Patent term adjustment."}}},
	})
	require.NoError(t, err)
	require.NoError(t, repo.WriteCorpus(ctx, doc))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Dimension())
	assert.Nil(t, loaded.Chapters()[0].Keywords)
}

func TestAskLogRepository_CreateAskLog(t *testing.T) {
	ctx := context.Background()
	pool := testutil.NewMigratedPool(ctx, t, "../../migrations")
	repo := NewAskLogRepository(pool)

	id, err := repo.CreateAskLog(ctx, service.AskLogEntry{
		RequestID: "req-800",
		Query:     "What is a restriction requirement?",
		Chapters:  []string{"800"},
		Status:    service.StatusOK,
		Provider:  "huggingface",
		Model:     "mistralai/Mistral-7B-Instruct-v0.2",
		Citations: []service.AskLogCitation{
			{ParagraphID: "800-0", ChapterID: "800", Score: 0.92},
		},
		Failures: []domain.ProviderFailure{
			{Provider: "openai", Model: "gpt-4o-mini", Kind: domain.FailureRateLimited, Message: "429"},
		},
		DurationMs: 840,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	var status, failedKind, requestID string
	err = pool.QueryRow(ctx,
		`SELECT status, failures->0->>'kind', request_id FROM ask_logs WHERE id = $1`, id,
	).Scan(&status, &failedKind, &requestID)
	require.NoError(t, err)
	assert.Equal(t, service.StatusOK, status)
	assert.Equal(t, "rate_limited", failedKind)
	assert.Equal(t, "req-800", requestID)

	_, err = repo.CreateAskLog(ctx, service.AskLogEntry{Query: "q", Status: domain.ErrCodeNoChaptersMatched})
	require.NoError(t, err)

	require.NoError(t, testutil.TruncateAll(ctx, pool))
}
