package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/corpus"
	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/llm"
	"github.com/cloo-solutions/mpedge/internal/metrics"
)

// MockEmbeddingClient is a mock for query embeddings
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockAskLogRepository is a mock for ask log persistence
type MockAskLogRepository struct {
	mock.Mock
}

func (m *MockAskLogRepository) CreateAskLog(ctx context.Context, entry AskLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

// scriptedProvider returns a fixed answer or error and counts calls.
type scriptedProvider struct {
	name   string
	model  string
	answer string
	err    error
	delay  time.Duration

	mu       sync.Mutex
	calls    int
	requests []llm.Request
}

func (p *scriptedProvider) Name() string  { return p.name }
func (p *scriptedProvider) Model() string { return p.model }

func (p *scriptedProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	p.calls++
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return p.answer, p.err
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func chain(providers ...*scriptedProvider) []ConfiguredProvider {
	out := make([]ConfiguredProvider, len(providers))
	for i, p := range providers {
		out[i] = ConfiguredProvider{
			Spec:     domain.ProviderSpec{Name: p.name, Kind: domain.ProviderKindOpenAI, Model: p.model},
			Provider: p,
		}
	}
	return out
}

// Embedding axes: restriction, patentability, patent term.
func testStore(t *testing.T) *corpus.Store {
	t.Helper()
	doc, err := domain.NewDocument([]domain.Chapter{
		{
			ID:       "800",
			Number:   800,
			Title:    "Restriction of Application",
			Keywords: []string{"restriction", "election", "requirement", "divisional"},
			Paragraphs: []domain.Paragraph{
				{Text: "A restriction requirement may be made when two or more independent and distinct inventions are claimed in a single application.", Embedding: []float32{0.95, 0.05, 0}},
				{Text: "An election of species may be required when the claims are directed to patentably distinct species.", Embedding: []float32{0.8, 0.2, 0}},
				{Text: "Fees for divisional applications are set forth in 37 CFR 1.16.", Embedding: []float32{0.5, 0, 0.5}},
			},
		},
		{
			ID:       "2100",
			Number:   2100,
			Title:    "Patentability",
			Keywords: []string{"obviousness", "novelty", "103", "102"},
			Paragraphs: []domain.Paragraph{
				{Text: "Obviousness is determined under 35 U.S.C. 103 using the Graham factors.", Embedding: []float32{0, 1, 0}},
				{Text: "Novelty under 35 U.S.C. 102 requires that each element be found in a single prior art reference.", Embedding: []float32{0.1, 0.9, 0}},
			},
		},
		{
			ID:       "2700",
			Number:   2700,
			Title:    "Patent Terms and Extensions",
			Keywords: []string{"term", "adjustment", "extension"},
			Paragraphs: []domain.Paragraph{
				{Text: "Patent term adjustment compensates for delays by the Office during examination.", Embedding: []float32{0, 0, 1}},
			},
		},
	})
	require.NoError(t, err)
	return corpus.NewStore(doc)
}

type askFixture struct {
	store   *corpus.Store
	metrics *metrics.Metrics
	service *AskService
}

func newAskFixture(t *testing.T, embedder EmbeddingClient, askLog AskLogRepository, cfg AskConfig, providers ...*scriptedProvider) *askFixture {
	t.Helper()
	store := testStore(t)
	m := metrics.New()
	synth := NewAnswerSynthesizer(chain(providers...), DefaultSynthesizerConfig(), zerolog.Nop(), m)

	svc := NewAskService(AskServiceDeps{
		Embedder:    embedder,
		Catalog:     store,
		Selector:    NewChapterSelector(store, DefaultSelectorConfig()),
		Retriever:   NewPassageRetriever(store, DefaultRetrieverConfig()),
		Synthesizer: synth,
		AskLog:      askLog,
		Metrics:     m,
		Logger:      zerolog.Nop(),
	}, cfg)

	return &askFixture{store: store, metrics: m, service: svc}
}
