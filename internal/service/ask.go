package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/logger"
	"github.com/cloo-solutions/mpedge/internal/metrics"
	"github.com/cloo-solutions/mpedge/internal/telemetry"
)

// EmbeddingClient defines the interface for generating query embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChapterCatalog validates explicit chapter scopes and lists all chapters.
type ChapterCatalog interface {
	ChapterIDs() []string
	ValidateChapters(ids []string) error
}

// NoMatchPolicy decides what happens when no chapter clears the threshold.
type NoMatchPolicy string

const (
	NoMatchFail  NoMatchPolicy = "fail"
	NoMatchWiden NoMatchPolicy = "widen"
)

// ParseNoMatchPolicy defaults unknown values to fail.
func ParseNoMatchPolicy(s string) NoMatchPolicy {
	if strings.EqualFold(strings.TrimSpace(s), string(NoMatchWiden)) {
		return NoMatchWiden
	}
	return NoMatchFail
}

// AskConfig controls the ask pipeline.
type AskConfig struct {
	NoMatchPolicy NoMatchPolicy
}

func DefaultAskConfig() AskConfig {
	return AskConfig{NoMatchPolicy: NoMatchFail}
}

// AskInput represents input for the ask operation
type AskInput struct {
	Query     string
	Chapters  []string // explicit scope, bypasses chapter selection
	RequestID string   // stored with the ask log when set
}

// StatusOK is the ask log and metrics status of a successful ask.
const StatusOK = "ok"

// AskService runs query -> chapter selection -> retrieval -> synthesis.
type AskService struct {
	embedder    EmbeddingClient
	catalog     ChapterCatalog
	selector    *ChapterSelector
	retriever   *PassageRetriever
	synthesizer *AnswerSynthesizer
	askLog      AskLogRepository
	metrics     *metrics.Metrics
	log         zerolog.Logger
	cfg         AskConfig
}

// AskServiceDeps bundles the collaborators of AskService. Embedder, AskLog
// and Metrics are optional.
type AskServiceDeps struct {
	Embedder    EmbeddingClient
	Catalog     ChapterCatalog
	Selector    *ChapterSelector
	Retriever   *PassageRetriever
	Synthesizer *AnswerSynthesizer
	AskLog      AskLogRepository
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

func NewAskService(deps AskServiceDeps, cfg AskConfig) *AskService {
	if cfg.NoMatchPolicy == "" {
		cfg.NoMatchPolicy = NoMatchFail
	}
	return &AskService{
		embedder:    deps.Embedder,
		catalog:     deps.Catalog,
		selector:    deps.Selector,
		retriever:   deps.Retriever,
		synthesizer: deps.Synthesizer,
		askLog:      deps.AskLog,
		metrics:     deps.Metrics,
		log:         logger.Component(deps.Logger, "ask"),
		cfg:         cfg,
	}
}

// Ask answers a question. Terminal failures are *domain.DomainError values
// or a *domain.ExhaustedError.
func (s *AskService) Ask(ctx context.Context, input AskInput) (*domain.AnswerResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ask_service.ask", telemetry.SpanAttributes{
		Operation: "ask",
		Chapters:  input.Chapters,
	})
	defer span.End()

	start := time.Now()
	entry := AskLogEntry{Query: strings.TrimSpace(input.Query), RequestID: input.RequestID}

	result, err := s.ask(ctx, input, &entry)

	elapsed := time.Since(start)
	entry.DurationMs = int(elapsed.Milliseconds())
	entry.Status = askStatus(err)
	s.metrics.RecordAsk(entry.Status, elapsed)
	s.recordAskLog(ctx, entry)

	if err != nil {
		switch entry.Status {
		case domain.ErrCodeInternalError:
			span.SetError(err)
			telemetry.CaptureError(ctx, err)
		case domain.ErrCodeAllProvidersExhausted:
			telemetry.CaptureError(ctx, err)
		}
		s.log.Info().Err(err).
			Str("request_id", input.RequestID).
			Str("status", entry.Status).
			Dur("duration", elapsed).
			Msg("ask failed")
		return nil, err
	}

	s.log.Info().
		Str("request_id", input.RequestID).
		Str("provider", result.Provider).
		Strs("chapters", result.Chapters).
		Int("citations", len(result.Citations)).
		Int("recovered_failures", len(result.Failures)).
		Dur("duration", elapsed).
		Msg("ask answered")
	return result, nil
}

func (s *AskService) ask(ctx context.Context, input AskInput, entry *AskLogEntry) (*domain.AnswerResult, error) {
	query, err := domain.NewQuery(input.Query, nil)
	if err != nil {
		return nil, err
	}
	query.Embedding = s.embed(ctx, query.Text)

	chapters, widened, err := s.scope(ctx, query, input.Chapters)
	if err != nil {
		return nil, err
	}
	entry.Chapters = chapters
	entry.ScopeWidened = widened

	passages, err := s.retriever.Retrieve(ctx, query, chapters)
	if err != nil {
		return nil, err
	}

	result, err := s.synthesizer.Synthesize(ctx, query, passages)
	if err != nil {
		var exhausted *domain.ExhaustedError
		if errors.As(err, &exhausted) {
			entry.Failures = exhausted.Failures
		}
		return nil, err
	}

	result.Chapters = chapters
	result.ScopeWidened = widened
	entry.Provider = result.Provider
	entry.Model = result.Model
	entry.Citations = askLogCitations(result.Citations)
	entry.Failures = result.Failures
	return result, nil
}

// embed degrades to lexical-only scoring when no embedder is configured or
// the embedding call fails.
func (s *AskService) embed(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	embedding, err := s.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		s.log.Warn().Err(err).Msg("query embedding failed, using lexical scoring only")
		return nil
	}
	return embedding
}

func (s *AskService) scope(ctx context.Context, q domain.Query, explicit []string) ([]string, bool, error) {
	if ids := dedupeChapterIDs(explicit); len(ids) > 0 {
		if err := s.catalog.ValidateChapters(ids); err != nil {
			return nil, false, err
		}
		return ids, false, nil
	}

	selected, err := s.selector.Select(ctx, q)
	if err == nil {
		return ChapterIDs(selected), false, nil
	}
	if errors.Is(err, domain.ErrNoChaptersMatched) && s.cfg.NoMatchPolicy == NoMatchWiden {
		s.log.Debug().Msg("no chapter matched, widening scope to all chapters")
		return s.catalog.ChapterIDs(), true, nil
	}
	return nil, false, err
}

func (s *AskService) recordAskLog(ctx context.Context, entry AskLogEntry) {
	if s.askLog == nil {
		return
	}
	if _, err := s.askLog.CreateAskLog(context.WithoutCancel(ctx), entry); err != nil {
		s.log.Warn().Err(err).Msg("failed to record ask log")
	}
}

func dedupeChapterIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// askStatus maps an ask error to its status label.
func askStatus(err error) string {
	if err == nil {
		return StatusOK
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return domain.ErrCodeInternalError
}
