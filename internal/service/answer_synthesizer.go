package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/llm"
	"github.com/cloo-solutions/mpedge/internal/logger"
	"github.com/cloo-solutions/mpedge/internal/metrics"
	"github.com/cloo-solutions/mpedge/internal/telemetry"
)

// SynthesizerConfig controls answer generation.
type SynthesizerConfig struct {
	ContextBudgetChars int
	AttemptTimeout     time.Duration
	MaxTokens          int
	Temperature        float32
}

// DefaultSynthesizerConfig returns the default answer generation settings.
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		ContextBudgetChars: 6000,
		AttemptTimeout:     30 * time.Second,
		MaxTokens:          512,
		Temperature:        0.2,
	}
}

// ConfiguredProvider pairs a provider client with its chain entry.
type ConfiguredProvider struct {
	Spec     domain.ProviderSpec
	Provider llm.Provider
}

// AnswerSynthesizer builds the context block and walks the provider chain
// until one provider answers.
type AnswerSynthesizer struct {
	chain   []ConfiguredProvider
	cfg     SynthesizerConfig
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewAnswerSynthesizer(chain []ConfiguredProvider, cfg SynthesizerConfig, log zerolog.Logger, m *metrics.Metrics) *AnswerSynthesizer {
	def := DefaultSynthesizerConfig()
	if cfg.ContextBudgetChars <= 0 {
		cfg.ContextBudgetChars = def.ContextBudgetChars
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	return &AnswerSynthesizer{
		chain:   chain,
		cfg:     cfg,
		log:     logger.Component(log, "synthesizer"),
		metrics: m,
	}
}

// Providers returns the chain in attempt order.
func (s *AnswerSynthesizer) Providers() []ConfiguredProvider {
	return s.chain
}

type fallbackPhase int

const (
	phaseTrying fallbackPhase = iota
	phaseDone
	phaseExhausted
)

// fallbackState is one state of the provider fallback machine:
// Trying(index), Done(answer, index) or Exhausted.
type fallbackState struct {
	phase    fallbackPhase
	index    int
	answer   string
	failures []domain.ProviderFailure
}

// attemptOutcome is the result of one provider attempt; failure is nil on
// success.
type attemptOutcome struct {
	answer  string
	failure *domain.ProviderFailure
}

func startFallback(providers int) fallbackState {
	if providers == 0 {
		return fallbackState{phase: phaseExhausted}
	}
	return fallbackState{phase: phaseTrying, index: 0}
}

// next is the pure transition function of the fallback machine. Terminal
// states are returned unchanged.
func (st fallbackState) next(out attemptOutcome, providers int) fallbackState {
	if st.phase != phaseTrying {
		return st
	}
	if out.failure == nil {
		return fallbackState{phase: phaseDone, index: st.index, answer: out.answer, failures: st.failures}
	}

	failures := make([]domain.ProviderFailure, len(st.failures), len(st.failures)+1)
	copy(failures, st.failures)
	failures = append(failures, *out.failure)

	if st.index+1 < providers {
		return fallbackState{phase: phaseTrying, index: st.index + 1, failures: failures}
	}
	return fallbackState{phase: phaseExhausted, index: st.index, failures: failures}
}

// Synthesize answers the query from the passages. The citations of the result
// are exactly the passages that made it into the context block.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, q domain.Query, passages []domain.ScoredPassage) (*domain.AnswerResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "answer_synthesizer.synthesize", telemetry.SpanAttributes{
		Operation: "synthesize_answer",
	})
	defer span.End()

	if len(passages) == 0 {
		return nil, domain.ErrNoPassagesFound
	}

	contextBlock, citations := buildContext(passages, s.cfg.ContextBudgetChars)

	state := startFallback(len(s.chain))
	for state.phase == phaseTrying {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("answer synthesis cancelled: %w", err)
		}
		entry := s.chain[state.index]
		out := s.attempt(ctx, entry, q, contextBlock)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("answer synthesis cancelled: %w", err)
		}
		state = state.next(out, len(s.chain))
	}

	if state.phase == phaseExhausted {
		err := &domain.ExhaustedError{Failures: state.failures}
		span.SetError(err)
		s.log.Error().Int("attempts", len(state.failures)).Msg("all providers failed")
		return nil, err
	}

	winner := s.chain[state.index]
	return &domain.AnswerResult{
		Answer:    state.answer,
		Citations: citations,
		Provider:  winner.Spec.Name,
		Model:     winner.Provider.Model(),
		Failures:  state.failures,
	}, nil
}

func (s *AnswerSynthesizer) attempt(ctx context.Context, entry ConfiguredProvider, q domain.Query, contextBlock string) attemptOutcome {
	name, model := entry.Spec.Name, entry.Provider.Model()

	ctx, span := telemetry.StartSpan(ctx, "provider.generate", telemetry.SpanAttributes{
		Operation: "generate",
		Provider:  name,
		Model:     model,
	})
	defer span.End()

	timeout := entry.Spec.Timeout
	if timeout <= 0 {
		timeout = s.cfg.AttemptTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := llm.Request{Query: q.Text, Context: contextBlock, Params: s.params(entry.Spec)}

	start := time.Now()
	answer, err := generate(attemptCtx, entry.Provider, req)
	elapsed := time.Since(start)

	// an answer that arrives after the deadline still counts as a timeout
	if err == nil && attemptCtx.Err() != nil {
		err = attemptCtx.Err()
	}
	if err == nil && strings.TrimSpace(answer) == "" {
		err = llm.ErrEmptyAnswer
	}
	if err == nil {
		s.metrics.RecordProviderAttempt(name, model, metrics.OutcomeSuccess, elapsed)
		s.log.Debug().Str("provider", name).Str("model", model).Dur("duration", elapsed).Msg("provider answered")
		return attemptOutcome{answer: strings.TrimSpace(answer)}
	}

	kind := llm.Classify(err)
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		kind = domain.FailureTimeout
	}
	failure := domain.ProviderFailure{Provider: name, Model: model, Kind: kind, Message: err.Error()}

	s.metrics.RecordProviderAttempt(name, model, string(kind), elapsed)
	s.log.Warn().
		Err(err).
		Str("provider", name).
		Str("model", model).
		Str("kind", string(kind)).
		Dur("duration", elapsed).
		Msg("provider attempt failed, falling back")
	telemetry.AddBreadcrumb(ctx, "provider", failure.String())
	span.SetData("failure", string(kind))

	return attemptOutcome{failure: &failure}
}

type generation struct {
	answer string
	err    error
}

// generate returns when the provider answers or ctx is done, whichever comes
// first. A provider that ignores ctx is left to finish in the background.
func generate(ctx context.Context, p llm.Provider, req llm.Request) (string, error) {
	done := make(chan generation, 1)
	go func() {
		answer, err := p.Generate(ctx, req)
		done <- generation{answer: answer, err: err}
	}()

	select {
	case g := <-done:
		return g.answer, g.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *AnswerSynthesizer) params(spec domain.ProviderSpec) llm.Params {
	p := llm.Params{MaxTokens: s.cfg.MaxTokens, Temperature: s.cfg.Temperature}
	if spec.MaxTokens > 0 {
		p.MaxTokens = spec.MaxTokens
	}
	if spec.Temperature > 0 {
		p.Temperature = spec.Temperature
	}
	return p
}

// buildContext renders passages as numbered blocks within budget characters.
// Over budget, the lowest-scoring passages are dropped first while the order
// of the rest is preserved; a single remaining passage is truncated, and its
// citation carries the truncated text.
func buildContext(passages []domain.ScoredPassage, budget int) (string, []domain.ScoredPassage) {
	kept := make([]domain.ScoredPassage, len(passages))
	copy(kept, passages)

	for len(kept) > 1 && contextLength(kept) > budget {
		kept = dropLowest(kept)
	}

	blocks := make([]string, len(kept))
	for i, p := range kept {
		blocks[i] = contextBlock(i+1, p.Paragraph.ChapterID, p.Paragraph.Text)
	}

	if len(kept) == 1 && len([]rune(blocks[0])) > budget {
		header := []rune(contextBlock(1, kept[0].Paragraph.ChapterID, ""))
		room := max(budget-len(header), 0)
		text := []rune(kept[0].Paragraph.Text)
		if room < len(text) {
			text = text[:room]
		}
		kept[0].Paragraph.Text = strings.TrimSpace(string(text))
		kept[0].Truncated = true
		blocks[0] = string(header) + kept[0].Paragraph.Text
	}

	return strings.Join(blocks, "\n\n"), kept
}

func contextBlock(n int, chapterID, text string) string {
	return fmt.Sprintf("[%d] (Chapter %s) %s", n, chapterID, text)
}

func contextLength(passages []domain.ScoredPassage) int {
	total := 0
	for i, p := range passages {
		if i > 0 {
			total += 2
		}
		total += len([]rune(contextBlock(i+1, p.Paragraph.ChapterID, p.Paragraph.Text)))
	}
	return total
}

// dropLowest removes the lowest-scoring passage; among equal scores the one
// latest in the list goes first.
func dropLowest(passages []domain.ScoredPassage) []domain.ScoredPassage {
	idx := make([]int, len(passages))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := passages[idx[a]], passages[idx[b]]
		if pa.Score != pb.Score {
			return pa.Score < pb.Score
		}
		return idx[a] > idx[b]
	})
	drop := idx[0]

	out := make([]domain.ScoredPassage, 0, len(passages)-1)
	out = append(out, passages[:drop]...)
	return append(out, passages[drop+1:]...)
}
