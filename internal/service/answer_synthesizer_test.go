package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/llm"
	"github.com/cloo-solutions/mpedge/internal/metrics"
)

func passage(id, chapter string, ordinal int, score float64, text string) domain.ScoredPassage {
	return domain.ScoredPassage{
		Paragraph: domain.Paragraph{ID: id, ChapterID: chapter, Ordinal: ordinal, Text: text},
		Score:     score,
		Method:    domain.ScoringMethodLexical,
	}
}

func samplePassages() []domain.ScoredPassage {
	return []domain.ScoredPassage{
		passage("800-0", "800", 0, 0.9, "A restriction requirement may be made between distinct inventions."),
		passage("800-1", "800", 1, 0.4, "An election of species may be required."),
	}
}

func TestFallbackState_Transitions(t *testing.T) {
	rateLimited := &domain.ProviderFailure{Provider: "a", Kind: domain.FailureRateLimited}
	unavailable := &domain.ProviderFailure{Provider: "b", Kind: domain.FailureUnavailable}

	t.Run("empty chain is exhausted", func(t *testing.T) {
		st := startFallback(0)
		assert.Equal(t, phaseExhausted, st.phase)
		assert.Empty(t, st.failures)
	})

	t.Run("failure advances", func(t *testing.T) {
		st := startFallback(2).next(attemptOutcome{failure: rateLimited}, 2)
		assert.Equal(t, phaseTrying, st.phase)
		assert.Equal(t, 1, st.index)
		assert.Len(t, st.failures, 1)
	})

	t.Run("success after failure", func(t *testing.T) {
		st := startFallback(2).
			next(attemptOutcome{failure: rateLimited}, 2).
			next(attemptOutcome{answer: "ok"}, 2)
		assert.Equal(t, phaseDone, st.phase)
		assert.Equal(t, 1, st.index)
		assert.Equal(t, "ok", st.answer)
		assert.Equal(t, []domain.ProviderFailure{*rateLimited}, st.failures)
	})

	t.Run("last failure exhausts", func(t *testing.T) {
		st := startFallback(2).
			next(attemptOutcome{failure: rateLimited}, 2).
			next(attemptOutcome{failure: unavailable}, 2)
		assert.Equal(t, phaseExhausted, st.phase)
		assert.Equal(t, []domain.ProviderFailure{*rateLimited, *unavailable}, st.failures)
	})

	t.Run("terminal states are absorbing", func(t *testing.T) {
		done := startFallback(1).next(attemptOutcome{answer: "x"}, 1)
		assert.Equal(t, done, done.next(attemptOutcome{failure: unavailable}, 1))
	})

	t.Run("transitions do not share history", func(t *testing.T) {
		base := startFallback(3).next(attemptOutcome{failure: rateLimited}, 3)
		a := base.next(attemptOutcome{failure: unavailable}, 3)
		b := base.next(attemptOutcome{failure: rateLimited}, 3)
		assert.Equal(t, domain.FailureUnavailable, a.failures[1].Kind)
		assert.Equal(t, domain.FailureRateLimited, b.failures[1].Kind)
		assert.Len(t, base.failures, 1)
	})
}

func TestAnswerSynthesizer_FallsBackOnRateLimit(t *testing.T) {
	var logs bytes.Buffer
	m := metrics.New()
	a := &scriptedProvider{name: "a", model: "gpt-4o-mini", err: llm.NewProviderError(domain.FailureRateLimited, 429, errors.New("slow down"))}
	b := &scriptedProvider{name: "b", model: "mistral", answer: " Restriction requires an election [1]. "}

	synth := NewAnswerSynthesizer(chain(a, b), DefaultSynthesizerConfig(), zerolog.New(&logs), m)
	result, err := synth.Synthesize(context.Background(), domain.Query{Text: "What is a restriction requirement?"}, samplePassages())

	require.NoError(t, err)
	assert.Equal(t, "b", result.Provider)
	assert.Equal(t, "mistral", result.Model)
	assert.Equal(t, "Restriction requires an election [1].", result.Answer)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "a", result.Failures[0].Provider)
	assert.Equal(t, domain.FailureRateLimited, result.Failures[0].Kind)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderAttemptsTotal.WithLabelValues("a", "gpt-4o-mini", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderAttemptsTotal.WithLabelValues("b", "mistral", metrics.OutcomeSuccess)))
	assert.Contains(t, logs.String(), "provider attempt failed")
	assert.Contains(t, logs.String(), `"kind":"rate_limited"`)

	assert.Equal(t, 1, a.Calls())
	assert.Equal(t, 1, b.Calls())
	assert.Equal(t, a.requests[0].Context, b.requests[0].Context, "every provider sees the same context")
}

func TestAnswerSynthesizer_AllProvidersUnavailable(t *testing.T) {
	a := &scriptedProvider{name: "a", model: "m1", err: llm.NewProviderError(domain.FailureUnavailable, 503, errors.New("down"))}
	b := &scriptedProvider{name: "b", model: "m2", err: errors.New("connection refused")}
	c := &scriptedProvider{name: "c", model: "m3", err: llm.NewProviderError(domain.FailureUnavailable, 500, errors.New("boom"))}

	synth := NewAnswerSynthesizer(chain(a, b, c), DefaultSynthesizerConfig(), zerolog.Nop(), nil)
	result, err := synth.Synthesize(context.Background(), domain.Query{Text: "q"}, samplePassages())

	assert.Nil(t, result)
	require.ErrorIs(t, err, domain.ErrAllProvidersExhausted)
	var exhausted *domain.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Failures, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, exhausted.Failures[i].Provider)
		assert.Equal(t, domain.FailureUnavailable, exhausted.Failures[i].Kind)
	}
}

func TestAnswerSynthesizer_EmptyChain(t *testing.T) {
	synth := NewAnswerSynthesizer(nil, DefaultSynthesizerConfig(), zerolog.Nop(), nil)

	_, err := synth.Synthesize(context.Background(), domain.Query{Text: "q"}, samplePassages())

	var exhausted *domain.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Empty(t, exhausted.Failures)
}

func TestAnswerSynthesizer_EmptyAnswerIsInvalidResponse(t *testing.T) {
	a := &scriptedProvider{name: "a", model: "m", answer: "  \n "}
	b := &scriptedProvider{name: "b", model: "m", answer: "fine"}

	result, err := NewAnswerSynthesizer(chain(a, b), DefaultSynthesizerConfig(), zerolog.Nop(), nil).
		Synthesize(context.Background(), domain.Query{Text: "q"}, samplePassages())

	require.NoError(t, err)
	assert.Equal(t, "b", result.Provider)
	assert.Equal(t, domain.FailureInvalidResponse, result.Failures[0].Kind)
}

func TestAnswerSynthesizer_PerAttemptTimeout(t *testing.T) {
	slow := &scriptedProvider{name: "slow", model: "m", answer: "late", delay: time.Second}
	fast := &scriptedProvider{name: "fast", model: "m", answer: "quick"}
	providers := chain(slow, fast)
	providers[0].Spec.Timeout = 20 * time.Millisecond

	result, err := NewAnswerSynthesizer(providers, DefaultSynthesizerConfig(), zerolog.Nop(), nil).
		Synthesize(context.Background(), domain.Query{Text: "q"}, samplePassages())

	require.NoError(t, err)
	assert.Equal(t, "fast", result.Provider)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, domain.FailureTimeout, result.Failures[0].Kind)
}

// stubbornProvider ignores its context and sleeps through the deadline.
type stubbornProvider struct {
	delay  time.Duration
	answer string
}

func (p *stubbornProvider) Name() string  { return "stubborn" }
func (p *stubbornProvider) Model() string { return "m" }

func (p *stubbornProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	time.Sleep(p.delay)
	return p.answer, nil
}

// deadlineProvider answers only once its context has expired.
type deadlineProvider struct{}

func (deadlineProvider) Name() string  { return "deadline" }
func (deadlineProvider) Model() string { return "m" }

func (deadlineProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	<-ctx.Done()
	return "too late", nil
}

func TestAnswerSynthesizer_TimeoutDoesNotWaitForProvider(t *testing.T) {
	fast := &scriptedProvider{name: "fast", model: "m", answer: "quick"}
	providers := []ConfiguredProvider{
		{Spec: domain.ProviderSpec{Name: "stubborn", Timeout: 20 * time.Millisecond}, Provider: &stubbornProvider{delay: 500 * time.Millisecond, answer: "late"}},
		chain(fast)[0],
	}

	start := time.Now()
	result, err := NewAnswerSynthesizer(providers, DefaultSynthesizerConfig(), zerolog.Nop(), nil).
		Synthesize(context.Background(), domain.Query{Text: "q"}, samplePassages())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 300*time.Millisecond)
	assert.Equal(t, "fast", result.Provider)
	assert.Equal(t, "quick", result.Answer)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "stubborn", result.Failures[0].Provider)
	assert.Equal(t, domain.FailureTimeout, result.Failures[0].Kind)
}

func TestAnswerSynthesizer_AnswerAfterDeadlineIsTimeout(t *testing.T) {
	providers := []ConfiguredProvider{
		{Spec: domain.ProviderSpec{Name: "deadline", Timeout: 10 * time.Millisecond}, Provider: deadlineProvider{}},
	}

	_, err := NewAnswerSynthesizer(providers, DefaultSynthesizerConfig(), zerolog.Nop(), nil).
		Synthesize(context.Background(), domain.Query{Text: "q"}, samplePassages())

	var exhausted *domain.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Failures, 1)
	assert.Equal(t, domain.FailureTimeout, exhausted.Failures[0].Kind)
}

func TestAnswerSynthesizer_ParentCancellationStopsChain(t *testing.T) {
	a := &scriptedProvider{name: "a", model: "m", answer: "never"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnswerSynthesizer(chain(a), DefaultSynthesizerConfig(), zerolog.Nop(), nil).
		Synthesize(ctx, domain.Query{Text: "q"}, samplePassages())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, a.Calls())
}

func TestAnswerSynthesizer_CancellationDuringAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &scriptedProvider{name: "a", model: "m", delay: time.Second}
	b := &scriptedProvider{name: "b", model: "m", answer: "never"}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := NewAnswerSynthesizer(chain(a, b), DefaultSynthesizerConfig(), zerolog.Nop(), nil).
		Synthesize(ctx, domain.Query{Text: "q"}, samplePassages())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, b.Calls())
}

func TestAnswerSynthesizer_CitationsAreContextPassages(t *testing.T) {
	a := &scriptedProvider{name: "a", model: "m", answer: "answer"}
	passages := samplePassages()

	result, err := NewAnswerSynthesizer(chain(a), DefaultSynthesizerConfig(), zerolog.Nop(), nil).
		Synthesize(context.Background(), domain.Query{Text: "q"}, passages)

	require.NoError(t, err)
	assert.Equal(t, passages, result.Citations)
	assert.Equal(t, []string{"800-0", "800-1"}, result.CitationIDs())
	assert.Equal(t,
		"[1] (Chapter 800) A restriction requirement may be made between distinct inventions.\n\n[2] (Chapter 800) An election of species may be required.",
		a.requests[0].Context)
}

func TestAnswerSynthesizer_ProviderParams(t *testing.T) {
	a := &scriptedProvider{name: "a", model: "m", answer: "answer"}
	providers := chain(a)
	providers[0].Spec.MaxTokens = 64
	providers[0].Spec.Temperature = 0.7

	_, err := NewAnswerSynthesizer(providers, SynthesizerConfig{MaxTokens: 300, Temperature: 0.1}, zerolog.Nop(), nil).
		Synthesize(context.Background(), domain.Query{Text: "q"}, samplePassages())

	require.NoError(t, err)
	assert.Equal(t, llm.Params{MaxTokens: 64, Temperature: 0.7}, a.requests[0].Params)
}

func TestAnswerSynthesizer_NoPassages(t *testing.T) {
	a := &scriptedProvider{name: "a", model: "m", answer: "answer"}
	_, err := NewAnswerSynthesizer(chain(a), DefaultSynthesizerConfig(), zerolog.Nop(), nil).
		Synthesize(context.Background(), domain.Query{Text: "q"}, nil)

	assert.ErrorIs(t, err, domain.ErrNoPassagesFound)
	assert.Equal(t, 0, a.Calls())
}

func TestBuildContext(t *testing.T) {
	t.Run("within budget keeps everything", func(t *testing.T) {
		text, kept := buildContext(samplePassages(), 6000)
		assert.Len(t, kept, 2)
		assert.True(t, strings.HasPrefix(text, "[1] (Chapter 800) "))
	})

	t.Run("drops lowest score first and keeps order", func(t *testing.T) {
		passages := []domain.ScoredPassage{
			passage("p0", "800", 0, 0.9, strings.Repeat("a", 40)),
			passage("p1", "800", 1, 0.2, strings.Repeat("b", 40)),
			passage("p2", "2100", 2, 0.5, strings.Repeat("c", 40)),
		}
		text, kept := buildContext(passages, 140)

		require.Len(t, kept, 2)
		assert.Equal(t, "p0", kept[0].Paragraph.ID)
		assert.Equal(t, "p2", kept[1].Paragraph.ID)
		assert.Contains(t, text, "[2] (Chapter 2100) ")
		assert.LessOrEqual(t, len([]rune(text)), 140)
	})

	t.Run("truncates a single oversized passage", func(t *testing.T) {
		passages := []domain.ScoredPassage{
			passage("p0", "800", 0, 0.9, strings.Repeat("x", 500)),
			passage("p1", "800", 1, 0.1, "short"),
		}
		text, kept := buildContext(passages, 100)

		require.Len(t, kept, 1)
		assert.Equal(t, "p0", kept[0].Paragraph.ID)
		assert.True(t, kept[0].Truncated)
		assert.Len(t, []rune(text), 100)
		assert.True(t, strings.HasPrefix(text, "[1] (Chapter 800) x"))
		assert.Equal(t, "[1] (Chapter 800) "+kept[0].Paragraph.Text, text, "citation carries the text the provider saw")
		assert.Len(t, passages[0].Paragraph.Text, 500)
	})

	t.Run("equal scores drop the later passage", func(t *testing.T) {
		passages := []domain.ScoredPassage{
			passage("p0", "800", 0, 0.5, strings.Repeat("a", 40)),
			passage("p1", "800", 1, 0.5, strings.Repeat("b", 40)),
		}
		_, kept := buildContext(passages, 70)
		require.Len(t, kept, 1)
		assert.Equal(t, "p0", kept[0].Paragraph.ID)
	})
}
