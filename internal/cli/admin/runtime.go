package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mpedge/internal/cli"
	"github.com/cloo-solutions/mpedge/internal/config"
	"github.com/cloo-solutions/mpedge/internal/corpus"
	"github.com/cloo-solutions/mpedge/internal/database"
	"github.com/cloo-solutions/mpedge/internal/logger"
	"github.com/cloo-solutions/mpedge/internal/metrics"
	"github.com/cloo-solutions/mpedge/internal/openai"
	"github.com/cloo-solutions/mpedge/internal/repository"
	"github.com/cloo-solutions/mpedge/internal/service"
	"github.com/cloo-solutions/mpedge/internal/storage"
	"github.com/cloo-solutions/mpedge/internal/telemetry"
)

// runtime holds the process-wide dependencies shared by the admin commands.
// Database and object storage connect lazily.
type runtime struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics

	pool    *pgxpool.Pool
	objects *storage.S3Client
	closers []func()
}

// withConfigEnv documents the MPEDGE_* variables newRuntime reads in the
// command's --help-json schema.
func withConfigEnv(cmd *cobra.Command) *cobra.Command {
	vars := config.EnvVars()
	entries := make([]string, len(vars))
	for i, v := range vars {
		entries[i] = v.Name
		if v.Default != "" {
			entries[i] += "=" + v.Default
		}
	}
	cli.SetCommandEnv(cmd, entries...)
	return cmd
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.LogPretty})

	rt := &runtime{cfg: cfg, log: log, metrics: metrics.New()}

	// 10% sampling in production, everything in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	}, log)
	if err != nil {
		log.Warn().Err(err).Msg("telemetry init failed, continuing without tracing")
	} else {
		rt.closers = append(rt.closers, shutdownTelemetry)
	}

	return rt, nil
}

// Close releases connections in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func (rt *runtime) database(ctx context.Context) (*pgxpool.Pool, error) {
	if rt.pool != nil {
		return rt.pool, nil
	}
	if !rt.cfg.HasDatabase() {
		return nil, fmt.Errorf("MPEDGE_DATABASE_URL is not set")
	}
	pool, err := database.NewPool(ctx, database.Config{URL: rt.cfg.DatabaseURL})
	if err != nil {
		return nil, err
	}
	rt.log.Info().Msg("connected to database")
	rt.pool = pool
	rt.closers = append(rt.closers, pool.Close)
	return pool, nil
}

func (rt *runtime) migrate() error {
	return database.Migrate(rt.cfg.DatabaseURL, database.DefaultMigrationsDir, rt.log)
}

func (rt *runtime) objectStore(ctx context.Context) (*storage.S3Client, error) {
	if rt.objects != nil {
		return rt.objects, nil
	}
	if !rt.cfg.HasS3() {
		return nil, fmt.Errorf("S3 is not configured (MPEDGE_S3_ENDPOINT, MPEDGE_S3_ACCESS_KEY_ID, MPEDGE_S3_SECRET_ACCESS_KEY)")
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        rt.cfg.S3Endpoint,
		Region:          rt.cfg.S3Region,
		AccessKeyID:     rt.cfg.S3AccessKey,
		SecretAccessKey: rt.cfg.S3SecretKey,
		Bucket:          rt.cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	rt.objects = client
	return client, nil
}

// corpusLoader picks the snapshot source named by MPEDGE_CORPUS_SOURCE.
func (rt *runtime) corpusLoader(ctx context.Context) (corpus.Loader, error) {
	switch rt.cfg.CorpusSource {
	case config.CorpusSourceS3:
		objects, err := rt.objectStore(ctx)
		if err != nil {
			return nil, err
		}
		return corpus.S3Loader{Objects: objects, Key: rt.cfg.CorpusS3Key}, nil
	case config.CorpusSourcePostgres:
		pool, err := rt.database(ctx)
		if err != nil {
			return nil, err
		}
		return repository.NewCorpusRepository(pool), nil
	default:
		return corpus.FileLoader{Path: rt.cfg.CorpusPath}, nil
	}
}

func (rt *runtime) openStore(ctx context.Context) (*corpus.Store, error) {
	loader, err := rt.corpusLoader(ctx)
	if err != nil {
		return nil, err
	}
	store, err := corpus.Open(ctx, loader)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus from %s: %w", rt.cfg.CorpusSource, err)
	}
	chapters, paragraphs := store.Stats()
	rt.metrics.SetCorpusSize(chapters, paragraphs)
	rt.log.Info().
		Str("source", rt.cfg.CorpusSource).
		Int("chapters", chapters).
		Int("paragraphs", paragraphs).
		Msg("corpus loaded")
	return store, nil
}

// embeddingClient returns nil when no OpenAI key is configured. dimensions
// pins the expected vector size; 0 keeps the model default.
func (rt *runtime) embeddingClient(dimensions int) *openai.Client {
	if !rt.cfg.HasOpenAI() {
		return nil
	}
	return openai.NewClientWithConfig(openai.Config{
		APIKey:              rt.cfg.OpenAIAPIKey,
		BaseURL:             rt.cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(rt.cfg.EmbeddingModel),
		EmbeddingDimensions: dimensions,
	})
}

// askLogRepository returns nil when no database is configured.
func (rt *runtime) askLogRepository(ctx context.Context) (*repository.AskLogRepository, error) {
	if !rt.cfg.HasDatabase() {
		return nil, nil
	}
	pool, err := rt.database(ctx)
	if err != nil {
		return nil, err
	}
	return repository.NewAskLogRepository(pool), nil
}

// askService wires the full pipeline over store. askLog may be nil.
func (rt *runtime) askService(store *corpus.Store, askLog service.AskLogRepository) (*service.AskService, error) {
	pc, err := rt.cfg.LoadProviders()
	if err != nil {
		return nil, err
	}
	chain := buildProviderChain(pc, rt.log)
	if len(chain) == 0 {
		rt.log.Warn().Msg("no language model providers configured, every ask will fail")
	}

	r := rt.cfg.Retrieval
	synth := service.NewAnswerSynthesizer(chain, service.SynthesizerConfig{
		ContextBudgetChars: r.ContextBudgetChars,
		AttemptTimeout:     r.AttemptTimeout,
		MaxTokens:          r.MaxTokens,
		Temperature:        r.Temperature,
	}, rt.log, rt.metrics)

	deps := service.AskServiceDeps{
		Catalog: store,
		Selector: service.NewChapterSelector(store, service.SelectorConfig{
			MaxChapters:     r.MaxChapters,
			MinScore:        r.MinChapterScore,
			EmbeddingWeight: r.ChapterEmbeddingWeight,
			LexicalWeight:   r.ChapterLexicalWeight,
		}),
		Retriever: service.NewPassageRetriever(store, service.RetrieverConfig{
			TopK:            r.TopK,
			MinScore:        r.MinPassageScore,
			EmbeddingWeight: r.EmbeddingWeight,
			LexicalWeight:   r.LexicalWeight,
		}),
		Synthesizer: synth,
		Metrics:     rt.metrics,
		Logger:      rt.log,
	}
	if dim := store.Document().Dimension(); dim > 0 {
		if client := rt.embeddingClient(dim); client != nil {
			deps.Embedder = client
		}
	}
	deps.AskLog = askLog

	return service.NewAskService(deps, service.AskConfig{
		NoMatchPolicy: service.ParseNoMatchPolicy(r.NoMatchPolicy),
	}), nil
}
