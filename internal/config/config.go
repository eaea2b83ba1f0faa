package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every variable read by Load.
const EnvPrefix = "MPEDGE"

// Corpus sources accepted by CORPUS_SOURCE.
const (
	CorpusSourceFile     = "file"
	CorpusSourceS3       = "s3"
	CorpusSourcePostgres = "postgres"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Debug     bool   `envconfig:"DEBUG" default:"false"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	// Static bearer key guarding /ask and /chapters. Empty disables auth.
	APIKey string `envconfig:"API_KEY"`

	DatabaseURL string `envconfig:"DATABASE_URL"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"mpedge-corpus"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	CorpusSource string `envconfig:"CORPUS_SOURCE" default:"file"`
	CorpusPath   string `envconfig:"CORPUS_PATH" default:"data/corpus.json"`
	CorpusS3Key  string `envconfig:"CORPUS_S3_KEY" default:"corpus/mpep.json"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`

	HuggingFaceAPIKey string `envconfig:"HF_API_KEY"`
	ProvidersFile     string `envconfig:"PROVIDERS_FILE"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	Retrieval RetrievalConfig `envconfig:"RETRIEVAL"`
}

// RetrievalConfig tunes chapter selection, passage retrieval and synthesis.
type RetrievalConfig struct {
	MaxChapters            int           `envconfig:"MAX_CHAPTERS" default:"3"`
	MinChapterScore        float64       `envconfig:"MIN_CHAPTER_SCORE" default:"0.15"`
	ChapterEmbeddingWeight float64       `envconfig:"CHAPTER_EMBEDDING_WEIGHT" default:"0.6"`
	ChapterLexicalWeight   float64       `envconfig:"CHAPTER_LEXICAL_WEIGHT" default:"0.4"`
	TopK                   int           `envconfig:"TOP_K" default:"5"`
	MinPassageScore        float64       `envconfig:"MIN_PASSAGE_SCORE" default:"0"`
	EmbeddingWeight        float64       `envconfig:"EMBEDDING_WEIGHT" default:"0.7"`
	LexicalWeight          float64       `envconfig:"LEXICAL_WEIGHT" default:"0.3"`
	ContextBudgetChars     int           `envconfig:"CONTEXT_BUDGET_CHARS" default:"6000"`
	AttemptTimeout         time.Duration `envconfig:"ATTEMPT_TIMEOUT" default:"30s"`
	MaxTokens              int           `envconfig:"MAX_TOKENS" default:"512"`
	Temperature            float32       `envconfig:"TEMPERATURE" default:"0.2"`
	NoMatchPolicy          string        `envconfig:"NO_MATCH_POLICY" default:"fail"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.CorpusSource {
	case CorpusSourceFile, CorpusSourceS3, CorpusSourcePostgres:
	default:
		return nil, fmt.Errorf("invalid MPEDGE_CORPUS_SOURCE %q (expected file, s3 or postgres)", cfg.CorpusSource)
	}

	return &cfg, nil
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasHuggingFace() bool {
	return c.HuggingFaceAPIKey != ""
}

// EnvVar is one environment variable read by Load, with its default.
type EnvVar struct {
	Name    string
	Default string
}

// EnvVars lists the variables Load reads, nested sections included, in
// declaration order.
func EnvVars() []EnvVar {
	return collectEnvVars(EnvPrefix, reflect.TypeOf(Config{}))
}

func collectEnvVars(prefix string, t reflect.Type) []EnvVar {
	var vars []EnvVar
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key, ok := f.Tag.Lookup("envconfig")
		if !ok {
			continue
		}
		name := prefix + "_" + key
		if f.Type.Kind() == reflect.Struct {
			vars = append(vars, collectEnvVars(name, f.Type)...)
			continue
		}
		vars = append(vars, EnvVar{Name: name, Default: f.Tag.Get("default")})
	}
	return vars
}
