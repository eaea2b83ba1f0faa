package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/mpedge/internal/domain"
	"github.com/cloo-solutions/mpedge/internal/service"
)

// AskLogRepository stores one row per ask request for offline evaluation.
type AskLogRepository struct {
	pool *pgxpool.Pool
}

func NewAskLogRepository(pool *pgxpool.Pool) *AskLogRepository {
	return &AskLogRepository{pool: pool}
}

func (r *AskLogRepository) CreateAskLog(ctx context.Context, entry service.AskLogEntry) (string, error) {
	citations := entry.Citations
	if citations == nil {
		citations = []service.AskLogCitation{}
	}
	failures := entry.Failures
	if failures == nil {
		failures = []domain.ProviderFailure{}
	}
	citationsJSON, _ := json.Marshal(citations)
	failuresJSON, _ := json.Marshal(failures)
	chapters := entry.Chapters
	if chapters == nil {
		chapters = []string{}
	}

	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ask_logs (id, query, chapters, scope_widened, status, provider, model, citations, failures, duration_ms, created_at, request_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id,
		entry.Query,
		chapters,
		entry.ScopeWidened,
		entry.Status,
		nullableString(entry.Provider),
		nullableString(entry.Model),
		citationsJSON,
		failuresJSON,
		entry.DurationMs,
		time.Now().UTC(),
		nullableString(entry.RequestID),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}
