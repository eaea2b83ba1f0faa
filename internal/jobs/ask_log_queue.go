package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cloo-solutions/mpedge/internal/logger"
	"github.com/cloo-solutions/mpedge/internal/service"
)

// ErrQueueFull is returned when an entry is dropped because the buffer is full.
var ErrQueueFull = errors.New("ask log queue full")

// AskLogQueue moves ask log writes off the request path. Entries are buffered
// in memory and written by a Worker calling ProcessJobs.
type AskLogQueue struct {
	repo    service.AskLogRepository
	entries chan service.AskLogEntry
	log     zerolog.Logger
}

func NewAskLogQueue(repo service.AskLogRepository, size int, log zerolog.Logger) *AskLogQueue {
	if size <= 0 {
		size = 256
	}
	return &AskLogQueue{
		repo:    repo,
		entries: make(chan service.AskLogEntry, size),
		log:     logger.Component(log, "ask_log_queue"),
	}
}

// CreateAskLog enqueues the entry without blocking. The returned id is
// always empty; ids are assigned when the entry is written.
func (q *AskLogQueue) CreateAskLog(_ context.Context, entry service.AskLogEntry) (string, error) {
	select {
	case q.entries <- entry:
		return "", nil
	default:
		return "", ErrQueueFull
	}
}

// Pending reports how many entries are waiting to be written.
func (q *AskLogQueue) Pending() int {
	return len(q.entries)
}

// ProcessJobs writes every queued entry. Failed writes are dropped and
// counted in the returned error.
func (q *AskLogQueue) ProcessJobs(ctx context.Context) error {
	var written, failed int
	for {
		select {
		case entry := <-q.entries:
			if _, err := q.repo.CreateAskLog(ctx, entry); err != nil {
				failed++
				q.log.Warn().Err(err).Str("status", entry.Status).Msg("failed to write ask log")
				continue
			}
			written++
		default:
			if written > 0 {
				q.log.Debug().Int("written", written).Msg("ask logs flushed")
			}
			if failed > 0 {
				return fmt.Errorf("failed to write %d ask logs", failed)
			}
			return nil
		}
	}
}
