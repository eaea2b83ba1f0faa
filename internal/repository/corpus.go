package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/mpedge/internal/domain"
)

// CorpusRepository stores the document in the chapters and paragraphs tables.
// It is both a corpus loader and an ingestion sink.
type CorpusRepository struct {
	db dbtx
	tx *TxRunner
}

func NewCorpusRepository(pool *pgxpool.Pool) *CorpusRepository {
	return &CorpusRepository{db: pool, tx: NewTxRunner(pool)}
}

// Load reads every chapter with its paragraphs in document order.
func (r *CorpusRepository) Load(ctx context.Context) (*domain.Document, error) {
	chapters, index, err := r.loadChapters(ctx)
	if err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, domain.ErrCorpusEmpty
	}

	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.chapter_id, p.text, p.embedding
		 FROM paragraphs p JOIN chapters c ON c.id = p.chapter_id
		 ORDER BY c.position, p.idx`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query paragraphs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Paragraph
		var embedding *pgvector.Vector
		if err := rows.Scan(&p.ID, &p.ChapterID, &p.Text, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan paragraph: %w", err)
		}
		p.Embedding = vectorSlice(embedding)
		i := index[p.ChapterID]
		chapters[i].Paragraphs = append(chapters[i].Paragraphs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return domain.NewDocument(chapters)
}

func (r *CorpusRepository) loadChapters(ctx context.Context) ([]domain.Chapter, map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, number, title, keywords, summary, summary_embedding
		 FROM chapters ORDER BY position`,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	var chapters []domain.Chapter
	index := make(map[string]int)
	for rows.Next() {
		var c domain.Chapter
		var summary *string
		var embedding *pgvector.Vector
		if err := rows.Scan(&c.ID, &c.Number, &c.Title, &c.Keywords, &summary, &embedding); err != nil {
			return nil, nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		if summary != nil {
			c.Summary = *summary
		}
		if len(c.Keywords) == 0 {
			c.Keywords = nil
		}
		c.SummaryEmbedding = vectorSlice(embedding)
		index[c.ID] = len(chapters)
		chapters = append(chapters, c)
	}
	return chapters, index, rows.Err()
}

// WriteCorpus replaces the stored corpus with doc in a single transaction.
func (r *CorpusRepository) WriteCorpus(ctx context.Context, doc *domain.Document) error {
	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chapters`); err != nil {
			return fmt.Errorf("failed to clear corpus: %w", err)
		}

		for pos, c := range doc.Chapters() {
			_, err := tx.Exec(ctx,
				`INSERT INTO chapters (id, position, number, title, keywords, summary, summary_embedding)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				c.ID, pos, c.Number, c.Title, keywordsOrEmpty(c.Keywords), nullableString(c.Summary), nullableVector(c.SummaryEmbedding),
			)
			if err != nil {
				return fmt.Errorf("failed to insert chapter %s: %w", c.ID, err)
			}

			batch := &pgx.Batch{}
			for _, p := range c.Paragraphs {
				batch.Queue(
					`INSERT INTO paragraphs (id, chapter_id, idx, text, embedding) VALUES ($1, $2, $3, $4, $5)`,
					p.ID, c.ID, p.Index, p.Text, nullableVector(p.Embedding),
				)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("failed to insert paragraphs of chapter %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func (r *CorpusRepository) String() string {
	return "postgres"
}

func keywordsOrEmpty(k []string) []string {
	if k == nil {
		return []string{}
	}
	return k
}
