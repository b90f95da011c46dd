// Package archive persists completed document summaries to Postgres for
// later listing. The feature is optional: without a DATABASE_URL the
// service runs with a nil store and skips archiving entirely.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrdesk/docsum/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS document_summaries (
    id         BIGSERIAL PRIMARY KEY,
    job_id     TEXT NOT NULL,
    summary    JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Entry is one archived summary row.
type Entry struct {
	JobID     string                   `json:"job_id"`
	Summary   document.DocumentSummary `json:"summary"`
	CreatedAt time.Time                `json:"created_at"`
}

// Connect opens the pool and ensures the schema, retrying while the
// database comes up.
func Connect(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	var pool *pgxpool.Pool
	var err error
	maxRetries := 10
	retryDelay := time.Second * 10

	for i := 0; i < maxRetries; i++ {
		poolConfig, cfgErr := pgxpool.ParseConfig(databaseURL)
		if cfgErr != nil {
			return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", cfgErr)
		}

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				break
			}
		}

		logger.Warn("Failed to connect to the database",
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", maxRetries),
			slog.String("error", err.Error()))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database after %d attempts: %w", maxRetries, err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("unable to create document_summaries table: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Save(ctx context.Context, jobID string, summary document.DocumentSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO document_summaries (job_id, summary) VALUES ($1, $2)`,
		jobID, payload)
	if err != nil {
		return fmt.Errorf("inserting summary: %w", err)
	}

	s.logger.Debug("Archived summary", slog.String("job_id", jobID))
	return nil
}

// Recent returns the newest archived summaries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT job_id, summary, created_at
		   FROM document_summaries
		  ORDER BY created_at DESC
		  LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying summaries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var payload []byte
		if err := rows.Scan(&entry.JobID, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		if err := json.Unmarshal(payload, &entry.Summary); err != nil {
			return nil, fmt.Errorf("decoding archived summary: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) Close() {
	s.pool.Close()
}
