package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"playstore-scraper/models"
)

// PostgresWriter persists normalized reviews to PostgreSQL, one batch per run.
type PostgresWriter struct {
	db *sql.DB
}

var _ ReviewWriter = (*PostgresWriter)(nil)

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reviews (
			id          SERIAL PRIMARY KEY,
			run_id      VARCHAR(36)  NOT NULL,
			app_name    TEXT         NOT NULL,
			source      VARCHAR(50)  NOT NULL,
			review_text TEXT         NOT NULL DEFAULT '',
			rating      INTEGER      NOT NULL,
			review_date DATE         NOT NULL,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_reviews_run_id   ON reviews(run_id);
		CREATE INDEX IF NOT EXISTS idx_reviews_app_name ON reviews(app_name);
		CREATE INDEX IF NOT EXISTS idx_reviews_date     ON reviews(review_date);
	`)
	return err
}

func (pw *PostgresWriter) Name() string { return "postgres" }

// Write batch-inserts all reviews of the run inside one transaction.
func (pw *PostgresWriter) Write(ctx context.Context, runID string, reviews []models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	for _, batch := range batches(reviews) {
		query, args := buildInsert(runID, batch, dollarPlaceholder)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
