package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"playstore-scraper/models"
)

// SQLiteWriter appends normalized reviews to a local SQLite database.
type SQLiteWriter struct {
	db *sql.DB
}

var _ ReviewWriter = (*SQLiteWriter)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteWriter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reviews (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT    NOT NULL,
			app_name    TEXT    NOT NULL,
			source      TEXT    NOT NULL,
			review_text TEXT    NOT NULL DEFAULT '',
			rating      INTEGER NOT NULL,
			review_date TEXT    NOT NULL,
			created_at  TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_run_id ON reviews(run_id);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &SQLiteWriter{db: db}, nil
}

func (s *SQLiteWriter) Name() string { return "sqlite" }

func (s *SQLiteWriter) Write(ctx context.Context, runID string, reviews []models.Review) error {
	if len(reviews) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	for _, batch := range batches(reviews) {
		query, args := buildInsert(runID, batch, questionPlaceholder)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: insert batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// CountRun returns how many reviews were stored for runID.
func (s *SQLiteWriter) CountRun(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE run_id = ?", runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count run: %w", err)
	}
	return n, nil
}

func (s *SQLiteWriter) Close() error {
	return s.db.Close()
}
