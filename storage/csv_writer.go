package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"playstore-scraper/models"
)

// ErrEmptyCollection is returned when asked to export zero reviews.
var ErrEmptyCollection = errors.New("storage: empty review collection")

// TimestampLayout stamps export filenames (YYYYMMDD_HHMMSS).
const TimestampLayout = "20060102_150405"

// ExportFilename returns the run's CSV name, e.g. all_reviews_20250102_150405.csv.
func ExportFilename(t time.Time) string {
	return "all_reviews_" + t.Format(TimestampLayout) + ".csv"
}

// CSVWriter writes normalized reviews as UTF-8 CSV files under a fixed directory.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates the output directory if needed.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{dir: dir}, nil
}

// Dir returns the output directory.
func (c *CSVWriter) Dir() string { return c.dir }

// Write creates filename in the output directory with a header row followed
// by one row per review, and returns the file's path. Fields containing
// commas, quotes or newlines are quoted.
func (c *CSVWriter) Write(filename string, reviews []models.Review) (string, error) {
	if len(reviews) == 0 {
		return "", ErrEmptyCollection
	}

	path := filepath.Join(c.dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(models.ReviewColumns); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range reviews {
		if err := w.Write(r.Row()); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("csv: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("csv: flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("csv: close %q: %w", path, err)
	}
	return path, nil
}
