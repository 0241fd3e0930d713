package storage

import (
	"fmt"
	"strings"

	"playstore-scraper/models"
)

const insertBatchSize = 50

// reviewColumnsSQL lists the insert columns; each row carries len == 6 args.
const reviewColumnsSQL = "run_id, app_name, source, review_text, rating, review_date"

const reviewArgsPerRow = 6

// placeholderFunc returns the bind marker for 1-based argument n.
type placeholderFunc func(n int) string

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func questionPlaceholder(int) string { return "?" }

// buildInsert renders a multi-row INSERT for batch.
func buildInsert(runID string, batch []models.Review, ph placeholderFunc) (string, []any) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*reviewArgsPerRow)

	for idx, r := range batch {
		base := idx * reviewArgsPerRow
		marks := make([]string, reviewArgsPerRow)
		for i := range marks {
			marks[i] = ph(base + i + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(marks, ",")+")")
		valueArgs = append(valueArgs, runID, r.AppName, r.Source, r.Text, r.Rating, r.Date)
	}

	query := fmt.Sprintf("INSERT INTO reviews (%s) VALUES %s",
		reviewColumnsSQL, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// batches splits reviews into insertBatchSize chunks.
func batches(reviews []models.Review) [][]models.Review {
	var out [][]models.Review
	for i := 0; i < len(reviews); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(reviews) {
			end = len(reviews)
		}
		out = append(out, reviews[i:end])
	}
	return out
}
