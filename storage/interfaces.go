package storage

import (
	"context"

	"playstore-scraper/models"
)

// ReviewWriter is the interface any database sink must satisfy.
type ReviewWriter interface {
	Name() string
	Write(ctx context.Context, runID string, reviews []models.Review) error
	Close() error
}
