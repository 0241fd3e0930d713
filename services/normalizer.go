package services

import (
	"strings"

	"playstore-scraper/models"
	"playstore-scraper/utils"
)

// DateLayout is the calendar-date format of normalized reviews.
const DateLayout = "2006-01-02"

// Normalize maps one raw review to the export schema. It is pure: the same
// input always yields the same Review. Ratings are passed through unclamped.
func Normalize(raw models.RawReview, appLabel string) models.Review {
	return models.Review{
		Text:    strings.ToValidUTF8(raw.Content, "\uFFFD"),
		Rating:  raw.Score,
		Date:    raw.At.Format(DateLayout),
		AppName: appLabel,
		Source:  models.SourceGooglePlay,
	}
}

// Normalizer transforms fetched reviews into export-ready records.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// NormalizeAll maps every raw review of one app, preserving order.
func (n *Normalizer) NormalizeAll(raw []models.RawReview, appLabel string) []models.Review {
	out := make([]models.Review, 0, len(raw))
	outOfRange := 0
	for _, r := range raw {
		if r.Score < 1 || r.Score > 5 {
			outOfRange++
		}
		out = append(out, Normalize(r, appLabel))
	}

	if outOfRange > 0 {
		n.logger.Warn("[normalizer] %s: %d reviews have a rating outside 1-5 (kept as-is)", appLabel, outOfRange)
	}
	n.logger.Debug("[normalizer] %s: normalized %d reviews", appLabel, len(out))
	return out
}
