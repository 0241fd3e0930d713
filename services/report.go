package services

import (
	"fmt"
	"io"
	"strings"

	"playstore-scraper/models"
	"playstore-scraper/utils"
)

// ReportService builds and prints the end-of-run summary.
type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// ThresholdMet reports whether total reaches the minimum (inclusive).
func ThresholdMet(total, threshold int) bool {
	return total >= threshold
}

// Build computes the report over the run's collection.
func (s *ReportService) Build(runID string, apps []models.AppSummary, reviews []models.Review, threshold, sampleSize int) *models.RunReport {
	r := &models.RunReport{
		RunID:        runID,
		Total:        len(reviews),
		Threshold:    threshold,
		ThresholdMet: ThresholdMet(len(reviews), threshold),
		Apps:         apps,
		RatingCounts: make(map[int]int, 5),
	}

	for _, rv := range reviews {
		if rv.Rating >= 1 && rv.Rating <= 5 {
			r.RatingCounts[rv.Rating]++
		} else {
			r.OutOfRange++
		}
		if rv.Text == "" {
			r.EmptyText++
		}
	}

	if sampleSize < 0 {
		sampleSize = 0
	}
	if len(reviews) < sampleSize {
		sampleSize = len(reviews)
	}
	r.Sample = reviews[:sampleSize]

	if r.ThresholdMet {
		s.logger.Info("Successfully collected %d reviews", r.Total)
	} else {
		s.logger.Warn("Only collected %d reviews (minimum %d required)", r.Total, threshold)
	}
	return r
}

// ThresholdMessage is the pass/fail line printed for the run.
func ThresholdMessage(r *models.RunReport) string {
	if r.ThresholdMet {
		return "Criteria met."
	}
	return fmt.Sprintf("Minimum of %d reviews not met.", r.Threshold)
}

// Print writes the human-readable summary.
func (s *ReportService) Print(w io.Writer, r *models.RunReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  PLAY STORE REVIEW SCRAPE\n")
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "Total reviews collected: %d\n", r.Total)
	fmt.Fprintf(w, "%s\n\n", ThresholdMessage(r))

	fmt.Fprintf(w, "  Per app\n")
	fmt.Fprintf(w, "  %s\n", thin)
	for _, a := range r.Apps {
		fmt.Fprintf(w, "  %-32s %5d  %-8s (attempts: %d)\n",
			truncate(a.App.Label, 30), a.Count, a.Status, a.Attempts)
	}
	fmt.Fprintln(w)

	if r.Total > 0 {
		fmt.Fprintf(w, "  Ratings\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for star := 5; star >= 1; star-- {
			n := r.RatingCounts[star]
			fmt.Fprintf(w, "  %d★ %6d  %s\n", star, n, bar(n, r.Total, 30))
		}
		if r.OutOfRange > 0 {
			fmt.Fprintf(w, "  outside 1-5: %d\n", r.OutOfRange)
		}
		if r.EmptyText > 0 {
			fmt.Fprintf(w, "  without text: %d\n", r.EmptyText)
		}
		fmt.Fprintln(w)
	}

	if r.ExportPath != "" {
		fmt.Fprintf(w, "Saved to: %s\n", r.ExportPath)
	} else if r.ExportErr != nil {
		fmt.Fprintf(w, "Export failed: %v\n", r.ExportErr)
	}

	if len(r.Sample) > 0 {
		fmt.Fprintf(w, "\nSample data:\n")
		for i, rv := range r.Sample {
			fmt.Fprintf(w, "  %d. [%s] %d★ %s %q\n",
				i+1, rv.AppName, rv.Rating, rv.Date, truncate(rv.Text, 80))
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", sep)
}

func bar(n, total, width int) string {
	if total == 0 {
		return ""
	}
	return strings.Repeat("█", n*width/total)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
