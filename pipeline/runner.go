// Package pipeline drives one collection run: fetch every configured app in
// order, normalize, check the advisory threshold, then export.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"playstore-scraper/models"
	"playstore-scraper/services"
	"playstore-scraper/storage"
	"playstore-scraper/utils"
)

// Fetcher is satisfied by *playstore.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, app models.AppSource, count, maxRetries int) (models.FetchResult, error)
}

// Exporter is satisfied by *storage.CSVWriter.
type Exporter interface {
	Write(filename string, reviews []models.Review) (string, error)
}

// Settings are the per-run parameters, fixed for the lifetime of a Runner.
type Settings struct {
	Apps       []models.AppSource
	Count      int
	MaxRetries int
	Threshold  int
	SampleSize int
}

// Runner sequences fetch, normalize, threshold check and export.
type Runner struct {
	settings   Settings
	runID      string
	fetcher    Fetcher
	exporter   Exporter
	sinks      []storage.ReviewWriter
	normalizer *services.Normalizer
	reports    *services.ReportService
	metrics    *utils.Metrics
	logger     *utils.Logger
	out        io.Writer
	now        func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSinks adds database sinks written after the CSV export.
func WithSinks(sinks ...storage.ReviewWriter) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// WithMetrics records run totals and export durations.
func WithMetrics(m *utils.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithOutput redirects the terminal summary (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithClock replaces time.Now for the export timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner wires a Runner. The apps slice is copied.
func NewRunner(s Settings, runID string, f Fetcher, e Exporter, logger *utils.Logger, opts ...Option) *Runner {
	s.Apps = append([]models.AppSource(nil), s.Apps...)
	r := &Runner{
		settings:   s,
		runID:      runID,
		fetcher:    f,
		exporter:   e,
		normalizer: services.NewNormalizer(logger),
		reports:    services.NewReportService(logger),
		logger:     logger,
		out:        os.Stdout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one collection run and prints the summary. It returns an error
// only for hard failures (cancellation, malformed provider data); degraded
// fetches and export failures are reported in the RunReport instead.
func (r *Runner) Run(ctx context.Context) (*models.RunReport, error) {
	var (
		all  []models.Review
		apps = make([]models.AppSummary, 0, len(r.settings.Apps))
	)

	for _, app := range r.settings.Apps {
		res, err := r.fetcher.Fetch(ctx, app, r.settings.Count, r.settings.MaxRetries)
		if err != nil {
			return nil, fmt.Errorf("pipeline: fetch %s: %w", app.Label, err)
		}

		reviews := r.normalizer.NormalizeAll(res.Reviews, app.Label)
		all = append(all, reviews...)
		apps = append(apps, models.AppSummary{
			App:      app,
			Status:   res.Status,
			Attempts: res.Attempts,
			Count:    len(reviews),
		})
	}

	report := r.reports.Build(r.runID, apps, all, r.settings.Threshold, r.settings.SampleSize)

	if len(all) > 0 {
		r.export(ctx, report, all)
	} else {
		r.logger.Warn("No reviews collected; skipping export")
	}

	if r.metrics != nil {
		r.metrics.ObserveRun(report)
	}

	r.reports.Print(r.out, report)
	return report, nil
}

func (r *Runner) export(ctx context.Context, report *models.RunReport, all []models.Review) {
	filename := storage.ExportFilename(r.now())

	start := time.Now()
	path, err := r.exporter.Write(filename, all)
	r.observeExport("csv", start)
	if err != nil {
		r.logger.Error("Failed to save CSV: %v", err)
		report.ExportErr = err
	} else {
		r.logger.Info("Saved all reviews to %s", path)
		report.ExportPath = path
	}

	for _, sink := range r.sinks {
		start := time.Now()
		err := sink.Write(ctx, r.runID, all)
		r.observeExport(sink.Name(), start)
		if err != nil {
			r.logger.Error("[%s] write failed: %v", sink.Name(), err)
			continue
		}
		r.logger.Info("[%s] stored %d reviews", sink.Name(), len(all))
	}
}

func (r *Runner) observeExport(sink string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveExport(sink, time.Since(start))
	}
}
