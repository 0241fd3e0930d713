package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"playstore-scraper/models"
)

// Metrics records per-run counters in a private registry. A batch job has no
// scrape endpoint, so the registry is written once to a textfile at the end.
type Metrics struct {
	reg *prometheus.Registry

	FetchAttempts    *prometheus.CounterVec
	ReviewsCollected *prometheus.GaugeVec
	RunReviews       prometheus.Gauge
	ThresholdMet     prometheus.Gauge
	ExportDuration   *prometheus.HistogramVec
}

// NewMetrics builds and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		FetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "playscraper", Name: "fetch_attempts_total", Help: "Fetch attempts by outcome."},
			[]string{"app", "outcome"}, // outcome: started|failed|succeeded|exhausted
		),
		ReviewsCollected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Namespace: "playscraper", Name: "reviews_collected", Help: "Reviews collected per app in the last run."},
			[]string{"app"},
		),
		RunReviews: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: "playscraper", Name: "run_reviews_total", Help: "Reviews collected across all apps in the last run."},
		),
		ThresholdMet: prometheus.NewGauge(
			prometheus.GaugeOpts{Namespace: "playscraper", Name: "threshold_met", Help: "1 when the minimum review count was reached."},
		),
		ExportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "playscraper", Name: "export_duration_seconds",
				Help:    "Export duration seconds by sink.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
	}
	m.reg.MustRegister(m.FetchAttempts, m.ReviewsCollected, m.RunReviews, m.ThresholdMet, m.ExportDuration)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// OnFetchEvent counts fetch attempts and outcomes.
func (m *Metrics) OnFetchEvent(ev models.FetchEvent) {
	switch ev.Kind {
	case models.EventAttempt:
		m.FetchAttempts.WithLabelValues(ev.App.Label, "started").Inc()
	case models.EventFailure:
		m.FetchAttempts.WithLabelValues(ev.App.Label, "failed").Inc()
	case models.EventExhausted:
		m.FetchAttempts.WithLabelValues(ev.App.Label, "exhausted").Inc()
	case models.EventSuccess:
		m.FetchAttempts.WithLabelValues(ev.App.Label, "succeeded").Inc()
	}
}

// ObserveRun records the run-level totals.
func (m *Metrics) ObserveRun(r *models.RunReport) {
	for _, a := range r.Apps {
		m.ReviewsCollected.WithLabelValues(a.App.Label).Set(float64(a.Count))
	}
	m.RunReviews.Set(float64(r.Total))
	if r.ThresholdMet {
		m.ThresholdMet.Set(1)
	} else {
		m.ThresholdMet.Set(0)
	}
}

// ObserveExport records how long a sink took.
func (m *Metrics) ObserveExport(sink string, dur time.Duration) {
	m.ExportDuration.WithLabelValues(sink).Observe(dur.Seconds())
}

// WriteFile dumps the registry in the Prometheus text format.
func (m *Metrics) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics: create dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("metrics: write %q: %w", path, err)
	}
	return nil
}
