package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playstore-scraper/models"
	"playstore-scraper/scraper/playstore"
	"playstore-scraper/storage"
	"playstore-scraper/utils"
)

var banks = []models.AppSource{
	{Label: "Commercial Bank of Ethiopia", AppID: "com.combanketh.mobilebanking"},
	{Label: "Bank of Abyssinia", AppID: "com.boa.boaMobileBanking"},
	{Label: "Dashen Bank", AppID: "com.cr2.amolelight"},
}

// stubFetcher returns a fixed number of reviews (or a status) per app id.
type stubFetcher struct {
	counts   map[string]int
	degraded map[string]bool
	hardErr  error
	order    []string
}

func (s *stubFetcher) Fetch(_ context.Context, app models.AppSource, count, maxRetries int) (models.FetchResult, error) {
	s.order = append(s.order, app.Label)
	if s.hardErr != nil {
		return models.FetchResult{App: app}, s.hardErr
	}
	if s.degraded[app.AppID] {
		return models.FetchResult{App: app, Status: models.FetchDegraded, Attempts: maxRetries, Err: errors.New("down")}, nil
	}
	n := s.counts[app.AppID]
	if n > count {
		n = count
	}
	raw := make([]models.RawReview, n)
	for i := range raw {
		raw[i] = models.RawReview{
			Content: fmt.Sprintf("%s review %d", app.Label, i),
			Score:   i%5 + 1,
			At:      time.Date(2025, 2, 1, 13, 0, 0, 0, time.UTC),
		}
	}
	status := models.FetchOK
	if n == 0 {
		status = models.FetchEmpty
	}
	return models.FetchResult{App: app, Reviews: raw, Status: status, Attempts: 1}, nil
}

type failingExporter struct{}

func (failingExporter) Write(string, []models.Review) (string, error) {
	return "", errors.New("disk full")
}

var fixedClock = func() time.Time { return time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC) }

func defaultSettings() Settings {
	return Settings{Apps: banks, Count: 500, MaxRetries: 3, Threshold: 1200, SampleSize: 5}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	require.NoError(t, sc.Err())
	return n
}

func TestRun_ThreeAppsMeetThreshold(t *testing.T) {
	dir := t.TempDir()
	csvw, err := storage.NewCSVWriter(dir)
	require.NoError(t, err)

	f := &stubFetcher{counts: map[string]int{
		"com.combanketh.mobilebanking": 500,
		"com.boa.boaMobileBanking":     500,
		"com.cr2.amolelight":           500,
	}}
	var out bytes.Buffer
	r := NewRunner(defaultSettings(), "run-1", f, csvw, utils.NopLogger(), WithOutput(&out), WithClock(fixedClock))

	report, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1500, report.Total)
	assert.True(t, report.ThresholdMet)
	assert.Equal(t, []string{"Commercial Bank of Ethiopia", "Bank of Abyssinia", "Dashen Bank"}, f.order)

	wantPath := filepath.Join(dir, "all_reviews_20250203_040506.csv")
	assert.Equal(t, wantPath, report.ExportPath)
	assert.Equal(t, 1501, countLines(t, wantPath))

	require.Len(t, report.Sample, 5)
	assert.Equal(t, "Commercial Bank of Ethiopia review 0", report.Sample[0].Text)
	assert.Equal(t, "2025-02-01", report.Sample[0].Date)

	assert.Contains(t, out.String(), "Total reviews collected: 1500")
	assert.Contains(t, out.String(), "Criteria met.")
	assert.Contains(t, out.String(), "Sample data:")
}

func TestRun_BelowThresholdStillExports(t *testing.T) {
	dir := t.TempDir()
	csvw, err := storage.NewCSVWriter(dir)
	require.NoError(t, err)

	f := &stubFetcher{counts: map[string]int{
		"com.combanketh.mobilebanking": 500,
		"com.boa.boaMobileBanking":     500,
		"com.cr2.amolelight":           199,
	}}
	var out bytes.Buffer
	r := NewRunner(defaultSettings(), "run-2", f, csvw, utils.NopLogger(), WithOutput(&out), WithClock(fixedClock))

	report, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1199, report.Total)
	assert.False(t, report.ThresholdMet)
	assert.Contains(t, out.String(), "Minimum of 1200 reviews not met.")
	assert.Equal(t, 1200, countLines(t, report.ExportPath))
}

func TestRun_AllFetchesExhausted(t *testing.T) {
	dir := t.TempDir()
	csvw, err := storage.NewCSVWriter(dir)
	require.NoError(t, err)

	f := &stubFetcher{degraded: map[string]bool{
		"com.combanketh.mobilebanking": true,
		"com.boa.boaMobileBanking":     true,
		"com.cr2.amolelight":           true,
	}}
	var out bytes.Buffer
	r := NewRunner(defaultSettings(), "run-3", f, csvw, utils.NopLogger(), WithOutput(&out))

	report, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Total)
	assert.Empty(t, report.ExportPath)
	for _, a := range report.Apps {
		assert.Equal(t, models.FetchDegraded, a.Status)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "export must be skipped when nothing was collected")
	assert.Contains(t, out.String(), "Total reviews collected: 0")
}

func TestRun_ExportFailureDoesNotAbort(t *testing.T) {
	f := &stubFetcher{counts: map[string]int{"com.cr2.amolelight": 10}}
	var out bytes.Buffer
	r := NewRunner(defaultSettings(), "run-4", f, failingExporter{}, utils.NopLogger(), WithOutput(&out))

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, report.Total)
	assert.EqualError(t, report.ExportErr, "disk full")
	assert.Contains(t, out.String(), "Export failed: disk full")
}

func TestRun_HardFailureAborts(t *testing.T) {
	f := &stubFetcher{hardErr: playstore.ErrMalformedPayload}
	r := NewRunner(defaultSettings(), "run-5", f, failingExporter{}, utils.NopLogger(), WithOutput(&bytes.Buffer{}))

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, playstore.ErrMalformedPayload)
	assert.Len(t, f.order, 1)
}

func TestRun_WritesSinksAndMetrics(t *testing.T) {
	ctx := context.Background()
	csvw, err := storage.NewCSVWriter(t.TempDir())
	require.NoError(t, err)
	db, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "reviews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	metrics := utils.NewMetrics()
	f := &stubFetcher{counts: map[string]int{"com.boa.boaMobileBanking": 75}}
	r := NewRunner(defaultSettings(), "run-6", f, csvw, utils.NopLogger(),
		WithOutput(&bytes.Buffer{}), WithSinks(db), WithMetrics(metrics))

	_, err = r.Run(ctx)
	require.NoError(t, err)

	n, err := db.CountRun(ctx, "run-6")
	require.NoError(t, err)
	assert.Equal(t, 75, n)

	metricsPath := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, metrics.WriteFile(metricsPath))
	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "playscraper_run_reviews_total 75")
	assert.Contains(t, string(data), `playscraper_export_duration_seconds_count{sink="sqlite"} 1`)
}

func TestNewRunner_CopiesApps(t *testing.T) {
	apps := append([]models.AppSource(nil), banks...)
	s := defaultSettings()
	s.Apps = apps

	f := &stubFetcher{}
	r := NewRunner(s, "run-7", f, failingExporter{}, utils.NopLogger(), WithOutput(&bytes.Buffer{}))
	apps[0].Label = "mutated"

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Commercial Bank of Ethiopia", f.order[0])
}
