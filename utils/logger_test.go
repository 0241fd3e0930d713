package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"playstore-scraper/models"
)

func TestLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scraper.log")

	for i := 0; i < 2; i++ {
		l, err := NewLogger(path, "info")
		if err != nil {
			t.Fatalf("NewLogger: %v", err)
		}
		l.Info("run %d", i)
		l.Debug("hidden at info level")
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 appended lines, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[1], `"run 1"`) {
		t.Errorf("second line should be from the second run: %s", lines[1])
	}
}

func TestLoggerFetchEventFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf).With("run_id", "abc")

	l.OnFetchEvent(models.FetchEvent{
		Kind:        models.EventFailure,
		App:         models.AppSource{Label: "Dashen Bank", AppID: "com.cr2.amolelight"},
		Attempt:     2,
		MaxAttempts: 3,
		Err:         errors.New("timeout"),
	})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	checks := map[string]any{
		"level":   "error",
		"event":   "failure",
		"app":     "Dashen Bank",
		"attempt": float64(2),
		"run_id":  "abc",
		"error":   "timeout",
		"message": "Attempt 2: Failed to scrape Dashen Bank",
	}
	for k, want := range checks {
		if got[k] != want {
			t.Errorf("%s: got %v, want %v", k, got[k], want)
		}
	}
}
