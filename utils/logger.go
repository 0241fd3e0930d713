package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"playstore-scraper/models"
)

// Logger provides leveled logging to the terminal and an append-only log file.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// NewLogger creates a Logger writing human-readable lines to stderr and, when
// path is non-empty, JSON lines appended to path.
func NewLogger(path, level string) (*Logger, error) {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}

	var (
		w    io.Writer = console
		file *os.File
	)
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("logger: create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("logger: open %q: %w", path, err)
		}
		file = f
		w = zerolog.MultiLevelWriter(console, f)
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return &Logger{
		zl:   zerolog.New(w).Level(lvl).With().Timestamp().Logger(),
		file: file,
	}, nil
}

// NewWriterLogger creates a Logger writing JSON lines to w. Used by tests.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).With().Timestamp().Logger()}
}

// NopLogger discards everything.
func NopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying an extra string field.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger(), file: l.file}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// OnFetchEvent renders a fetch event as one log line.
func (l *Logger) OnFetchEvent(ev models.FetchEvent) {
	var e *zerolog.Event
	switch ev.Kind {
	case models.EventFailure, models.EventExhausted:
		e = l.zl.Error()
	default:
		e = l.zl.Info()
	}

	e = e.Str("event", string(ev.Kind)).
		Str("app", ev.App.Label).
		Str("app_id", ev.App.AppID)
	if ev.Attempt > 0 {
		e = e.Int("attempt", ev.Attempt).Int("max_attempts", ev.MaxAttempts)
	}
	if ev.Err != nil {
		e = e.Err(ev.Err)
	}

	switch ev.Kind {
	case models.EventAttempt:
		e.Int("requested", ev.Requested).
			Msgf("Scraping %d reviews for %s...", ev.Requested, ev.App.Label)
	case models.EventFailure:
		e.Msgf("Attempt %d: Failed to scrape %s", ev.Attempt, ev.App.Label)
	case models.EventRetryWait:
		e.Dur("wait", ev.Wait).
			Msgf("Retrying in %s...", ev.Wait.Round(time.Millisecond))
	case models.EventExhausted:
		e.Msgf("All attempts to scrape %s failed.", ev.App.Label)
	case models.EventSuccess:
		e.Int("count", ev.Count).
			Msgf("Collected %d reviews for %s", ev.Count, ev.App.Label)
	default:
		e.Msg("fetch event")
	}
}
