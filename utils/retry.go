package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
// Before retry n (0-based attempt index of the failed try) it waits
// BaseDelay * 2^n.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// OnAttempt is called before each try with the 1-based attempt number.
	OnAttempt func(attempt int)
	// OnFailure is called after a failed try; wait is zero when no retry follows.
	OnFailure func(attempt int, err error, wait time.Duration)

	// Sleep defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that Do returns it immediately without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// ErrRetriesExhausted is wrapped by Do when every attempt failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Do executes fn with exponential back-off retry logic. It returns the number
// of attempts made alongside the final error.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(ctx context.Context) error) (int, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		if r.OnAttempt != nil {
			r.OnAttempt(attempt)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if IsPermanent(lastErr) {
			return attempt, lastErr
		}

		var wait time.Duration
		if attempt < r.MaxAttempts {
			wait = delay
		}
		if r.OnFailure != nil {
			r.OnFailure(attempt, lastErr, wait)
		}

		if attempt < r.MaxAttempts {
			if err := sleep(ctx, delay); err != nil {
				return attempt, err
			}
			delay *= 2
		}
	}

	return r.MaxAttempts, fmt.Errorf("%s failed after %d attempts: %w: %w",
		operationName, r.MaxAttempts, ErrRetriesExhausted, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
