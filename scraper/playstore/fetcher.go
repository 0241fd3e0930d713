package playstore

import (
	"context"
	"time"

	"playstore-scraper/models"
	"playstore-scraper/utils"
)

// Provider returns up to count reviews for an app. *Client implements it.
type Provider interface {
	Reviews(ctx context.Context, appID string, count int) ([]models.RawReview, error)
}

// EventSink receives fetch events. Implementations render or count them.
type EventSink interface {
	OnFetchEvent(ev models.FetchEvent)
}

// Sinks fans an event out to several sinks.
type Sinks []EventSink

func (s Sinks) OnFetchEvent(ev models.FetchEvent) {
	for _, sink := range s {
		sink.OnFetchEvent(ev)
	}
}

// Fetcher wraps a Provider with bounded retries and exponential backoff.
type Fetcher struct {
	provider  Provider
	sink      EventSink
	baseDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher. Before retry n (0-based) it waits
// baseDelay * 2^n.
func NewFetcher(p Provider, sink EventSink, baseDelay time.Duration) *Fetcher {
	if sink == nil {
		sink = Sinks(nil)
	}
	return &Fetcher{provider: p, sink: sink, baseDelay: baseDelay}
}

// WithSleep replaces the backoff sleep, e.g. to record waits in tests.
func (f *Fetcher) WithSleep(fn func(ctx context.Context, d time.Duration) error) *Fetcher {
	f.sleep = fn
	return f
}

// Fetch requests count reviews for app, retrying up to maxRetries attempts.
// Exhausted retries degrade into an empty FetchDegraded result; only context
// cancellation and malformed provider payloads are returned as errors.
func (f *Fetcher) Fetch(ctx context.Context, app models.AppSource, count, maxRetries int) (models.FetchResult, error) {
	result := models.FetchResult{App: app}
	emit := func(ev models.FetchEvent) {
		ev.App = app
		ev.MaxAttempts = maxRetries
		ev.Requested = count
		f.sink.OnFetchEvent(ev)
	}

	var reviews []models.RawReview
	retry := &utils.RetryConfig{
		MaxAttempts: maxRetries,
		BaseDelay:   f.baseDelay,
		Sleep:       f.sleep,
		OnAttempt: func(attempt int) {
			emit(models.FetchEvent{Kind: models.EventAttempt, Attempt: attempt})
		},
		OnFailure: func(attempt int, err error, wait time.Duration) {
			emit(models.FetchEvent{Kind: models.EventFailure, Attempt: attempt, Err: err})
			if wait > 0 {
				emit(models.FetchEvent{Kind: models.EventRetryWait, Attempt: attempt, Wait: wait})
			}
		},
	}

	attempts, err := retry.Do(ctx, "fetch "+app.Label, func(ctx context.Context) error {
		got, err := f.provider.Reviews(ctx, app.AppID, count)
		if err != nil {
			return err
		}
		reviews = got
		return nil
	})
	result.Attempts = attempts

	switch {
	case err == nil:
		if len(reviews) > count {
			reviews = reviews[:count]
		}
		result.Reviews = reviews
		result.Status = models.FetchOK
		if len(reviews) == 0 {
			result.Status = models.FetchEmpty
		}
		emit(models.FetchEvent{Kind: models.EventSuccess, Attempt: attempts, Count: len(reviews)})
		return result, nil

	case utils.IsPermanent(err):
		emit(models.FetchEvent{Kind: models.EventFailure, Attempt: attempts, Err: err})
		return result, err

	case ctx.Err() != nil:
		return result, ctx.Err()

	default:
		emit(models.FetchEvent{Kind: models.EventExhausted, Attempt: attempts, Err: err})
		result.Status = models.FetchDegraded
		result.Err = err
		return result, nil
	}
}
