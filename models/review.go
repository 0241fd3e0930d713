package models

import (
	"strconv"
	"time"
)

// SourceGooglePlay labels every review collected from the Play Store.
const SourceGooglePlay = "Google Play"

// AppSource maps a human-readable bank/app label to its Play Store package id.
type AppSource struct {
	Label string
	AppID string
}

// RawReview holds a single review as returned by the Play Store, before
// normalization. Only Content, Score and At are consumed downstream.
type RawReview struct {
	ReviewID   string
	UserName   string
	Content    string
	Score      int
	At         time.Time
	ThumbsUp   int
	AppVersion string
	Reply      string
	RepliedAt  time.Time
}

// Review is the normalized, export-ready record.
type Review struct {
	Text    string
	Rating  int
	Date    string
	AppName string
	Source  string
}

// ReviewColumns is the header row of every export, in field order.
var ReviewColumns = []string{"Review Text", "Rating", "Date", "Bank/App Name", "Source"}

// Row returns the review's fields in ReviewColumns order.
func (r Review) Row() []string {
	return []string{r.Text, strconv.Itoa(r.Rating), r.Date, r.AppName, r.Source}
}

// FetchStatus tells callers why a fetch returned what it did.
type FetchStatus int

const (
	// FetchOK means the provider returned at least one review.
	FetchOK FetchStatus = iota
	// FetchEmpty means the provider answered successfully with no reviews.
	FetchEmpty
	// FetchDegraded means every attempt failed and no data was collected.
	FetchDegraded
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchEmpty:
		return "empty"
	case FetchDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// FetchResult is the outcome of fetching one app's reviews.
type FetchResult struct {
	App      AppSource
	Reviews  []RawReview
	Status   FetchStatus
	Attempts int
	Err      error // last provider error when Status is FetchDegraded
}

// FetchEventKind identifies a step of the fetch retry loop.
type FetchEventKind string

const (
	EventAttempt   FetchEventKind = "attempt"
	EventFailure   FetchEventKind = "failure"
	EventRetryWait FetchEventKind = "retry_wait"
	EventExhausted FetchEventKind = "exhausted"
	EventSuccess   FetchEventKind = "success"
)

// FetchEvent is emitted by the fetcher for every significant step.
type FetchEvent struct {
	Kind        FetchEventKind
	App         AppSource
	Attempt     int // 1-based
	MaxAttempts int
	Requested   int
	Count       int
	Wait        time.Duration
	Err         error
}

// AppSummary records the per-app outcome of a run.
type AppSummary struct {
	App      AppSource
	Status   FetchStatus
	Attempts int
	Count    int
}

// RunReport holds everything the terminal summary prints.
type RunReport struct {
	RunID        string
	Total        int
	Threshold    int
	ThresholdMet bool
	Apps         []AppSummary
	RatingCounts map[int]int // 1..5
	OutOfRange   int
	EmptyText    int
	ExportPath   string
	ExportErr    error
	Sample       []Review
}
