package gather

import (
	"context"
	"time"

	"marketdaily/internal/domain"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one gathering pass and returns when it is complete or ctx
	// is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents a time range for data fetching. End is exclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ---------------------------------------------------------------------------
// Attempts
// ---------------------------------------------------------------------------

// Outcome classifies a single request to an upstream source.
type Outcome int

const (
	// OutcomeHit means the source returned at least one normalized row.
	OutcomeHit Outcome = iota
	// OutcomeEmpty means the source answered but had no rows.
	OutcomeEmpty
	// OutcomeError means the request or its payload failed; the error is
	// kept on the Attempt and never propagated.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeEmpty:
		return "empty"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Attempt records one request made while resolving an instrument.
type Attempt struct {
	Source  domain.Source
	Symbol  string
	Outcome Outcome
	Rows    int
	Err     error
	Elapsed time.Duration
}

// Series is a normalized table together with where it came from. A Series
// with no Bars means nothing was found.
type Series struct {
	Source domain.Source
	Symbol string
	Bars   []domain.Bar
}

// Empty reports whether the series carries no rows.
func (s Series) Empty() bool { return len(s.Bars) == 0 }

// ---------------------------------------------------------------------------
// Fetchers
// ---------------------------------------------------------------------------

// PrimaryFetcher tries an ordered list of symbol spellings and returns the
// first non-empty series, along with every attempt it made.
type PrimaryFetcher interface {
	FetchFirst(ctx context.Context, symbols []string) (Series, []Attempt)
}

// SecondaryFetcher downloads the full daily history for a single ticker.
// Advancing to another ticker is the caller's job.
type SecondaryFetcher interface {
	Fetch(ctx context.Context, ticker string) (Series, Attempt)
}
