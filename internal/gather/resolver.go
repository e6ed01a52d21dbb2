package gather

import (
	"context"
	"log/slog"

	"marketdaily/internal/domain"
	"marketdaily/internal/metrics"
)

// Resolution is the result of resolving one instrument against the source
// chain.
type Resolution struct {
	Instrument domain.Instrument
	Series     Series
	Attempts   []Attempt
}

// Found reports whether any source produced rows. A resolution that is not
// found must be skipped by the caller, never written.
func (r Resolution) Found() bool { return !r.Series.Empty() }

// Resolver applies the fallback chain: the primary source under every
// candidate spelling first, then the secondary source ticker by ticker.
type Resolver struct {
	primary   PrimaryFetcher
	secondary SecondaryFetcher
	log       *slog.Logger
}

// NewResolver creates a Resolver. Either fetcher may be nil, in which case
// that stage of the chain is skipped.
func NewResolver(primary PrimaryFetcher, secondary SecondaryFetcher) *Resolver {
	return &Resolver{
		primary:   primary,
		secondary: secondary,
		log:       slog.Default().With("component", "resolver"),
	}
}

// Resolve tries the instrument's primary candidates, and only if they all
// miss, its secondary tickers in declared order. The first non-empty series
// wins; partial results are never merged.
func (r *Resolver) Resolve(ctx context.Context, inst domain.Instrument) Resolution {
	res := Resolution{Instrument: inst}

	if r.primary != nil && len(inst.Primary) > 0 {
		series, attempts := r.primary.FetchFirst(ctx, inst.Primary)
		r.observe(inst.Name, attempts...)
		res.Attempts = append(res.Attempts, attempts...)
		if !series.Empty() {
			res.Series = series
			return res
		}
	}

	if r.secondary == nil {
		return res
	}
	for _, ticker := range inst.Secondary {
		if ctx.Err() != nil {
			break
		}
		series, attempt := r.secondary.Fetch(ctx, ticker)
		r.observe(inst.Name, attempt)
		res.Attempts = append(res.Attempts, attempt)
		if !series.Empty() {
			res.Series = series
			return res
		}
	}

	return res
}

func (r *Resolver) observe(name string, attempts ...Attempt) {
	for _, a := range attempts {
		metrics.ObserveAttempt(string(a.Source), a.Outcome.String(), a.Elapsed)

		if a.Outcome == OutcomeError {
			r.log.Debug("attempt failed",
				"instrument", name, "source", a.Source, "symbol", a.Symbol, "error", a.Err)
			continue
		}
		r.log.Debug("attempt",
			"instrument", name, "source", a.Source, "symbol", a.Symbol,
			"outcome", a.Outcome.String(), "rows", a.Rows)
	}
}
