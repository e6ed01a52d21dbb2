// Package alpaca is an alternative secondary source backed by the Alpaca
// market-data API. It covers US equities and ETFs only and has no adjusted
// close, so that column is always null.
package alpaca

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/guregu/null/v6"

	"marketdaily/internal/domain"
	"marketdaily/internal/gather"
	"marketdaily/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.SecondaryFetcher = (*Client)(nil)

// barsGetter is the slice of the SDK client this package needs.
type barsGetter interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Client fetches raw daily bars for a single ticker over [start, today).
type Client struct {
	bars  barsGetter
	feed  string
	start time.Time
	today func() time.Time
	ny    *time.Location
	log   *slog.Logger
}

// NewClient creates a Client with the given Alpaca credentials. dataURL and
// feed may be empty to use the SDK defaults.
func NewClient(apiKey, apiSecret, dataURL, feed string, start time.Time) (*Client, error) {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return newClient(marketdata.NewClient(opts), feed, start)
}

func newClient(bars barsGetter, feed string, start time.Time) (*Client, error) {
	ny, err := util.LoadZone("America/New_York")
	if err != nil {
		return nil, err
	}
	return &Client{
		bars:  bars,
		feed:  feed,
		start: start,
		today: util.TodayUTC,
		ny:    ny,
		log:   slog.Default().With("source", domain.SourceAlpaca),
	}, nil
}

// Fetch downloads the ticker's unadjusted daily bars. Errors are recorded on
// the attempt and yield an empty Series.
func (c *Client) Fetch(ctx context.Context, ticker string) (gather.Series, gather.Attempt) {
	start := time.Now()
	attempt := gather.Attempt{Source: domain.SourceAlpaca, Symbol: ticker}

	bars, err := c.history(ctx, ticker, gather.DateRange{Start: c.start, End: c.today()})
	attempt.Elapsed = time.Since(start)
	attempt.Rows = len(bars)
	attempt.Err = err

	switch {
	case err != nil:
		attempt.Outcome = gather.OutcomeError
		c.log.Debug("bars failed", "ticker", ticker, "error", err)
		return gather.Series{}, attempt
	case len(bars) == 0:
		attempt.Outcome = gather.OutcomeEmpty
		return gather.Series{}, attempt
	}

	attempt.Outcome = gather.OutcomeHit
	return gather.Series{Source: domain.SourceAlpaca, Symbol: ticker, Bars: bars}, attempt
}

func (c *Client) history(ctx context.Context, ticker string, r gather.DateRange) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req := marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Raw,
		Start:      r.Start,
		End:        r.End,
	}
	if c.feed != "" {
		req.Feed = marketdata.Feed(c.feed)
	}

	alpacaBars, err := c.bars.GetBars(strings.ToUpper(ticker), req)
	if err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		// Daily bars are stamped at midnight New York time; keep the session
		// date as midnight UTC like every other source.
		local := ab.Timestamp.In(c.ny)
		bars = append(bars, domain.Bar{
			Timestamp: util.MidnightUTC(local.Year(), local.Month(), local.Day()),
			Open:      null.FloatFrom(ab.Open),
			High:      null.FloatFrom(ab.High),
			Low:       null.FloatFrom(ab.Low),
			Close:     null.FloatFrom(ab.Close),
			Volume:    null.FloatFrom(float64(ab.Volume)),
		})
	}
	return bars, nil
}
