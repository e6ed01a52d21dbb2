// Package yahoo downloads daily history from the Yahoo Finance chart API.
// It is the default secondary source, consulted only when the primary
// source has nothing for an instrument.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"marketdaily/internal/domain"
	"marketdaily/internal/gather"
	"marketdaily/internal/util"
)

var _ gather.SecondaryFetcher = (*Client)(nil)

// ErrBadStatus is recorded when the API answers with a non-200 status.
var ErrBadStatus = errors.New("unexpected status")

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	DefaultTimeout = 20 * time.Second
)

// Options configures a Client. Zero fields take the package defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Start      time.Time // inclusive
	HTTPClient *http.Client
}

// Client fetches unadjusted daily bars for one ticker at a time over
// [Start, today).
type Client struct {
	baseURL string
	start   time.Time
	http    *http.Client
	today   func() time.Time
	log     *slog.Logger
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL: opts.BaseURL,
		start:   opts.Start,
		http:    hc,
		today:   util.TodayUTC,
		log:     slog.Default().With("source", domain.SourceYahoo),
	}
}

// Fetch downloads the ticker's daily history. Any failure yields an empty
// Series and an error attempt; nothing is retried.
func (c *Client) Fetch(ctx context.Context, ticker string) (gather.Series, gather.Attempt) {
	start := time.Now()
	bars, err := c.history(ctx, ticker, gather.DateRange{Start: c.start, End: c.today()})

	attempt := gather.Attempt{
		Source:  domain.SourceYahoo,
		Symbol:  ticker,
		Rows:    len(bars),
		Err:     err,
		Elapsed: time.Since(start),
	}
	switch {
	case err != nil:
		attempt.Outcome = gather.OutcomeError
		c.log.Debug("history failed", "ticker", ticker, "error", err)
		return gather.Series{}, attempt
	case len(bars) == 0:
		attempt.Outcome = gather.OutcomeEmpty
		return gather.Series{}, attempt
	}

	attempt.Outcome = gather.OutcomeHit
	return gather.Series{Source: domain.SourceYahoo, Symbol: ticker, Bars: bars}, attempt
}

// ---------------------------------------------------------------------------
// Chart API
// ---------------------------------------------------------------------------

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GMTOffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// URL returns the chart request URL for ticker over r.
func (c *Client) URL(ticker string, r gather.DateRange) string {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(r.Start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(r.End.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	q.Set("includeAdjustedClose", "true")
	return c.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker) + "?" + q.Encode()
}

func (c *Client) history(ctx context.Context, ticker string, r gather.DateRange) ([]domain.Bar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(ticker, r), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var cr chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decoding chart: %w", err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 {
		return nil, nil
	}

	return normalize(cr.Chart.Result[0]), nil
}

// normalize turns one chart result into bars. Each timestamp is mapped to
// its exchange-local trading date and stored as midnight UTC of that date.
// Rows with no values at all are dropped.
func normalize(res chartResult) []domain.Bar {
	loc := exchangeZone(res.Meta.ExchangeTimezoneName, res.Meta.GMTOffset)

	var quoteOpen, quoteHigh, quoteLow, quoteClose, quoteVolume, adj []*float64
	if len(res.Indicators.Quote) > 0 {
		q := res.Indicators.Quote[0]
		quoteOpen, quoteHigh, quoteLow, quoteClose, quoteVolume = q.Open, q.High, q.Low, q.Close, q.Volume
	}
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]domain.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		local := time.Unix(ts, 0).In(loc)
		bar := domain.Bar{
			Timestamp: util.MidnightUTC(local.Year(), local.Month(), local.Day()),
			Open:      at(quoteOpen, i),
			High:      at(quoteHigh, i),
			Low:       at(quoteLow, i),
			Close:     at(quoteClose, i),
			AdjClose:  at(adj, i),
			Volume:    at(quoteVolume, i),
		}
		if !bar.Open.Valid && !bar.High.Valid && !bar.Low.Valid && !bar.Close.Valid && !bar.Volume.Valid {
			continue
		}
		bars = append(bars, bar)
	}
	return bars
}

func exchangeZone(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", gmtOffset)
}

func at(vals []*float64, i int) null.Float {
	if i >= len(vals) {
		return null.Float{}
	}
	return null.FloatFromPtr(vals[i])
}
