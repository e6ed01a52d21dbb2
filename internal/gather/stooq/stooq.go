// Package stooq fetches daily history from Stooq's CSV download endpoint.
// It is the primary source: every instrument is tried here first, under
// each of its candidate spellings.
package stooq

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"marketdaily/internal/domain"
	"marketdaily/internal/gather"
	"marketdaily/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.PrimaryFetcher = (*Client)(nil)

// Miss reasons. Any of these makes the client move on to the next
// candidate.
var (
	ErrBadStatus      = errors.New("unexpected status")
	ErrHeaderMismatch = errors.New("body does not start with header token")
	ErrNoRows         = errors.New("no data rows")
	ErrNoDateColumn   = errors.New("no Date column")
)

const (
	// DefaultURLTemplate is the daily download URL; {sym} is replaced by the
	// query-escaped candidate symbol.
	DefaultURLTemplate = "https://stooq.com/q/d/l/?s={sym}&i=d"
	DefaultHeaderToken = "date,"
	DefaultTimeout     = 20 * time.Second
	DefaultDelay       = 700 * time.Millisecond

	dateLayout = "2006-01-02"
	maxBody    = 32 << 20
)

// Options configures a Client. Zero fields take the package defaults.
type Options struct {
	URLTemplate string
	HeaderToken string
	Timeout     time.Duration
	Delay       time.Duration
	HTTPClient  *http.Client
}

// Client downloads and normalizes Stooq daily CSVs.
type Client struct {
	urlTemplate string
	headerToken string
	delay       time.Duration
	http        *http.Client
	pause       func(context.Context, time.Duration) error
	log         *slog.Logger
}

// NewClient creates a Client from opts.
func NewClient(opts Options) *Client {
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultURLTemplate
	}
	if opts.HeaderToken == "" {
		opts.HeaderToken = DefaultHeaderToken
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Delay == 0 {
		opts.Delay = DefaultDelay
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		urlTemplate: opts.URLTemplate,
		headerToken: strings.ToLower(opts.HeaderToken),
		delay:       opts.Delay,
		http:        hc,
		pause:       util.Pause,
		log:         slog.Default().With("source", domain.SourceStooq),
	}
}

// FetchFirst requests each symbol in order and returns the first one that
// yields rows. Between a miss and the next candidate it waits for the
// configured delay. Failures are recorded on the returned attempts and never
// surface as errors; an exhausted (or empty) list yields an empty Series.
func (c *Client) FetchFirst(ctx context.Context, symbols []string) (gather.Series, []gather.Attempt) {
	attempts := make([]gather.Attempt, 0, len(symbols))

	for i, sym := range symbols {
		if i > 0 {
			if err := c.pause(ctx, c.delay); err != nil {
				break
			}
		}

		start := time.Now()
		bars, err := c.fetch(ctx, sym)
		attempt := gather.Attempt{
			Source:  domain.SourceStooq,
			Symbol:  sym,
			Rows:    len(bars),
			Err:     err,
			Elapsed: time.Since(start),
		}
		switch {
		case err == nil:
			attempt.Outcome = gather.OutcomeHit
		case errors.Is(err, ErrNoRows):
			attempt.Outcome = gather.OutcomeEmpty
		default:
			attempt.Outcome = gather.OutcomeError
		}
		attempts = append(attempts, attempt)

		if err == nil {
			return gather.Series{Source: domain.SourceStooq, Symbol: sym, Bars: bars}, attempts
		}
		c.log.Debug("candidate missed", "symbol", sym, "error", err)
	}

	return gather.Series{}, attempts
}

// URL returns the download URL for sym.
func (c *Client) URL(sym string) string {
	return strings.ReplaceAll(c.urlTemplate, "{sym}", url.QueryEscape(sym))
}

func (c *Client) fetch(ctx context.Context, sym string) ([]domain.Bar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(sym), nil)
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

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	// The endpoint answers 200 with a plain-text notice for unknown symbols,
	// so the header prefix is the only reliable hit marker.
	if !strings.HasPrefix(strings.ToLower(string(body)), c.headerToken) {
		return nil, ErrHeaderMismatch
	}

	return ParseCSV(strings.NewReader(string(body)))
}

// ---------------------------------------------------------------------------
// CSV normalization
// ---------------------------------------------------------------------------

// ParseCSV reads a Stooq daily CSV and coerces it into normalized bars.
// Dates are taken as UTC midnight. Missing Open/High/Low/Close/Volume
// columns (or blank cells) become null; a missing Adj Close column copies
// Close.
func ParseCSV(r io.Reader) ([]domain.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	col := func(name string) int {
		if i, ok := idx[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}

	dateCol := col("Date")
	if dateCol < 0 {
		return nil, ErrNoDateColumn
	}
	openCol, highCol, lowCol, closeCol := col(domain.ColOpen), col(domain.ColHigh), col(domain.ColLow), col(domain.ColClose)
	adjCol, volCol := col(domain.ColAdjClose), col(domain.ColVolume)

	var bars []domain.Bar
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(bars)+1, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		ts, err := parseDate(cell(rec, dateCol))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(bars)+1, err)
		}

		bar := domain.Bar{
			Timestamp: ts,
			Open:      parseFloat(cell(rec, openCol)),
			High:      parseFloat(cell(rec, highCol)),
			Low:       parseFloat(cell(rec, lowCol)),
			Close:     parseFloat(cell(rec, closeCol)),
			Volume:    parseFloat(cell(rec, volCol)),
		}
		if adjCol >= 0 {
			bar.AdjClose = parseFloat(cell(rec, adjCol))
		} else {
			bar.AdjClose = bar.Close
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, ErrNoRows
	}
	return bars, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		// Some exports carry a time of day.
		t, err = time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

func parseFloat(s string) null.Float {
	if s == "" {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(f)
}
