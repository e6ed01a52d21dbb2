package stooq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdaily/internal/domain"
	"marketdaily/internal/gather"
)

const goodBody = "Date,Open,High,Low,Close,Volume\n" +
	"2024-01-04,33100.5,33300,32900.25,33288.29,1200000\n" +
	"2024-01-05,33300,33500,33200,33377.42,\n"

// newTestClient points a Client at srv and records every pause instead of
// sleeping.
func newTestClient(srv *httptest.Server, pauses *[]time.Duration) *Client {
	c := NewClient(Options{URLTemplate: srv.URL + "/q/d/l/?s={sym}&i=d"})
	c.pause = func(_ context.Context, d time.Duration) error {
		*pauses = append(*pauses, d)
		return nil
	}
	return c
}

func TestFetchFirstFallsThroughToGoodSymbol(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Query().Get("s") {
		case "goodsym":
			assert.Equal(t, "d", r.URL.Query().Get("i"))
			_, _ = w.Write([]byte(goodBody))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	var pauses []time.Duration
	c := newTestClient(srv, &pauses)

	series, attempts := c.FetchFirst(context.Background(), []string{"badsym", "goodsym"})

	require.Len(t, series.Bars, 2)
	assert.Equal(t, domain.SourceStooq, series.Source)
	assert.Equal(t, "goodsym", series.Symbol)
	assert.EqualValues(t, 2, requests.Load())
	assert.Equal(t, []time.Duration{DefaultDelay}, pauses)

	require.Len(t, attempts, 2)
	assert.Equal(t, gather.OutcomeError, attempts[0].Outcome)
	assert.ErrorIs(t, attempts[0].Err, ErrBadStatus)
	assert.Equal(t, gather.OutcomeHit, attempts[1].Outcome)
	assert.Equal(t, 2, attempts[1].Rows)

	first := series.Bars[0]
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, 33100.5, first.Open.Float64)
	assert.Equal(t, 33288.29, first.Close.Float64)
	// No Adj Close column: copied from Close.
	assert.True(t, first.AdjClose.Valid)
	assert.Equal(t, first.Close, first.AdjClose)
	assert.Equal(t, 1200000.0, first.Volume.Float64)

	// Blank volume cell stays null.
	assert.False(t, series.Bars[1].Volume.Valid)
}

func TestFetchFirstStopsAtFirstHit(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(goodBody))
	}))
	defer srv.Close()

	var pauses []time.Duration
	c := newTestClient(srv, &pauses)

	series, attempts := c.FetchFirst(context.Background(), []string{"^nkx", "^nikkei", "n225"})

	assert.Equal(t, "^nkx", series.Symbol)
	assert.Len(t, attempts, 1)
	assert.EqualValues(t, 1, requests.Load())
	assert.Empty(t, pauses)
}

func TestFetchFirstHeaderMismatchIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("No data"))
	}))
	defer srv.Close()

	var pauses []time.Duration
	c := newTestClient(srv, &pauses)

	series, attempts := c.FetchFirst(context.Background(), []string{"usdjpy", "jpyusd"})

	assert.True(t, series.Empty())
	require.Len(t, attempts, 2)
	for _, a := range attempts {
		assert.Equal(t, gather.OutcomeError, a.Outcome)
		assert.ErrorIs(t, a.Err, ErrHeaderMismatch)
	}
	// One pause between the two candidates, none after the last.
	assert.Len(t, pauses, 1)
}

func TestFetchFirstHeaderOnlyIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Date,Open,High,Low,Close\n"))
	}))
	defer srv.Close()

	var pauses []time.Duration
	c := newTestClient(srv, &pauses)

	series, attempts := c.FetchFirst(context.Background(), []string{"jp225"})

	assert.True(t, series.Empty())
	require.Len(t, attempts, 1)
	assert.Equal(t, gather.OutcomeEmpty, attempts[0].Outcome)
	assert.ErrorIs(t, attempts[0].Err, ErrNoRows)
}

func TestFetchFirstTransportErrorIsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Options{URLTemplate: url + "/?s={sym}", Timeout: time.Second})
	c.pause = func(context.Context, time.Duration) error { return nil }

	series, attempts := c.FetchFirst(context.Background(), []string{"^dji"})

	assert.True(t, series.Empty())
	require.Len(t, attempts, 1)
	assert.Equal(t, gather.OutcomeError, attempts[0].Outcome)
	assert.Error(t, attempts[0].Err)
}

func TestFetchFirstEmptyList(t *testing.T) {
	c := NewClient(Options{})
	series, attempts := c.FetchFirst(context.Background(), nil)
	assert.True(t, series.Empty())
	assert.Empty(t, attempts)
}

func TestFetchFirstStopsWhenPauseCancelled(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(Options{URLTemplate: srv.URL + "/?s={sym}"})
	c.pause = func(context.Context, time.Duration) error { return context.Canceled }

	_, attempts := c.FetchFirst(context.Background(), []string{"a", "b", "c"})
	assert.Len(t, attempts, 1)
	assert.EqualValues(t, 1, requests.Load())
}

func TestURLEscapesSymbol(t *testing.T) {
	c := NewClient(Options{})
	assert.Equal(t, "https://stooq.com/q/d/l/?s=%5Endx&i=d", c.URL("^ndx"))
}

func TestParseCSVFullSchema(t *testing.T) {
	body := "Date,Open,High,Low,Close,Adj Close,Volume\n" +
		"2024-01-04,1,2,0.5,1.5,1.4,100\n"

	bars, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.4, bars[0].AdjClose.Float64)
	assert.Equal(t, 100.0, bars[0].Volume.Float64)
}

func TestParseCSVMissingColumnsAreNull(t *testing.T) {
	body := "Date,Close\n2024-01-04,150.25\n"

	bars, err := ParseCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, bars, 1)

	b := bars[0]
	assert.False(t, b.Open.Valid)
	assert.False(t, b.High.Valid)
	assert.False(t, b.Low.Valid)
	assert.False(t, b.Volume.Valid)
	assert.True(t, b.Close.Valid)
	assert.Equal(t, 150.25, b.AdjClose.Float64)
}

func TestParseCSVErrors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = ParseCSV(strings.NewReader("Open,Close\n1,2\n"))
	assert.ErrorIs(t, err, ErrNoDateColumn)

	_, err = ParseCSV(strings.NewReader("Date,Close\nyesterday,2\n"))
	assert.Error(t, err)
}
