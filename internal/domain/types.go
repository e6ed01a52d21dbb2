// Package domain defines the core types shared across marketdaily: the
// instrument table entries and the normalized daily bar rows at each stage
// of the pipeline.
package domain

import (
	"time"

	"github.com/guregu/null/v6"
)

// Source identifies an upstream data provider.
type Source string

const (
	SourceStooq  Source = "stooq"
	SourceYahoo  Source = "yahoo"
	SourceAlpaca Source = "alpaca"
)

// Instrument is one entry of the static instrument table: a display name plus
// the ordered symbol spellings to try on each source.
type Instrument struct {
	Name      string   `yaml:"name"`
	Primary   []string `yaml:"primary"`
	Secondary []string `yaml:"secondary"`
}

// ---------------------------------------------------------------------------
// Bar rows
// ---------------------------------------------------------------------------

// Column headers, in output order.
const (
	ColTimestamp = "datetime_utc"
	ColOpen      = "Open"
	ColHigh      = "High"
	ColLow       = "Low"
	ColClose     = "Close"
	ColAdjClose  = "Adj Close"
	ColVolume    = "Volume"
	ColLocal     = "datetime_jst"
	ColSymbol    = "symbol"
)

// BarColumns is the fixed normalized schema. Every source is coerced into
// exactly these columns in this order.
var BarColumns = []string{ColTimestamp, ColOpen, ColHigh, ColLow, ColClose, ColAdjClose, ColVolume}

// ZonedColumns is BarColumns plus the second-zone timestamp.
var ZonedColumns = append(append([]string(nil), BarColumns...), ColLocal)

// TaggedColumns is ZonedColumns plus the instrument tag.
var TaggedColumns = append(append([]string(nil), ZonedColumns...), ColSymbol)

// Bar is one normalized daily row. Timestamp is always in UTC; value fields
// the source did not provide are invalid (null), never zero.
type Bar struct {
	Timestamp time.Time
	Open      null.Float
	High      null.Float
	Low       null.Float
	Close     null.Float
	AdjClose  null.Float
	Volume    null.Float
}

// ZonedBar is a Bar with its timestamp also expressed in a second zone.
type ZonedBar struct {
	Bar
	Local time.Time
}

// TaggedBar is a ZonedBar labelled with the instrument it belongs to. It
// only exists for the merged output.
type TaggedBar struct {
	ZonedBar
	Symbol string
}

// Tag labels every row of bars with name.
func Tag(name string, bars []ZonedBar) []TaggedBar {
	out := make([]TaggedBar, len(bars))
	for i, b := range bars {
		out[i] = TaggedBar{ZonedBar: b, Symbol: name}
	}
	return out
}
