// Package store persists normalized bar tables: per-instrument CSV files in
// UTC and in the second zone, the merged CSV, an optional Parquet copy of
// the merged table, and an optional SQLite log of fetch runs.
package store

import (
	"context"

	"marketdaily/internal/domain"
	"marketdaily/internal/gather"
)

// Output areas under the data directory.
const (
	RawDir     = "01_raw_daily_utc"
	ZonedDir   = "02_jst_daily"
	OutputsDir = "99_outputs"
)

// PairWriter persists one instrument's table in UTC and in the second zone
// and returns the zoned rows.
type PairWriter interface {
	WritePair(name string, bars []domain.Bar) ([]domain.ZonedBar, error)
}

// UnifiedWriter persists the merged, tagged table and returns its path.
type UnifiedWriter interface {
	WriteUnified(rows []domain.TaggedBar) (string, error)
}

// RunRecorder keeps a history of runs and the attempts made in them.
type RunRecorder interface {
	// Begin opens a run and returns its ID.
	Begin(ctx context.Context) (string, error)

	// RecordInstrument stores the attempts made for one instrument and
	// whether it ended up written.
	RecordInstrument(ctx context.Context, runID, instrument string, attempts []gather.Attempt, ok bool) error

	// Finish closes the run with its final counts.
	Finish(ctx context.Context, runID string, succeeded, failed, unifiedRows int) error
}
