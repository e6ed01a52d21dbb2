package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/parquet-go/parquet-go"

	"marketdaily/internal/domain"
)

// Compile-time interface check.
var _ UnifiedWriter = (*ParquetStore)(nil)

// ParquetStore keeps a Parquet copy of the merged table next to the CSV.
type ParquetStore struct {
	DataDir     string
	UnifiedName string
	zone        *time.Location
}

// NewParquetStore creates a ParquetStore rooted at dataDir. unifiedName is
// the CSV name; its extension is swapped for .parquet. zone is applied to
// the local timestamps when reading rows back.
func NewParquetStore(dataDir, unifiedName string, zone *time.Location) *ParquetStore {
	return &ParquetStore{DataDir: dataDir, UnifiedName: unifiedName, zone: zone}
}

// ---------------------------------------------------------------------------
// Parquet record type (on-disk schema)
// ---------------------------------------------------------------------------

// UnifiedRecord is the Parquet schema for one merged row. Value columns are
// optional so nulls survive the round trip.
type UnifiedRecord struct {
	Symbol    string   `parquet:"symbol"`
	Timestamp int64    `parquet:"datetime_utc,timestamp(millisecond)"` // Unix ms
	Open      *float64 `parquet:"open,optional"`
	High      *float64 `parquet:"high,optional"`
	Low       *float64 `parquet:"low,optional"`
	Close     *float64 `parquet:"close,optional"`
	AdjClose  *float64 `parquet:"adj_close,optional"`
	Volume    *float64 `parquet:"volume,optional"`
}

// ---------------------------------------------------------------------------
// UnifiedWriter implementation
// ---------------------------------------------------------------------------

// WriteUnified writes rows, in the order given, to
// <DataDir>/99_outputs/<name>.parquet, replacing any previous file.
func (s *ParquetStore) WriteUnified(rows []domain.TaggedBar) (string, error) {
	records := make([]UnifiedRecord, len(rows))
	for i, r := range rows {
		records[i] = UnifiedRecord{
			Symbol:    r.Symbol,
			Timestamp: r.Timestamp.UnixMilli(),
			Open:      r.Open.Ptr(),
			High:      r.High.Ptr(),
			Low:       r.Low.Ptr(),
			Close:     r.Close.Ptr(),
			AdjClose:  r.AdjClose.Ptr(),
			Volume:    r.Volume.Ptr(),
		}
	}

	path := s.UnifiedPath()
	if err := writeParquetFile(path, records); err != nil {
		return "", fmt.Errorf("writing unified parquet: %w", err)
	}
	return path, nil
}

// ReadUnified reads the merged table back, rebuilding the zoned timestamps.
func (s *ParquetStore) ReadUnified() ([]domain.TaggedBar, error) {
	records, err := readParquetFile[UnifiedRecord](s.UnifiedPath())
	if err != nil {
		return nil, err
	}

	rows := make([]domain.TaggedBar, len(records))
	for i, r := range records {
		ts := time.UnixMilli(r.Timestamp).UTC()
		rows[i] = domain.TaggedBar{
			ZonedBar: domain.ZonedBar{
				Bar: domain.Bar{
					Timestamp: ts,
					Open:      null.FloatFromPtr(r.Open),
					High:      null.FloatFromPtr(r.High),
					Low:       null.FloatFromPtr(r.Low),
					Close:     null.FloatFromPtr(r.Close),
					AdjClose:  null.FloatFromPtr(r.AdjClose),
					Volume:    null.FloatFromPtr(r.Volume),
				},
				Local: ts.In(s.zone),
			},
			Symbol: r.Symbol,
		}
	}
	return rows, nil
}

// UnifiedPath returns the Parquet path for the merged table.
// Layout: <DataDir>/99_outputs/<unified name without extension>.parquet
func (s *ParquetStore) UnifiedPath() string {
	base := strings.TrimSuffix(s.UnifiedName, filepath.Ext(s.UnifiedName))
	return filepath.Join(s.DataDir, OutputsDir, base+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
