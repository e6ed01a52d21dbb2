package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"marketdaily/internal/domain"
	"marketdaily/internal/util"
)

// Compile-time interface checks.
var _ PairWriter = (*CSVStore)(nil)
var _ UnifiedWriter = (*CSVStore)(nil)

// TimestampLayout is how every timestamp cell is written.
const TimestampLayout = "2006-01-02 15:04:05-07:00"

// CSVStore writes bar tables as CSV files with a header row.
type CSVStore struct {
	DataDir     string
	UnifiedName string
	zone        *time.Location
}

// NewCSVStore creates a CSVStore rooted at dataDir that converts timestamps
// into zone for the second-zone files.
func NewCSVStore(dataDir, unifiedName string, zone *time.Location) *CSVStore {
	return &CSVStore{DataDir: dataDir, UnifiedName: unifiedName, zone: zone}
}

// Init creates the three output areas.
func (s *CSVStore) Init() error {
	for _, d := range []string{RawDir, ZonedDir, OutputsDir} {
		if err := os.MkdirAll(filepath.Join(s.DataDir, d), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}
	return nil
}

// WritePair writes bars verbatim to the UTC area, converts every timestamp
// into the store's zone, writes the result to the zoned area and returns it.
func (s *CSVStore) WritePair(name string, bars []domain.Bar) ([]domain.ZonedBar, error) {
	rows := make([][]string, len(bars))
	zoned := make([]domain.ZonedBar, len(bars))
	for i, b := range bars {
		rows[i] = barCells(b)
		zoned[i] = domain.ZonedBar{Bar: b, Local: util.ConvertZone(b.Timestamp, s.zone)}
	}
	if err := writeCSV(s.RawPath(name), domain.BarColumns, rows); err != nil {
		return nil, fmt.Errorf("writing %s (utc): %w", name, err)
	}

	for i, z := range zoned {
		rows[i] = zonedCells(z)
	}
	if err := writeCSV(s.ZonedPath(name), domain.ZonedColumns, rows); err != nil {
		return nil, fmt.Errorf("writing %s (zoned): %w", name, err)
	}
	return zoned, nil
}

// WriteUnified writes the merged table in the order given and returns the
// file path.
func (s *CSVStore) WriteUnified(tagged []domain.TaggedBar) (string, error) {
	rows := make([][]string, len(tagged))
	for i, t := range tagged {
		rows[i] = append(zonedCells(t.ZonedBar), t.Symbol)
	}
	path := s.UnifiedPath()
	if err := writeCSV(path, domain.TaggedColumns, rows); err != nil {
		return "", fmt.Errorf("writing unified: %w", err)
	}
	return path, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// RawPath returns <DataDir>/01_raw_daily_utc/<name>.csv.
func (s *CSVStore) RawPath(name string) string {
	return filepath.Join(s.DataDir, RawDir, name+".csv")
}

// ZonedPath returns <DataDir>/02_jst_daily/<name>.csv.
func (s *CSVStore) ZonedPath(name string) string {
	return filepath.Join(s.DataDir, ZonedDir, name+".csv")
}

// UnifiedPath returns <DataDir>/99_outputs/<UnifiedName>.
func (s *CSVStore) UnifiedPath() string {
	return filepath.Join(s.DataDir, OutputsDir, s.UnifiedName)
}

// ---------------------------------------------------------------------------
// Cell formatting
// ---------------------------------------------------------------------------

func barCells(b domain.Bar) []string {
	return []string{
		b.Timestamp.UTC().Format(TimestampLayout),
		formatFloat(b.Open),
		formatFloat(b.High),
		formatFloat(b.Low),
		formatFloat(b.Close),
		formatFloat(b.AdjClose),
		formatFloat(b.Volume),
	}
}

func zonedCells(z domain.ZonedBar) []string {
	return append(barCells(z.Bar), z.Local.Format(TimestampLayout))
}

// formatFloat writes the shortest exact representation; null is an empty
// cell.
func formatFloat(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
