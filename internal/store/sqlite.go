package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketdaily/internal/gather"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunRecorder = (*RunLog)(nil)

const runLogSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	succeeded    INTEGER,
	failed       INTEGER,
	unified_rows INTEGER
);
CREATE TABLE IF NOT EXISTS attempts (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	instrument  TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	source      TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	rows        INTEGER NOT NULL,
	error       TEXT,
	elapsed_ms  INTEGER NOT NULL,
	PRIMARY KEY (run_id, instrument, seq)
);
CREATE TABLE IF NOT EXISTS instruments (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	instrument TEXT NOT NULL,
	ok         INTEGER NOT NULL,
	PRIMARY KEY (run_id, instrument)
);`

// RunLog implements RunRecorder backed by a SQLite database.
type RunLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewRunLog opens (or creates) a SQLite database at dbPath and makes sure
// its tables exist.
func NewRunLog(dbPath string) (*RunLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(runLogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating run log tables: %w", err)
	}
	return &RunLog{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (l *RunLog) Close() error {
	return l.db.Close()
}

// Begin inserts a new run row and returns its ID.
func (l *RunLog) Begin(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, l.now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// RecordInstrument stores every attempt made for instrument in one
// transaction.
func (l *RunLog) RecordInstrument(ctx context.Context, runID, instrument string, attempts []gather.Attempt, ok bool) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for i, a := range attempts {
		var errText sql.NullString
		if a.Err != nil {
			errText = sql.NullString{String: a.Err.Error(), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attempts (run_id, instrument, seq, source, symbol, outcome, rows, error, elapsed_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, instrument, i, string(a.Source), a.Symbol, a.Outcome.String(), a.Rows, errText, a.Elapsed.Milliseconds())
		if err != nil {
			return fmt.Errorf("inserting attempt %d for %s: %w", i, instrument, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO instruments (run_id, instrument, ok) VALUES (?, ?, ?)`,
		runID, instrument, ok); err != nil {
		return fmt.Errorf("inserting instrument %s: %w", instrument, err)
	}

	return tx.Commit()
}

// Finish stamps the run's end time and counts.
func (l *RunLog) Finish(ctx context.Context, runID string, succeeded, failed, unifiedRows int) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?, unified_rows = ? WHERE id = ?`,
		l.now().UTC().Format(time.RFC3339), succeeded, failed, unifiedRows, runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing run: unknown run %s", runID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// No-op recorder
// ---------------------------------------------------------------------------

// NopRecorder is used when no run log is configured.
type NopRecorder struct{}

var _ RunRecorder = NopRecorder{}

func (NopRecorder) Begin(context.Context) (string, error) { return "", nil }

func (NopRecorder) RecordInstrument(context.Context, string, string, []gather.Attempt, bool) error {
	return nil
}

func (NopRecorder) Finish(context.Context, string, int, int, int) error { return nil }
