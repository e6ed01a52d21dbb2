// Package report prints the human-readable run summary. Structured logs go
// through slog; these lines are for whoever is watching the terminal.
package report

import (
	"fmt"
	"io"
	"os"
)

// Reporter receives the user-facing outcome of a run.
type Reporter interface {
	// Skip announces that an instrument produced no data.
	Skip(name string)
	// Failed announces that an instrument was fetched but could not be saved.
	Failed(name string, err error)
	// Unified announces the merged file and its shape.
	Unified(path string, rows, cols int)
	// AllFailed announces that no instrument succeeded.
	AllFailed()
}

// Console writes one line per notice.
type Console struct {
	w io.Writer
}

var _ Reporter = (*Console)(nil)

// NewConsole creates a Console writing to w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Skip(name string) {
	fmt.Fprintf(c.w, "WARN %s: fetch failed (retry later)\n", name)
}

func (c *Console) Failed(name string, err error) {
	fmt.Fprintf(c.w, "WARN %s: could not save output: %v\n", name, err)
}

func (c *Console) Unified(path string, rows, cols int) {
	fmt.Fprintf(c.w, "OK unified CSV: %s shape=(%d, %d)\n", path, rows, cols)
}

func (c *Console) AllFailed() {
	fmt.Fprintln(c.w, "WARN every instrument failed this time; wait a while and run again")
}
