// Package daily drives one full gathering pass: resolve every instrument in
// the table, save each one in UTC and in the second zone, then merge the
// successes into a single sorted file.
package daily

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"marketdaily/internal/domain"
	"marketdaily/internal/gather"
	"marketdaily/internal/metrics"
	"marketdaily/internal/report"
	"marketdaily/internal/store"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*Gatherer)(nil)

// Resolver is satisfied by *gather.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, inst domain.Instrument) gather.Resolution
}

// Result summarizes a finished pass.
type Result struct {
	Succeeded   []string
	Failed      []string
	UnifiedPath string
	UnifiedRows int
}

// Gatherer resolves and saves every instrument, in declared order, one at a
// time.
type Gatherer struct {
	instruments []domain.Instrument
	resolver    Resolver
	pairs       store.PairWriter
	unified     []store.UnifiedWriter
	runs        store.RunRecorder
	report      report.Reporter
	log         *slog.Logger

	last Result
}

// New creates a Gatherer. The first unified writer is authoritative: its
// failure fails the run and its path is the one reported. Later writers
// (archives) only log on failure. runs may be nil.
func New(instruments []domain.Instrument, resolver Resolver, pairs store.PairWriter, unified []store.UnifiedWriter, runs store.RunRecorder, rep report.Reporter) *Gatherer {
	if runs == nil {
		runs = store.NopRecorder{}
	}
	return &Gatherer{
		instruments: instruments,
		resolver:    resolver,
		pairs:       pairs,
		unified:     unified,
		runs:        runs,
		report:      rep,
		log:         slog.Default().With("gatherer", "daily"),
	}
}

// Name returns the gatherer identifier.
func (g *Gatherer) Name() string { return "daily" }

// Result returns the summary of the most recent Run.
func (g *Gatherer) Result() Result { return g.last }

// Run performs one pass. An instrument with no data is skipped with a
// notice; an empty pass is reported, not returned as an error. Run only
// fails when ctx is cancelled or the merged file cannot be written.
func (g *Gatherer) Run(ctx context.Context) error {
	runStart := time.Now()
	g.last = Result{}

	runID, err := g.runs.Begin(ctx)
	if err != nil {
		g.log.Warn("run log unavailable", "error", err)
	}

	var tagged []domain.TaggedBar
	for _, inst := range g.instruments {
		if ctx.Err() != nil {
			break
		}

		res := g.resolver.Resolve(ctx, inst)
		ok := false

		switch {
		case !res.Found():
			g.report.Skip(inst.Name)
			metrics.IncInstrument("not_found")
			g.log.Warn("no data", "instrument", inst.Name, "attempts", len(res.Attempts))
		default:
			zoned, err := g.pairs.WritePair(inst.Name, res.Series.Bars)
			if err != nil {
				g.report.Failed(inst.Name, err)
				metrics.IncInstrument("write_failed")
				g.log.Error("saving instrument", "instrument", inst.Name, "error", err)
				break
			}
			ok = true
			tagged = append(tagged, domain.Tag(inst.Name, zoned)...)
			metrics.IncInstrument("ok")
			g.log.Info("saved",
				"instrument", inst.Name,
				"source", res.Series.Source,
				"symbol", res.Series.Symbol,
				"rows", len(zoned),
			)
		}

		if ok {
			g.last.Succeeded = append(g.last.Succeeded, inst.Name)
		} else {
			g.last.Failed = append(g.last.Failed, inst.Name)
		}
		if runID != "" {
			if err := g.runs.RecordInstrument(ctx, runID, inst.Name, res.Attempts, ok); err != nil {
				g.log.Warn("recording instrument", "instrument", inst.Name, "error", err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		g.finish(runID)
		return err
	}

	if len(tagged) == 0 {
		g.report.AllFailed()
		g.finish(runID)
		g.log.Warn("no instrument succeeded", "elapsed", time.Since(runStart).Round(time.Millisecond))
		return nil
	}

	SortUnified(tagged)

	for i, w := range g.unified {
		path, err := w.WriteUnified(tagged)
		if err != nil {
			if i == 0 {
				g.finish(runID)
				return fmt.Errorf("writing unified output: %w", err)
			}
			g.log.Error("writing unified archive", "error", err)
			continue
		}
		if i == 0 {
			g.last.UnifiedPath = path
		}
	}
	g.last.UnifiedRows = len(tagged)
	metrics.UnifiedRows.Set(float64(len(tagged)))

	g.report.Unified(g.last.UnifiedPath, len(tagged), len(domain.TaggedColumns))
	g.finish(runID)

	g.log.Info("daily pass complete",
		"succeeded", len(g.last.Succeeded),
		"failed", len(g.last.Failed),
		"rows", len(tagged),
		"elapsed", time.Since(runStart).Round(time.Millisecond),
	)
	return nil
}

func (g *Gatherer) finish(runID string) {
	if runID == "" {
		return
	}
	// The run context may already be cancelled; the summary row is still
	// worth writing.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.runs.Finish(ctx, runID, len(g.last.Succeeded), len(g.last.Failed), g.last.UnifiedRows); err != nil {
		g.log.Warn("finishing run log", "error", err)
	}
}

// SortUnified orders rows by instrument name, then by zoned timestamp, both
// ascending. The sort is stable, so rows with equal keys keep their input
// order.
func SortUnified(rows []domain.TaggedBar) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		return rows[i].Local.Before(rows[j].Local)
	})
}
