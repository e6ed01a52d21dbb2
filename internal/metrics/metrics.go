// Package metrics holds the Prometheus collectors for a marketdaily run.
// The tool is a batch job, so collectors live on a private registry that is
// dumped to a node_exporter textfile at the end of the run instead of being
// served over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry collects every marketdaily metric.
var Registry = prometheus.NewRegistry()

var (
	// Upstream requests, by source and outcome (hit, empty, error).
	FetchAttemptsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdaily_fetch_attempts_total",
			Help: "Total number of upstream fetch attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	FetchDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketdaily_fetch_duration_seconds",
			Help:    "Duration of upstream fetch attempts in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms → ~25s
		},
		[]string{"source"},
	)

	// Instruments by final result: "ok", "not_found" or "write_failed".
	InstrumentsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdaily_instruments_total",
			Help: "Instruments processed by result.",
		},
		[]string{"result"},
	)

	UnifiedRows = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "marketdaily_unified_rows",
			Help: "Rows written to the unified output by the last run.",
		},
	)

	LastRunTimestamp = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "marketdaily_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		},
	)
)

// ObserveAttempt records one upstream attempt.
func ObserveAttempt(source, outcome string, elapsed time.Duration) {
	FetchAttemptsTotal.WithLabelValues(source, outcome).Inc()
	FetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// IncInstrument records the final result for one instrument.
func IncInstrument(result string) {
	InstrumentsTotal.WithLabelValues(result).Inc()
}

// WriteTextfile stamps the run time and writes all metrics to path in the
// Prometheus text format. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	LastRunTimestamp.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, Registry)
}
