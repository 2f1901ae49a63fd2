// Package metrics provides Prometheus metrics for merge runs. Since a run is
// a one-shot batch, the registry is written to a node_exporter textfile at
// the end instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Merge run metrics
var (
	// rowsTotal counts processed rows.
	// Labels:
	//   - outcome: "merged" or a skip reason (e.g., "unresolved", "decode_failed")
	rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipmerge_rows_total",
			Help: "Total number of sheet rows processed, by outcome",
		},
		[]string{"outcome"},
	)

	// resolveTotal counts successful clip resolutions by the strategy that matched.
	resolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipmerge_resolve_total",
			Help: "Total number of clip references resolved, by strategy",
		},
		[]string{"strategy"},
	)

	// decodeDuration records how long each decode attempt took.
	// Labels:
	//   - backend: decoder name (e.g., "mp3", "wav", "ffmpeg")
	//   - status: "success" or "failed"
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipmerge_decode_duration_seconds",
			Help:    "Duration of clip decode attempts in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend", "status"},
	)

	mergedDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipmerge_merged_duration_seconds",
			Help: "Length of the merged audio produced by the last run",
		},
	)

	lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipmerge_last_run_timestamp_seconds",
			Help: "Unix time at which the last run finished",
		},
	)
)

func init() {
	prometheus.MustRegister(rowsTotal)
	prometheus.MustRegister(resolveTotal)
	prometheus.MustRegister(decodeDuration)
	prometheus.MustRegister(mergedDuration)
	prometheus.MustRegister(lastRunTimestamp)
}

// RecordRow records the outcome of one row.
func RecordRow(outcome string) {
	rowsTotal.WithLabelValues(outcome).Inc()
}

// RecordResolve records which strategy located a clip.
func RecordResolve(strategy string) {
	resolveTotal.WithLabelValues(strategy).Inc()
}

// RecordDecode records one decode attempt. Its signature matches
// audio.DecodeObserver.
func RecordDecode(backend string, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	decodeDuration.WithLabelValues(backend, status).Observe(elapsed.Seconds())
}

// RecordRun records the merged length and marks the run finished.
func RecordRun(mergedMs int, finished time.Time) {
	mergedDuration.Set(float64(mergedMs) / 1000)
	lastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes the default registry in the text exposition format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
