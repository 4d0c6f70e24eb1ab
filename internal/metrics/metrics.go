// Package metrics exports per-run clone counters in the Prometheus text format.
// Each run gets its own registry, written once to a node-exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"flowclone/internal/replicate"
)

// Recorder aggregates run reports into Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	considered  *prometheus.CounterVec
	written     *prometheus.CounterVec
	compensated *prometheus.CounterVec
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewRecorder builds a recorder with a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		considered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowclone_rows_considered_total",
			Help: "Source rows staged for copy.",
		}, []string{"table", "scope"}),
		written: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowclone_rows_written_total",
			Help: "Rows inserted into the destination.",
		}, []string{"table", "scope"}),
		compensated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowclone_rows_compensated_total",
			Help: "Rows deleted again after a failed write.",
		}, []string{"table"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowclone_runs_total",
			Help: "Runs by outcome and mapping mode.",
		}, []string{"outcome", "mode"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowclone_run_duration_seconds",
			Help:    "Wall time of a run.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	r.registry.MustRegister(r.considered, r.written, r.compensated, r.runs, r.duration)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe adds one finished run.
func (r *Recorder) Observe(report replicate.Report) {
	for _, t := range report.Tables {
		scope := string(t.Scope)
		r.considered.WithLabelValues(t.Table, scope).Add(float64(t.RowsConsidered))
		r.written.WithLabelValues(t.Table, scope).Add(float64(t.RowsWritten))
		if t.RowsCompensated > 0 {
			r.compensated.WithLabelValues(t.Table).Add(float64(t.RowsCompensated))
		}
	}
	outcome := report.Outcome
	if outcome == "" {
		outcome = replicate.OutcomeFailed
	}
	r.runs.WithLabelValues(outcome, report.Mode).Inc()
	r.duration.Observe(report.Duration().Seconds())
}

// WriteFile writes the registry atomically to path.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
