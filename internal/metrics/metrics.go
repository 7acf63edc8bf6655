// Package metrics records evaluation-run counters on a private Prometheus
// registry and exports them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "phydiff"

// Outcome labels for FilesTotal.
const (
	OutcomeEstimated = "estimated"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeUnread    = "unreadable"
)

// Recorder owns the run's collectors. All methods are safe on a nil
// receiver, which records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	files      *prometheus.CounterVec
	estimate   prometheus.Histogram
	reference  *prometheus.HistogramVec
	refFailed  *prometheus.CounterVec
	difficulty prometheus.Histogram
	lastRun    prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Alignment files processed, by outcome.",
		}, []string{"outcome"}),
		estimate: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "estimate_duration_seconds",
			Help:      "Wall-clock time of one native difficulty estimate.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		reference: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reference_duration_seconds",
			Help:      "Wall-clock time of successful reference tool runs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"tool"}),
		refFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reference_failures_total",
			Help:      "Reference tool runs that failed.",
		}, []string{"tool"}),
		difficulty: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "difficulty",
			Help:      "Distribution of rounded native difficulties.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	r.registry.MustRegister(r.files, r.estimate, r.reference, r.refFailed, r.difficulty, r.lastRun)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// File counts one file with the given outcome.
func (r *Recorder) File(outcome string) {
	if r == nil {
		return
	}
	r.files.WithLabelValues(outcome).Inc()
}

// Estimate records a successful estimate.
func (r *Recorder) Estimate(elapsed time.Duration, difficulty float64) {
	if r == nil {
		return
	}
	r.estimate.Observe(elapsed.Seconds())
	r.difficulty.Observe(difficulty)
}

// Reference records one reference tool run; ok false counts a failure.
func (r *Recorder) Reference(tool string, elapsed time.Duration, ok bool) {
	if r == nil {
		return
	}
	if !ok {
		r.refFailed.WithLabelValues(tool).Inc()
		return
	}
	r.reference.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// WriteTextfile stamps the finish time and writes every metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	r.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}
