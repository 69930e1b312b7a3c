// Package metrics exposes Prometheus instrumentation for the batch
// engine: throughput counters, a live-job gauge, and a job duration
// histogram.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector owns the batch engine's Prometheus collectors. A nil
// *Collector is valid and records nothing, so callers never need to
// guard their instrumentation sites.
type Collector struct {
	jobsRunning    prometheus.Gauge
	jobsFinished   *prometheus.CounterVec
	itemsProcessed prometheus.Counter
	itemsFailed    prometheus.Counter
	jobDuration    prometheus.Histogram
}

// NewCollector registers the batch collectors with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		jobsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Name: "batch_jobs_running",
			Help: "Number of batch jobs currently running.",
		}),
		jobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "batch_jobs_finished_total",
			Help: "Batch jobs that reached a terminal state, by status.",
		}, []string{"status"}),
		itemsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_items_processed_total",
			Help: "Items processed successfully across all batch jobs.",
		}),
		itemsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "batch_items_failed_total",
			Help: "Items that exhausted their retries across all batch jobs.",
		}),
		jobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "batch_job_duration_seconds",
			Help:    "Wall-clock duration of finished batch jobs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

// JobStarted records one job entering the running state.
func (c *Collector) JobStarted() {
	if c == nil {
		return
	}
	c.jobsRunning.Inc()
}

// JobFinished records one job reaching a terminal state.
func (c *Collector) JobFinished(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.jobsRunning.Dec()
	c.jobsFinished.WithLabelValues(status).Inc()
	c.jobDuration.Observe(duration.Seconds())
}

// ItemsProcessed adds to the success counter.
func (c *Collector) ItemsProcessed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.itemsProcessed.Add(float64(n))
}

// ItemsFailed adds to the failure counter.
func (c *Collector) ItemsFailed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.itemsFailed.Add(float64(n))
}
