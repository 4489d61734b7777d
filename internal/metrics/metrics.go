// Package metrics exposes Prometheus counters for submissions, job outcomes,
// per-stage candidate failures and queue depth.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	submissions   prometheus.Counter
	cacheHits     prometheus.Counter
	jobsStarted   prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsFailed    *prometheus.CounterVec
	jobDuration   prometheus.Histogram
	jobsInFlight  prometheus.Gauge
	stageFailures *prometheus.CounterVec
	queuePending  prometheus.Gauge
	queueInFlight prometheus.Gauge
}

// NewCollector builds the collector and registers it on reg. A nil reg means
// prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sourcing_jobs_submitted_total",
			Help: "Total number of sourcing jobs accepted by the gateway",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sourcing_cache_hits_total",
			Help: "Submissions answered from the fingerprint cache",
		}),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sourcing_jobs_started_total",
			Help: "Jobs picked up by a worker",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sourcing_jobs_completed_total",
			Help: "Jobs that finished the pipeline",
		}),
		jobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sourcing_jobs_failed_total",
			Help: "Jobs that ended in failed status, by reason",
		}, []string{"reason"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sourcing_job_duration_seconds",
			Help:    "Wall-clock time of a job from pickup to terminal status",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sourcing_jobs_in_flight",
			Help: "Jobs currently executing in this process",
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sourcing_stage_item_failures_total",
			Help: "Per-candidate failures absorbed by a fallback, by stage",
		}, []string{"stage"}),
		queuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sourcing_queue_pending",
			Help: "Descriptors waiting in the queue",
		}),
		queueInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sourcing_queue_processing",
			Help: "Descriptors claimed but not yet acknowledged",
		}),
	}

	reg.MustRegister(
		c.submissions,
		c.cacheHits,
		c.jobsStarted,
		c.jobsCompleted,
		c.jobsFailed,
		c.jobDuration,
		c.jobsInFlight,
		c.stageFailures,
		c.queuePending,
		c.queueInFlight,
	)
	return c
}

func (c *Collector) RecordSubmission() {
	if c == nil {
		return
	}
	c.submissions.Inc()
}

func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

func (c *Collector) RecordStarted() {
	if c == nil {
		return
	}
	c.jobsStarted.Inc()
	c.jobsInFlight.Inc()
}

func (c *Collector) RecordCompleted(seconds float64) {
	if c == nil {
		return
	}
	c.jobsCompleted.Inc()
	c.jobDuration.Observe(seconds)
	c.jobsInFlight.Dec()
}

// RecordFailed counts a failed job. reason is a small fixed set such as
// "search", "timeout" or "pipeline".
func (c *Collector) RecordFailed(reason string, seconds float64) {
	if c == nil {
		return
	}
	c.jobsFailed.WithLabelValues(reason).Inc()
	c.jobDuration.Observe(seconds)
	c.jobsInFlight.Dec()
}

func (c *Collector) ObserveStageFailure(stage string) {
	if c == nil {
		return
	}
	c.stageFailures.WithLabelValues(stage).Inc()
}

func (c *Collector) UpdateQueueStats(pending, processing int64) {
	if c == nil {
		return
	}
	c.queuePending.Set(float64(pending))
	c.queueInFlight.Set(float64(processing))
}

// Handler serves the given gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
