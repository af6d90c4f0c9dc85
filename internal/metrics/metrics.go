// Package metrics exposes Prometheus instrumentation for the job core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the job lifecycle metrics. Construct it with the registry
// the process exposes; tests pass a private registry.
type Collector struct {
	jobsSubmitted *prometheus.CounterVec
	jobsCompleted *prometheus.CounterVec
	dispatches    *prometheus.CounterVec
	jobDuration   prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nirest_jobs_submitted_total",
			Help: "Total number of import jobs accepted, by mode",
		}, []string{"mode"}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nirest_jobs_finished_total",
			Help: "Total number of import jobs reaching a terminal state, by status",
		}, []string{"status"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nirest_dispatches_total",
			Help: "Total number of dispatch decisions, by execution mode",
		}, []string{"execution_mode"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nirest_job_duration_seconds",
			Help:    "Import job execution duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
	}

	reg.MustRegister(c.jobsSubmitted, c.jobsCompleted, c.dispatches, c.jobDuration)
	return c
}

func (c *Collector) RecordSubmitted(mode string) {
	c.jobsSubmitted.WithLabelValues(mode).Inc()
}

func (c *Collector) RecordDispatch(executionMode string) {
	c.dispatches.WithLabelValues(executionMode).Inc()
}

func (c *Collector) RecordCompleted(status string, durationSeconds float64) {
	c.jobsCompleted.WithLabelValues(status).Inc()
	if durationSeconds > 0 {
		c.jobDuration.Observe(durationSeconds)
	}
}
