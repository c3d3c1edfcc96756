package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records per-job outcomes for the cron worker.
type CronJobMetrics struct {
	duration  *prometheus.HistogramVec
	successes *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewCronJobMetrics registers the cron job metrics on the provided registerer.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Wall-clock duration of each cron job run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	successes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_success",
		Help: "Completed cron job runs, by job.",
	}, []string{"job"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_failure",
		Help: "Failed cron job runs, by job.",
	}, []string{"job"})
	reg.MustRegister(duration, successes, failures)
	return &CronJobMetrics{
		duration:  duration,
		successes: successes,
		failures:  failures,
	}
}

// ObserveDuration records how long a job run took.
func (c *CronJobMetrics) ObserveDuration(job string, d time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

// IncSuccess increments the success counter for the job.
func (c *CronJobMetrics) IncSuccess(job string) {
	if c == nil || c.successes == nil {
		return
	}
	c.successes.WithLabelValues(normalizeLabel(job)).Inc()
}

// IncFailure increments the failure counter for the job.
func (c *CronJobMetrics) IncFailure(job string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(job)).Inc()
}
