// Package jobmetrics holds the Prometheus collectors for background jobs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "shepherd"

	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics exposes Prometheus collectors for background jobs. A nil *Metrics
// records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	pruned      prometheus.Counter
	now         func() time.Time
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against registerer. A nil registerer
// shares one set registered on the default Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = register(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return register(registerer)
}

// Run executes fn as one run of job and records its outcome. fn's error is
// returned untouched.
func (m *Metrics) Run(job string, fn func() error) error {
	if m == nil {
		return fn()
	}
	start := m.now()
	err := fn()
	m.duration.WithLabelValues(job).Observe(m.now().Sub(start).Seconds())
	if err != nil {
		m.runs.WithLabelValues(job, statusFailure).Inc()
		m.failures.WithLabelValues(job).Inc()
		return err
	}
	m.runs.WithLabelValues(job, statusSuccess).Inc()
	m.lastSuccess.WithLabelValues(job).Set(float64(m.now().Unix()))
	return nil
}

// AddPrunedSessions counts expired session rows removed by the prune job.
func (m *Metrics) AddPrunedSessions(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.pruned.Add(float64(n))
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Job executions by job name and status.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failures_total",
			Help:      "Failed job executions by job name.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of job executions.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run by job name.",
		}, []string{"job"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_pruned_total",
			Help:      "Expired user sessions deleted by the prune job.",
		}),
		now: time.Now,
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.lastSuccess, m.pruned)
	return m
}
