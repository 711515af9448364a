// Package metrics provides Prometheus metrics for plandeck.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	SchedulesTotal     *prometheus.CounterVec
	ScheduleDuration   prometheus.Histogram
	TasksScheduled     prometheus.Gauge
	AnomaliesTotal     prometheus.Counter
	PlanCacheHitsTotal *prometheus.CounterVec
	HTTPErrorsTotal    *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		SchedulesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plandeck_schedules_total",
				Help: "Total schedule computations by outcome.",
			},
			[]string{"outcome"}, // ok | degraded (structural anomaly present)
		),
		ScheduleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "plandeck_schedule_duration_seconds",
				Help:    "Wall time spent computing one schedule.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		TasksScheduled: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "plandeck_tasks_scheduled",
				Help: "Task count of the most recently computed schedule.",
			},
		),
		AnomaliesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plandeck_structural_anomalies_total",
				Help: "Snapshots with tasks excluded by a cycle or dangling reference.",
			},
		),
		PlanCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plandeck_plan_cache_requests_total",
				Help: "Plan cache lookups by result.",
			},
			[]string{"result"}, // hit | miss
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plandeck_http_errors_total",
				Help: "HTTP error responses by status class and route.",
			},
			[]string{"status", "route"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plandeck_notifications_total",
				Help: "Slack notification deliveries by result.",
			},
			[]string{"result"}, // sent | failed | skipped
		),
		registry: reg,
	}

	reg.MustRegister(m.SchedulesTotal)
	reg.MustRegister(m.ScheduleDuration)
	reg.MustRegister(m.TasksScheduled)
	reg.MustRegister(m.AnomaliesTotal)
	reg.MustRegister(m.PlanCacheHitsTotal)
	reg.MustRegister(m.HTTPErrorsTotal)
	reg.MustRegister(m.NotificationsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSchedule observes one schedule computation.
func (m *Metrics) RecordSchedule(taskCount int, degraded bool, seconds float64) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
		m.AnomaliesTotal.Inc()
	}
	m.SchedulesTotal.WithLabelValues(outcome).Inc()
	m.ScheduleDuration.Observe(seconds)
	m.TasksScheduled.Set(float64(taskCount))
}

// RecordCache observes one plan cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.PlanCacheHitsTotal.WithLabelValues(result).Inc()
}

// RecordHTTPError increments the HTTP error counter.
func (m *Metrics) RecordHTTPError(status, route string) {
	m.HTTPErrorsTotal.WithLabelValues(status, route).Inc()
}

// RecordNotification increments the notification counter.
func (m *Metrics) RecordNotification(result string) {
	m.NotificationsTotal.WithLabelValues(result).Inc()
}
