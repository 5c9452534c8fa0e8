// Package metrics holds the Prometheus instruments for sync runs, jobs and
// HTTP requests. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scoracle_sync"

// Metrics holds the registered collectors.
type Metrics struct {
	registry *prometheus.Registry

	records      *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runsAborted  prometheus.Counter
	jobs         *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a registry with Go/process collectors and the sync instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records processed by entity syncers, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of sync steps in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"step", "status"}),
		runsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_aborted_total",
			Help:      "Full sync runs stopped by a blocking step failure.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Async sync jobs by final state.",
		}, []string{"state"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status_code"}),
	}
	reg.MustRegister(m.records, m.stepDuration, m.runsAborted, m.jobs, m.httpDuration)
	return m
}

// RecordItem counts one processed record; outcome is "ok" or "fail".
func (m *Metrics) RecordItem(kind, outcome string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(kind, outcome).Inc()
}

// RecordStep observes a finished step.
func (m *Metrics) RecordStep(step string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.stepDuration.WithLabelValues(step, status).Observe(d.Seconds())
}

// RecordAbort counts an aborted run.
func (m *Metrics) RecordAbort() {
	if m == nil {
		return
	}
	m.runsAborted.Inc()
}

// RecordJob counts a job reaching a final state.
func (m *Metrics) RecordJob(state string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(state).Inc()
}

// RecordRequest observes a served HTTP request. route is the router
// pattern, not the raw path.
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
