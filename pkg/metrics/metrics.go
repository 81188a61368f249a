// Package metrics exposes the process's Prometheus collectors on a private
// registry so tests can assert on them without touching the global one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the platform records.
type Metrics struct {
	registry *prometheus.Registry

	TickDuration     *prometheus.HistogramVec
	BatchesWritten   *prometheus.CounterVec
	BatchesUnchanged *prometheus.CounterVec
	FetchErrors      *prometheus.CounterVec
	ParseErrors      *prometheus.CounterVec
	TicksSkipped     *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	CasesResolved    prometheus.Counter
	CasesReopened    prometheus.Counter
	RetentionDeleted *prometheus.CounterVec
}

// New builds the collectors under the given namespace and registers them on
// a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.TickDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_duration_seconds",
		Help:      "Duration of one scheduler tick per job.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})

	m.BatchesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_written_total",
		Help:      "Collection batches written because the payload changed.",
	}, []string{"collection_type"})

	m.BatchesUnchanged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_unchanged_total",
		Help:      "Polls that matched the previous hash and only touched last_checked_at.",
	}, []string{"collection_type"})

	m.FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_errors_total",
		Help:      "Upstream transport or HTTP failures per source.",
	}, []string{"source"})

	m.ParseErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_errors_total",
		Help:      "Parser failures per collection type.",
	}, []string{"collection_type"})

	m.TicksSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_skipped_total",
		Help:      "Scheduler ticks skipped because the previous run had not finished.",
	}, []string{"job"})

	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served.",
	}, []string{"method", "path", "status"})

	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.CasesResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cases_auto_resolved_total",
		Help:      "Cases resolved by the stability sweep.",
	})

	m.CasesReopened = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cases_auto_reopened_total",
		Help:      "Resolved cases reopened after ping regressed.",
	})

	m.RetentionDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retention_rows_deleted_total",
		Help:      "Rows purged by the retention sweeper.",
	}, []string{"table"})

	m.registry.MustRegister(
		m.TickDuration, m.BatchesWritten, m.BatchesUnchanged,
		m.FetchErrors, m.ParseErrors, m.TicksSkipped,
		m.HTTPRequests, m.HTTPDuration,
		m.CasesResolved, m.CasesReopened, m.RetentionDeleted,
	)
	return m
}

// Gatherer exposes the private registry for the /metrics handler.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }
