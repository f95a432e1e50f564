package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for acquisition.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	RecordsTotal       *prometheus.CounterVec
	RetriesTotal       *prometheus.CounterVec
	FallbacksTotal     *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	MissingTablesTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitibrasil_requests_total",
			Help: "Total HTTP requests issued against the publisher.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vitibrasil_request_duration_seconds",
			Help:    "HTTP request latency for page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitibrasil_records_total",
			Help: "Records returned by category and source.",
		},
		[]string{"category", "source"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitibrasil_retries_total",
			Help: "Scrape attempts retried after a transient failure.",
		},
		[]string{"category"},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitibrasil_fallbacks_total",
			Help: "Fetches answered from the CSV mirrors, by reason.",
		},
		[]string{"category", "reason"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitibrasil_errors_total",
			Help: "Total number of request errors by type.",
		},
		[]string{"error_type"},
	)
	missingTables := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitibrasil_missing_tables_total",
			Help: "Pages served without a data table.",
		},
		[]string{"category"},
	)

	registry.MustRegister(requests, requestDuration, records, retries, fallbacks, errorsTotal, missingTables)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		RecordsTotal:       records,
		RetriesTotal:       retries,
		FallbacksTotal:     fallbacks,
		ErrorsTotal:        errorsTotal,
		MissingTablesTotal: missingTables,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddRecords counts records returned for a category from a source.
func (m *Metrics) AddRecords(category, source string, n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(category, source).Add(float64(n))
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries(category string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(category).Inc()
}

// IncFallback counts a switch to the CSV mirrors.
func (m *Metrics) IncFallback(category, reason string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(category, reason).Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncMissingTable counts a page without a data table.
func (m *Metrics) IncMissingTable(category string) {
	if m == nil {
		return
	}
	m.MissingTablesTotal.WithLabelValues(category).Inc()
}
