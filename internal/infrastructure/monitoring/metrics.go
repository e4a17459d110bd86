package monitoring

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/otelpipe/internal/telemetry/export"
)

const namespace = "otelpipe"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Pipeline metrics
	RecordsEnqueued   *prometheus.CounterVec
	RecordsDropped    *prometheus.CounterVec
	RecordsExported   *prometheus.CounterVec
	ExportFailures    *prometheus.CounterVec
	TranslationErrors prometheus.Counter

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer

	// Totals for the JSON status endpoint
	enqueued     atomic.Uint64
	dropped      atomic.Uint64
	exported     atomic.Uint64
	failed       atomic.Uint64
	translations atomic.Uint64
}

// Snapshot holds pipeline totals for the JSON API
type Snapshot struct {
	Enqueued          uint64 `json:"enqueued"`
	Dropped           uint64 `json:"dropped"`
	Exported          uint64 `json:"exported"`
	ExportFailures    uint64 `json:"exportFailures"`
	TranslationErrors uint64 `json:"translationErrors"`
}

var _ export.Observer = (*Metrics)(nil)

// NewMetrics registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,

		RecordsEnqueued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_enqueued_total",
				Help:      "Telemetry records accepted into an export queue",
			},
			[]string{"exporter"},
		),
		RecordsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_dropped_total",
				Help:      "Telemetry records dropped before export",
			},
			[]string{"exporter", "reason"},
		),
		RecordsExported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_exported_total",
				Help:      "Telemetry records delivered to the transport",
			},
			[]string{"exporter"},
		),
		ExportFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_failures_total",
				Help:      "Export batches discarded after a transport failure",
			},
			[]string{"exporter"},
		),
		TranslationErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "translation_errors_total",
				Help:      "Log lines that could not be parsed",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Enqueued implements export.Observer.
func (m *Metrics) Enqueued(exporter string) {
	m.RecordsEnqueued.WithLabelValues(exporter).Inc()
	m.enqueued.Add(1)
}

// Dropped implements export.Observer.
func (m *Metrics) Dropped(exporter string, reason export.DropReason) {
	m.RecordsDropped.WithLabelValues(exporter, string(reason)).Inc()
	m.dropped.Add(1)
}

// Exported implements export.Observer.
func (m *Metrics) Exported(exporter string, records int) {
	m.RecordsExported.WithLabelValues(exporter).Add(float64(records))
	m.exported.Add(uint64(records))
}

// ExportFailed implements export.Observer.
func (m *Metrics) ExportFailed(exporter string, _ int, _ error) {
	m.ExportFailures.WithLabelValues(exporter).Inc()
	m.failed.Add(1)
}

// TranslationError counts a log line that could not be parsed.
func (m *Metrics) TranslationError(error) {
	m.TranslationErrors.Inc()
	m.translations.Add(1)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Snapshot returns the pipeline totals.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Enqueued:          m.enqueued.Load(),
		Dropped:           m.dropped.Load(),
		Exported:          m.exported.Load(),
		ExportFailures:    m.failed.Load(),
		TranslationErrors: m.translations.Load(),
	}
}
