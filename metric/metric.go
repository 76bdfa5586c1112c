// Package metric exposes Prometheus instrumentation for the extraction
// pipeline: collection and extraction throughput, parser failures, queue
// depth and worker activity.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline-level metrics.
type Metrics struct {
	PathsCollected  prometheus.Counter
	EventsExtracted *prometheus.CounterVec
	EventsFiltered  prometheus.Counter
	EventsStored    prometheus.Counter
	ParserErrors    *prometheus.CounterVec
	WorkersRunning  prometheus.Gauge
	QueueDepth      *prometheus.GaugeVec
	ParseDuration   *prometheus.HistogramVec
}

// NewMetrics creates the pipeline metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		PathsCollected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "plaso",
				Subsystem: "collector",
				Name:      "paths_total",
				Help:      "Total number of path specifications queued for extraction",
			},
		),

		EventsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plaso",
				Subsystem: "worker",
				Name:      "events_total",
				Help:      "Total number of events extracted",
			},
			[]string{"parser"},
		),

		EventsFiltered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "plaso",
				Subsystem: "worker",
				Name:      "events_filtered_total",
				Help:      "Total number of events dropped by the exclusion filter",
			},
		),

		EventsStored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "plaso",
				Subsystem: "storage",
				Name:      "events_total",
				Help:      "Total number of events written to storage",
			},
		),

		ParserErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "plaso",
				Subsystem: "worker",
				Name:      "parser_errors_total",
				Help:      "Total number of parser failures, format rejections excluded",
			},
			[]string{"parser"},
		),

		WorkersRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "plaso",
				Subsystem: "worker",
				Name:      "running",
				Help:      "Number of extraction workers currently running",
			},
		),

		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "plaso",
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Current number of items on a pipeline queue",
			},
			[]string{"queue"},
		),

		ParseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "plaso",
				Subsystem: "worker",
				Name:      "parse_duration_seconds",
				Help:      "Per-file parse duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"parser"},
		),
	}
}

// RecordPathCollected increments the collected path counter.
func (m *Metrics) RecordPathCollected() {
	m.PathsCollected.Inc()
}

// RecordEventExtracted increments the extracted event counter.
func (m *Metrics) RecordEventExtracted(parser string) {
	m.EventsExtracted.WithLabelValues(parser).Inc()
}

// RecordEventFiltered increments the filtered event counter.
func (m *Metrics) RecordEventFiltered() {
	m.EventsFiltered.Inc()
}

// RecordEventStored increments the stored event counter.
func (m *Metrics) RecordEventStored() {
	m.EventsStored.Inc()
}

// RecordParserError increments the parser failure counter.
func (m *Metrics) RecordParserError(parser string) {
	m.ParserErrors.WithLabelValues(parser).Inc()
}

// RecordWorkerStarted and RecordWorkerStopped track the running gauge.
func (m *Metrics) RecordWorkerStarted() { m.WorkersRunning.Inc() }

// RecordWorkerStopped decrements the running worker gauge.
func (m *Metrics) RecordWorkerStopped() { m.WorkersRunning.Dec() }

// RecordQueueDepth sets the depth gauge for one queue.
func (m *Metrics) RecordQueueDepth(queue string, depth int) {
	m.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordParseDuration observes one per-file parse duration.
func (m *Metrics) RecordParseDuration(parser string, duration time.Duration) {
	m.ParseDuration.WithLabelValues(parser).Observe(duration.Seconds())
}

// Registry couples the pipeline metrics with their Prometheus registry.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	metrics            *Metrics
}

// NewRegistry creates a registry with the pipeline metrics and the Go
// runtime collectors registered.
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()
	metrics := NewMetrics()

	prometheusRegistry.MustRegister(
		metrics.PathsCollected,
		metrics.EventsExtracted,
		metrics.EventsFiltered,
		metrics.EventsStored,
		metrics.ParserErrors,
		metrics.WorkersRunning,
		metrics.QueueDepth,
		metrics.ParseDuration,
	)
	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		prometheusRegistry: prometheusRegistry,
		metrics:            metrics,
	}
}

// Metrics returns the pipeline metrics.
func (r *Registry) Metrics() *Metrics {
	return r.metrics
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Handler returns the scrape endpoint handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
}
