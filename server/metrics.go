package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teranos/hamcall/snapshot"
)

const metricsNamespace = "hamcall"

// Metrics is the service's prometheus instrumentation. Each Server owns a
// registry so several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	lookups        *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
	requests       *prometheus.CounterVec
	rateLimited    prometheus.Counter
	datasetRecords *prometheus.GaugeVec
	datasetDate    prometheus.Gauge
	datasetReloads prometheus.Counter
	wsClients      prometheus.Gauge
	recordFailures prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lookups_total",
			Help:      "Callsign lookups by source and outcome.",
		}, []string{"source", "outcome"}),
		lookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "lookup_duration_seconds",
			Help:      "Time spent analyzing one callsign.",
			Buckets:   []float64{.00001, .000025, .00005, .0001, .00025, .0005, .001, .005, .01},
		}, []string{"source"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		datasetRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_records",
			Help:      "Records in the loaded dataset by kind.",
		}, []string{"kind"}),
		datasetDate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_date_seconds",
			Help:      "Snapshot date of the loaded dataset as a unix timestamp.",
		}),
		datasetReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_reloads_total",
			Help:      "Datasets installed since start.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}),
		recordFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lookup_record_failures_total",
			Help:      "Lookups that could not be written to the lookup log.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.lookups,
		m.lookupDuration,
		m.requests,
		m.rateLimited,
		m.datasetRecords,
		m.datasetDate,
		m.datasetReloads,
		m.wsClients,
		m.recordFailures,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLookup counts one analysis.
func (m *Metrics) ObserveLookup(source, outcome string, d time.Duration) {
	m.lookups.WithLabelValues(source, outcome).Inc()
	m.lookupDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveRequest counts one HTTP response.
func (m *Metrics) ObserveRequest(route string, code int) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveSnapshot updates the dataset gauges. It is registered as a
// snapshot.Store reload callback.
func (m *Metrics) ObserveSnapshot(snap *snapshot.Snapshot) {
	stats := snap.Dataset.Stats()
	m.datasetRecords.WithLabelValues("entity").Set(float64(stats.Entities))
	m.datasetRecords.WithLabelValues("prefix").Set(float64(stats.Prefixes))
	m.datasetRecords.WithLabelValues("exception").Set(float64(stats.Exceptions))
	m.datasetRecords.WithLabelValues("invalid_operation").Set(float64(stats.InvalidOperations))
	m.datasetRecords.WithLabelValues("zone_exception").Set(float64(stats.ZoneExceptions))
	if !stats.Date.IsZero() {
		m.datasetDate.Set(float64(stats.Date.Unix()))
	}
	m.datasetReloads.Inc()
}
