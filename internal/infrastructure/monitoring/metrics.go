package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "stratisd"

// Metrics holds all Prometheus metrics. Collectors live on a private
// registry so several daemons (or tests) can coexist in one process.
//
// All Record/Set methods accept a nil receiver and do nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Registry metrics
	RegistryOps    *prometheus.CounterVec
	RegistryPools  prometheus.Gauge
	ExposedObjects *prometheus.GaugeVec

	// Batch metrics
	BatchItems *prometheus.CounterVec

	// Bus metrics
	BusCalls    *prometheus.CounterVec
	BusDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for the JSON health endpoint
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON consumers
type MetricsSnapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	BusCalls       int64   `json:"bus_calls"`
	BusFailures    int64   `json:"bus_failures"`
	ExposedObjects int64   `json:"exposed_objects"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector with its own registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),
		ResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		RegistryOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registry_operations_total",
				Help:      "Registry mutations by operation and result code",
			},
			[]string{"op", "status"},
		),
		RegistryPools: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_pools",
				Help:      "Number of live pools",
			},
		),
		ExposedObjects: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "exposed_objects",
				Help:      "Objects currently exported on the bus",
			},
			[]string{"kind"},
		),

		BatchItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batch_items_total",
				Help:      "Bulk operation items by operation and result code",
			},
			[]string{"op", "status"},
		),

		BusCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_calls_total",
				Help:      "Bus method calls by method and result code",
			},
			[]string{"method", "status"},
		),
		BusDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bus_call_duration_seconds",
				Help:      "Bus method call duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"method"},
		),

		WSConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of open event stream connections",
			},
		),
		WSMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Event stream messages sent",
			},
			[]string{"type"},
		),
	}

	uptime := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Daemon uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	m.registry.MustRegister(
		m.RequestsTotal, m.RequestDuration, m.ResponseSize,
		m.RegistryOps, m.RegistryPools, m.ExposedObjects,
		m.BatchItems,
		m.BusCalls, m.BusDuration,
		m.WSConnections, m.WSMessages,
		uptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the gatherer backing /metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRegistryOp records a registry mutation outcome
func (m *Metrics) RecordRegistryOp(op, status string) {
	if m == nil {
		return
	}
	m.RegistryOps.WithLabelValues(op, status).Inc()
}

// SetRegistryPools sets the number of live pools
func (m *Metrics) SetRegistryPools(count int) {
	if m == nil {
		return
	}
	m.RegistryPools.Set(float64(count))
}

// IncExposed increments the exported object gauge for kind
func (m *Metrics) IncExposed(kind string) {
	if m == nil {
		return
	}
	m.ExposedObjects.WithLabelValues(kind).Inc()
	m.mu.Lock()
	m.snapshot.ExposedObjects++
	m.mu.Unlock()
}

// DecExposed decrements the exported object gauge for kind
func (m *Metrics) DecExposed(kind string) {
	if m == nil {
		return
	}
	m.ExposedObjects.WithLabelValues(kind).Dec()
	m.mu.Lock()
	m.snapshot.ExposedObjects--
	m.mu.Unlock()
}

// RecordBatchItem records one bulk operation item
func (m *Metrics) RecordBatchItem(op, status string) {
	if m == nil {
		return
	}
	m.BatchItems.WithLabelValues(op, status).Inc()
}

// RecordBusCall records a bus method call
func (m *Metrics) RecordBusCall(method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BusCalls.WithLabelValues(method, status).Inc()
	m.BusDuration.WithLabelValues(method).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.BusCalls++
	if status != "STRATIS_OK" {
		m.snapshot.BusFailures++
	}
	m.mu.Unlock()
}

// RecordWSMessage records an event stream message
func (m *Metrics) RecordWSMessage(msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(msgType).Inc()
}

// IncWSConnections increments event stream connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements event stream connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns the current JSON-friendly counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
