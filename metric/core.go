package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries the platform-wide instruments shared across subsystems.
// Components register their own domain metrics through the registry; what
// lives here is the dispatch plumbing every subsystem flows through and the
// server link.
type Metrics struct {
	// Service metrics
	ServiceStatus      *prometheus.GaugeVec
	MessagesReceived   *prometheus.CounterVec
	MessagesProcessed  *prometheus.CounterVec
	MessagesPublished  *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
	HealthCheckStatus  *prometheus.GaugeVec

	// Server link metrics
	LinkConnected  prometheus.Gauge
	LinkReconnects prometheus.Counter
	LinkTxDropped  prometheus.Counter
	LinkRxFrames   prometheus.Counter
}

// NewMetrics builds the shared platform instruments. The registry registers
// them once at construction.
func NewMetrics() *Metrics {
	return &Metrics{
		// Service metrics
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sduiterm",
				Subsystem: "service",
				Name:      "status",
				Help:      "Service lifecycle state (0=created, 1=initialized, 2=started, 3=stopped, 4=failed)",
			},
			[]string{"service"},
		),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sduiterm",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Downlink payloads handed to subsystem handlers",
			},
			[]string{"service", "type"},
		),

		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sduiterm",
				Subsystem: "messages",
				Name:      "processed_total",
				Help:      "Handler outcomes per topic, labelled ok or error",
			},
			[]string{"service", "type", "status"},
		),

		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sduiterm",
				Subsystem: "messages",
				Name:      "published_total",
				Help:      "Uplink envelopes published by subsystems",
			},
			[]string{"service", "topic"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sduiterm",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Handler execution time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sduiterm",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Subsystem errors by type",
			},
			[]string{"service", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sduiterm",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"service"},
		),

		// Server link metrics
		LinkConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sduiterm",
				Subsystem: "link",
				Name:      "connected",
				Help:      "Server link status (0=disconnected, 1=connected)",
			},
		),

		LinkReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sduiterm",
				Subsystem: "link",
				Name:      "reconnects_total",
				Help:      "Total number of server link reconnections",
			},
		),

		LinkTxDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sduiterm",
				Subsystem: "link",
				Name:      "tx_dropped_total",
				Help:      "Total number of outbound frames dropped while disconnected",
			},
		),

		LinkRxFrames: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sduiterm",
				Subsystem: "link",
				Name:      "rx_frames_total",
				Help:      "Total number of complete frames received from the server",
			},
		),
	}
}

// RecordServiceStatus records a service's lifecycle state
func (c *Metrics) RecordServiceStatus(service string, status int) {
	c.ServiceStatus.WithLabelValues(service).Set(float64(status))
}

// RecordMessageReceived increments received message counter
func (c *Metrics) RecordMessageReceived(service, messageType string) {
	c.MessagesReceived.WithLabelValues(service, messageType).Inc()
}

// RecordMessageProcessed increments processed message counter
func (c *Metrics) RecordMessageProcessed(service, messageType, status string) {
	c.MessagesProcessed.WithLabelValues(service, messageType, status).Inc()
}

// RecordMessagePublished increments published message counter
func (c *Metrics) RecordMessagePublished(service, topic string) {
	c.MessagesPublished.WithLabelValues(service, topic).Inc()
}

// RecordProcessingDuration records processing time
func (c *Metrics) RecordProcessingDuration(service, operation string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordError increments error counter
func (c *Metrics) RecordError(service, errorType string) {
	c.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(service string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(service).Set(value)
}

// RecordLinkStatus updates server link connection status
func (c *Metrics) RecordLinkStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.LinkConnected.Set(value)
}

// RecordLinkReconnect increments reconnection counter
func (c *Metrics) RecordLinkReconnect() {
	c.LinkReconnects.Inc()
}

// RecordLinkTxDropped increments the dropped outbound frame counter
func (c *Metrics) RecordLinkTxDropped() {
	c.LinkTxDropped.Inc()
}

// RecordLinkRxFrame increments the received frame counter
func (c *Metrics) RecordLinkRxFrame() {
	c.LinkRxFrames.Inc()
}
