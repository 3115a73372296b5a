// Package metric provides Prometheus-based metrics collection and an HTTP server
// for sduiterm runtime monitoring and observability.
//
// The package offers a centralized metrics registry managing both core platform
// metrics (service status, message flow, server link health) and custom
// service-specific metrics. It includes an HTTP server exposing metrics in
// Prometheus format for monitoring system integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Platform-level metrics automatically registered (Metrics type)
//  2. Service Registry: Extensible registration for service-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// This architecture separates infrastructure concerns (core metrics) from
// application concerns (service-specific metrics) while providing a unified
// metrics endpoint for monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core platform metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordServiceStatus("layout-engine", 2)
//	coreMetrics.RecordMessageReceived("layout-engine", "layout")
//	coreMetrics.RecordLinkStatus(true)
//
// The metrics server will expose Prometheus-formatted metrics at http://localhost:9090/metrics
// and a health check at http://localhost:9090/health.
//
// # Core Metrics
//
// The package automatically registers core platform metrics tracking:
//
//   - Service lifecycle: service_status (0=created, 1=initialized, 2=started, 3=stopped, 4=failed)
//   - Message flow: messages_received_total, messages_processed_total, messages_published_total
//   - Processing performance: processing_duration_seconds
//   - Server link: link_connected, link_reconnects_total, link_tx_dropped_total, link_rx_frames_total
//   - Error tracking: errors_total
//
// # Service-Specific Metrics
//
// Services register custom metrics through the registry:
//
//	shakeCounter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Name: "shake_events_total",
//	    Help: "Total number of shake gestures detected",
//	})
//	err := registry.RegisterCounter("imu", "shake_events_total", shakeCounter)
//
//	activeAnimations := prometheus.NewGauge(prometheus.GaugeOpts{
//	    Name: "active_animations",
//	    Help: "Number of animations currently running",
//	})
//	err = registry.RegisterGauge("layout-engine", "active_animations", activeAnimations)
//
// Vector variants (RegisterCounterVec, RegisterGaugeVec, RegisterHistogramVec)
// support labeled metrics for multi-dimensional data.
//
// # MetricsRegistrar Interface
//
// Services depend on the MetricsRegistrar interface rather than the concrete
// registry, which enables testing with mock registrars and loose coupling:
//
//	func NewAudioPipeline(metrics metric.MetricsRegistrar) *AudioPipeline {
//	    counter := prometheus.NewCounter(prometheus.CounterOpts{
//	        Name: "pcm_chunks_total",
//	        Help: "Total PCM chunks captured",
//	    })
//	    metrics.RegisterCounter("audio", "pcm_chunks_total", counter)
//	    ...
//	}
//
// # Prometheus Integration
//
// All core metrics use the namespace "sduiterm" and appropriate subsystems:
//   - sduiterm_service_status{service="..."}
//   - sduiterm_messages_processed_total{service="..."}
//   - sduiterm_link_connected
//
// Service-specific metrics are exposed under the name set in their own options
// (Namespace, Subsystem, Name); the name passed at registration is the
// registry's key for duplicate checks and Unregister.
//
// # Error Handling
//
// Registration methods return classified errors for duplicate registration,
// Prometheus conflicts, and validation failures. Duplicate and conflict errors
// are Invalid (do not retry); internal registration failures are Fatal.
//
// # Thread Safety
//
// All registry operations are thread-safe:
//   - Registration methods use mutex protection
//   - Metric recording is lock-free (Prometheus guarantee)
//   - CoreMetrics() returns a thread-safe shared instance
//   - PrometheusRegistry() is safe for concurrent access
package metric
