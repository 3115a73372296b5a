package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registrar is the subset of the metrics registry the reporter registers with
type Registrar interface {
	RegisterCounter(serviceName, metricName string, counter prometheus.Counter) error
}

type telemetryMetrics struct {
	heartbeats prometheus.Counter
}

func newTelemetryMetrics(registrar Registrar) (*telemetryMetrics, error) {
	if registrar == nil {
		return nil, nil
	}

	m := &telemetryMetrics{
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "telemetry",
			Name:      "heartbeats_total",
			Help:      "Heartbeats published upward",
		}),
	}

	if err := registrar.RegisterCounter("telemetry", "heartbeats_total", m.heartbeats); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *telemetryMetrics) recordHeartbeat() {
	if m == nil {
		return
	}
	m.heartbeats.Inc()
}
