package imu

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registrar is the subset of the metrics registry the detector registers with
type Registrar interface {
	RegisterCounter(serviceName, metricName string, counter prometheus.Counter) error
}

type imuMetrics struct {
	samples prometheus.Counter
	shakes  prometheus.Counter
}

func newIMUMetrics(registrar Registrar) (*imuMetrics, error) {
	if registrar == nil {
		return nil, nil
	}

	m := &imuMetrics{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "imu",
			Name:      "samples_total",
			Help:      "Accelerometer samples read",
		}),
		shakes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "imu",
			Name:      "shakes_total",
			Help:      "Shake events published upward",
		}),
	}

	if err := registrar.RegisterCounter("imu", "samples_total", m.samples); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter("imu", "shakes_total", m.shakes); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *imuMetrics) recordSample() {
	if m == nil {
		return
	}
	m.samples.Inc()
}

func (m *imuMetrics) recordShake() {
	if m == nil {
		return
	}
	m.shakes.Inc()
}
