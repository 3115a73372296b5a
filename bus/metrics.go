package bus

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registrar is the subset of the metrics registry the bus registers with
type Registrar interface {
	RegisterCounter(serviceName, metricName string, counter prometheus.Counter) error
	RegisterCounterVec(serviceName, metricName string, counterVec *prometheus.CounterVec) error
}

type busMetrics struct {
	deliveries prometheus.Counter
	uplinks    prometheus.Counter
	drops      *prometheus.CounterVec
}

func newBusMetrics(registrar Registrar) (*busMetrics, error) {
	if registrar == nil {
		return nil, nil
	}

	m := &busMetrics{
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "bus",
			Name:      "deliveries_total",
			Help:      "Payloads delivered to subscribers",
		}),
		uplinks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "bus",
			Name:      "uplinks_total",
			Help:      "Envelopes handed to the transport",
		}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "bus",
			Name:      "drops_total",
			Help:      "Messages dropped by the bus",
		}, []string{"reason"}),
	}

	if err := registrar.RegisterCounter("bus", "deliveries_total", m.deliveries); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter("bus", "uplinks_total", m.uplinks); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounterVec("bus", "drops_total", m.drops); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *busMetrics) recordDeliveries(n int) {
	if m == nil {
		return
	}
	m.deliveries.Add(float64(n))
}

func (m *busMetrics) recordUplink() {
	if m == nil {
		return
	}
	m.uplinks.Inc()
}

func (m *busMetrics) recordDrop(reason string) {
	if m == nil {
		return
	}
	m.drops.WithLabelValues(reason).Inc()
}
