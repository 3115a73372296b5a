package mem

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registrar is the subset of the metrics registry regions register with
type Registrar interface {
	RegisterGauge(serviceName, metricName string, gauge prometheus.Gauge) error
}

// regionMetrics carries per-region usage gauges. A nil receiver disables
// recording, matching the registrar-optional pattern used across the runtime.
type regionMetrics struct {
	usedBytes prometheus.Gauge
	freeBytes prometheus.Gauge
}

func newRegionMetrics(registrar Registrar, region string) (*regionMetrics, error) {
	if registrar == nil {
		return nil, nil
	}

	m := &regionMetrics{
		usedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "sduiterm",
			Subsystem:   "mem",
			Name:        "region_used_bytes",
			Help:        "Bytes currently reserved in the region",
			ConstLabels: prometheus.Labels{"region": region},
		}),
		freeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "sduiterm",
			Subsystem:   "mem",
			Name:        "region_free_bytes",
			Help:        "Bytes still available in the region",
			ConstLabels: prometheus.Labels{"region": region},
		}),
	}

	if err := registrar.RegisterGauge("mem", region+"_region_used_bytes", m.usedBytes); err != nil {
		return nil, err
	}
	if err := registrar.RegisterGauge("mem", region+"_region_free_bytes", m.freeBytes); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *regionMetrics) update(used, free int64) {
	if m == nil {
		return
	}
	m.usedBytes.Set(float64(used))
	m.freeBytes.Set(float64(free))
}
