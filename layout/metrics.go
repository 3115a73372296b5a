package layout

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registrar is the subset of the metrics registry the engine registers with
type Registrar interface {
	RegisterCounter(serviceName, metricName string, counter prometheus.Counter) error
	RegisterGauge(serviceName, metricName string, gauge prometheus.Gauge) error
}

type layoutMetrics struct {
	renders        prometheus.Counter
	renderFailures prometheus.Counter
	updates        prometheus.Counter
	actions        prometheus.Counter
	widgets        prometheus.Gauge
}

func newLayoutMetrics(registrar Registrar) (*layoutMetrics, error) {
	if registrar == nil {
		return nil, nil
	}

	m := &layoutMetrics{
		renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "layout",
			Name:      "renders_total",
			Help:      "Full scene re-materialisations",
		}),
		renderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "layout",
			Name:      "render_failures_total",
			Help:      "Layout payloads rejected at parse",
		}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "layout",
			Name:      "updates_total",
			Help:      "Incremental node updates applied",
		}),
		actions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "layout",
			Name:      "actions_total",
			Help:      "Action URIs dispatched",
		}),
		widgets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sduiterm",
			Subsystem: "layout",
			Name:      "widgets",
			Help:      "Addressable widgets in the current scene",
		}),
	}

	if err := registrar.RegisterCounter("layout", "renders_total", m.renders); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter("layout", "render_failures_total", m.renderFailures); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter("layout", "updates_total", m.updates); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter("layout", "actions_total", m.actions); err != nil {
		return nil, err
	}
	if err := registrar.RegisterGauge("layout", "widgets", m.widgets); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *layoutMetrics) recordRender(widgets int) {
	if m == nil {
		return
	}
	m.renders.Inc()
	m.widgets.Set(float64(widgets))
}

func (m *layoutMetrics) recordRenderFailure() {
	if m == nil {
		return
	}
	m.renderFailures.Inc()
}

func (m *layoutMetrics) recordUpdate() {
	if m == nil {
		return
	}
	m.updates.Inc()
}

func (m *layoutMetrics) recordAction() {
	if m == nil {
		return
	}
	m.actions.Inc()
}
