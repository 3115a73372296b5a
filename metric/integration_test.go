package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePipeline stands in for a runtime component that exports its own metrics
// through the registrar, the way the audio pipeline and layout engine do
type fakePipeline struct {
	name          string
	chunksHandled prometheus.Counter
	queueDepth    prometheus.Gauge
}

func newFakePipeline(name string) *fakePipeline {
	return &fakePipeline{name: name}
}

func (p *fakePipeline) RegisterMetrics(registrar MetricsRegistrar) error {
	p.chunksHandled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sduiterm",
		Subsystem: "pipeline",
		Name:      "chunks_handled_total",
		Help:      "PCM chunks moved through the pipeline",
	})
	if err := registrar.RegisterCounter(p.name, "chunks_handled_total", p.chunksHandled); err != nil {
		return err
	}

	p.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sduiterm",
		Subsystem: "pipeline",
		Name:      "queue_depth",
		Help:      "Chunks waiting in the playback queue",
	})
	return registrar.RegisterGauge(p.name, "queue_depth", p.queueDepth)
}

func (p *fakePipeline) handle(chunks, depth int) {
	p.chunksHandled.Add(float64(chunks))
	p.queueDepth.Set(float64(depth))
}

func TestIntegration_ComponentRegistersOwnMetrics(t *testing.T) {
	registry := NewMetricsRegistry()

	pipeline := newFakePipeline("audio")
	require.NoError(t, pipeline.RegisterMetrics(registry))

	pipeline.handle(10, 5)

	names := gatheredNames(t, registry)
	assert.True(t, names["sduiterm_pipeline_chunks_handled_total"],
		"component counter should be exposed")
	assert.True(t, names["sduiterm_pipeline_queue_depth"],
		"component gauge should be exposed")
}

func TestIntegration_SameComponentCannotRegisterTwice(t *testing.T) {
	registry := NewMetricsRegistry()

	first := newFakePipeline("audio")
	second := newFakePipeline("audio")

	require.NoError(t, first.RegisterMetrics(registry))

	err := second.RegisterMetrics(registry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestIntegration_CoreAndComponentMetricsCoexist(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	pipeline := newFakePipeline("audio")
	require.NoError(t, pipeline.RegisterMetrics(registry))

	core.RecordServiceStatus("audio", 2)
	core.RecordMessageReceived("audio", "audio/play")
	pipeline.handle(5, 3)

	names := gatheredNames(t, registry)

	assert.True(t, names["sduiterm_service_status"])
	assert.True(t, names["sduiterm_messages_received_total"])
	assert.True(t, names["sduiterm_pipeline_chunks_handled_total"])
	assert.True(t, names["sduiterm_pipeline_queue_depth"])

	// Component-owned metrics never leak into the core set
	assert.False(t, names["sduiterm_business_widgets_rendered"])
	assert.False(t, names["sduiterm_business_layouts_total"])
}

func TestIntegration_UnregisterOneMetricKeepsTheRest(t *testing.T) {
	registry := NewMetricsRegistry()

	pipeline := newFakePipeline("audio")
	require.NoError(t, pipeline.RegisterMetrics(registry))
	pipeline.handle(1, 1)

	assert.True(t, gatheredNames(t, registry)["sduiterm_pipeline_chunks_handled_total"])

	assert.True(t, registry.Unregister("audio", "chunks_handled_total"))

	names := gatheredNames(t, registry)
	assert.False(t, names["sduiterm_pipeline_chunks_handled_total"],
		"unregistered metric should be gone")
	assert.True(t, names["sduiterm_pipeline_queue_depth"],
		"the component's other metrics stay")
}

func TestIntegration_PrometheusNameConflictAcrossComponents(t *testing.T) {
	registry := NewMetricsRegistry()

	// Two components registering the same Prometheus metric name collide at
	// the Prometheus layer even though the registry keys differ
	first := newFakePipeline("audio")
	second := newFakePipeline("layout-engine")

	require.NoError(t, first.RegisterMetrics(registry))

	err := second.RegisterMetrics(registry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}
