package audio

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registrar is the subset of the metrics registry the manager registers with
type Registrar interface {
	RegisterCounter(serviceName, metricName string, counter prometheus.Counter) error
}

type audioMetrics struct {
	capturedBytes prometheus.Counter
	playedBytes   prometheus.Counter
}

func newAudioMetrics(registrar Registrar) (*audioMetrics, error) {
	if registrar == nil {
		return nil, nil
	}

	m := &audioMetrics{
		capturedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "audio",
			Name:      "captured_bytes_total",
			Help:      "PCM bytes captured and streamed upward",
		}),
		playedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sduiterm",
			Subsystem: "audio",
			Name:      "played_bytes_total",
			Help:      "PCM bytes written to the speaker",
		}),
	}

	if err := registrar.RegisterCounter("audio", "captured_bytes_total", m.capturedBytes); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter("audio", "played_bytes_total", m.playedBytes); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *audioMetrics) recordCapture(n int) {
	if m == nil {
		return
	}
	m.capturedBytes.Add(float64(n))
}

func (m *audioMetrics) recordPlayback(n int) {
	if m == nil {
		return
	}
	m.playedBytes.Add(float64(n))
}
