package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sduiterm/config"
	"github.com/c360/sduiterm/mem"
)

type fakeNet struct {
	rssi int
	ip   string
}

func (f *fakeNet) RSSI() int { return f.rssi }
func (f *fakeNet) IP() string { return f.ip }

type fakeTemp struct {
	mu  sync.Mutex
	c   float64
	err error
}

func (f *fakeTemp) Temperature() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.c, f.err
}

type heartbeatSink struct {
	mu    sync.Mutex
	beats []heartbeat
}

func (s *heartbeatSink) PublishUp(topic, payload string) error {
	if topic != HeartbeatTopic {
		return fmt.Errorf("unexpected topic %s", topic)
	}
	var hb heartbeat
	if err := json.Unmarshal([]byte(payload), &hb); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beats = append(s.beats, hb)
	return nil
}

func (s *heartbeatSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.beats)
}

func (s *heartbeatSink) first() heartbeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beats[0]
}

func testTelemetryConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		Interval:     20 * time.Millisecond,
		InitialDelay: 5 * time.Millisecond,
	}
}

func newTestReporter(t *testing.T) (*Reporter, *heartbeatSink) {
	t.Helper()
	sink := &heartbeatSink{}
	r, err := NewReporter(testTelemetryConfig(), "aabbccddeeff",
		&fakeNet{rssi: -52, ip: "10.0.0.17"}, &fakeTemp{c: 41.5},
		sink, nil, nil, nil, nil)
	require.NoError(t, err)
	return r, sink
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestNewReporter_Validation(t *testing.T) {
	cfg := testTelemetryConfig()

	_, err := NewReporter(cfg, "", &fakeNet{}, &fakeTemp{}, &heartbeatSink{}, nil, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewReporter(cfg, "aabb", nil, &fakeTemp{}, &heartbeatSink{}, nil, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewReporter(cfg, "aabb", &fakeNet{}, &fakeTemp{}, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestReporter_SessionIsStableUUID(t *testing.T) {
	r, _ := newTestReporter(t)
	session := r.Session()
	_, err := uuid.Parse(session)
	require.NoError(t, err)
	assert.Equal(t, session, r.Session())

	other, _ := newTestReporter(t)
	assert.NotEqual(t, session, other.Session(), "each boot mints its own session")
}

func TestReporter_HeartbeatContents(t *testing.T) {
	internal, err := mem.NewRegion(mem.RegionFastSRAM, 1000, nil, nil)
	require.NoError(t, err)
	require.NoError(t, internal.Alloc("framebuffer", 400))
	psram, err := mem.NewRegion(mem.RegionPSRAM, 5000, nil, nil)
	require.NoError(t, err)

	sink := &heartbeatSink{}
	r, err := NewReporter(testTelemetryConfig(), "aabbccddeeff",
		&fakeNet{rssi: -52, ip: "10.0.0.17"}, &fakeTemp{c: 41.5},
		sink, internal, psram, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	defer func() { _ = r.Stop(time.Second) }()

	waitFor(t, time.Second, func() bool { return sink.count() >= 1 })

	hb := sink.first()
	assert.Equal(t, "aabbccddeeff", hb.DeviceID)
	assert.Equal(t, r.Session(), hb.Session)
	assert.Equal(t, -52, hb.WiFiRSSI)
	assert.Equal(t, "10.0.0.17", hb.IP)
	assert.Equal(t, 41.5, hb.Temperature)
	assert.Equal(t, int64(600), hb.FreeHeapInternal)
	assert.Equal(t, int64(5600), hb.FreeHeapTotal)
	assert.GreaterOrEqual(t, hb.UptimeS, int64(0))
}

func TestReporter_RepeatsOnInterval(t *testing.T) {
	r, sink := newTestReporter(t)
	require.NoError(t, r.Start(context.Background()))
	defer func() { _ = r.Stop(time.Second) }()

	waitFor(t, 2*time.Second, func() bool { return sink.count() >= 3 })
}

func TestReporter_TemperatureFailureStillBeats(t *testing.T) {
	sink := &heartbeatSink{}
	r, err := NewReporter(testTelemetryConfig(), "aabbccddeeff",
		&fakeNet{rssi: -60, ip: "10.0.0.2"}, &fakeTemp{err: fmt.Errorf("sensor busy")},
		sink, nil, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	defer func() { _ = r.Stop(time.Second) }()

	waitFor(t, time.Second, func() bool { return sink.count() >= 1 })
	assert.Equal(t, float64(0), sink.first().Temperature)
	assert.Greater(t, r.Health().ErrorCount, 0)
}

func TestReporter_StopExitsCleanly(t *testing.T) {
	r, _ := newTestReporter(t)
	require.NoError(t, r.Start(context.Background()))
	assert.NoError(t, r.Stop(time.Second))
}
