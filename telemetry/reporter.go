// Package telemetry publishes a periodic heartbeat with link quality, heap
// headroom, and board temperature so the server can spot a degrading device
// before it drops off.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/sduiterm/component"
	"github.com/c360/sduiterm/config"
	errs "github.com/c360/sduiterm/errors"
	"github.com/c360/sduiterm/mem"
	"github.com/c360/sduiterm/pkg/retry"
)

// HeartbeatTopic is the uplink topic heartbeats are published on
const HeartbeatTopic = "telemetry/heartbeat"

// NetInfo exposes the current Wi-Fi link state
type NetInfo interface {
	RSSI() int
	IP() string
}

// TempSensor reads the board temperature in degrees Celsius
type TempSensor interface {
	Temperature() (float64, error)
}

// Publisher is the uplink surface heartbeats are published through
type Publisher interface {
	PublishUp(topic, payload string) error
}

type heartbeat struct {
	DeviceID         string  `json:"device_id"`
	Session          string  `json:"session"`
	WiFiRSSI         int     `json:"wifi_rssi"`
	IP               string  `json:"ip"`
	Temperature      float64 `json:"temperature"`
	FreeHeapInternal int64   `json:"free_heap_internal"`
	FreeHeapTotal    int64   `json:"free_heap_total"`
	UptimeS          int64   `json:"uptime_s"`
}

// Reporter assembles and publishes the heartbeat on a fixed period
type Reporter struct {
	cfg       config.TelemetryConfig
	deviceID  string
	session   string
	net       NetInfo
	temp      TempSensor
	publisher Publisher
	internal  *mem.Region
	psram     *mem.Region

	startTime time.Time
	errCount  atomic.Int64
	lastErr   atomic.Value // stores string

	cancel context.CancelFunc
	done   chan struct{}

	metrics *telemetryMetrics
	logger  *slog.Logger
}

// NewReporter creates the heartbeat reporter. The session identifier is
// minted here and stays fixed for the life of the boot. internal, psram, and
// registrar may be nil.
func NewReporter(cfg config.TelemetryConfig, deviceID string, net NetInfo,
	temp TempSensor, publisher Publisher, internal, psram *mem.Region,
	registrar Registrar, logger *slog.Logger,
) (*Reporter, error) {
	if deviceID == "" {
		return nil, errs.WrapInvalid(
			fmt.Errorf("empty device id"),
			"Reporter", "NewReporter", "create telemetry reporter")
	}
	if net == nil || temp == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil sensor source"),
			"Reporter", "NewReporter", "create telemetry reporter")
	}
	if publisher == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil publisher"),
			"Reporter", "NewReporter", "create telemetry reporter")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newTelemetryMetrics(registrar)
	if err != nil {
		return nil, err
	}

	r := &Reporter{
		cfg:       cfg,
		deviceID:  deviceID,
		session:   uuid.NewString(),
		net:       net,
		temp:      temp,
		publisher: publisher,
		internal:  internal,
		psram:     psram,
		metrics:   metrics,
		logger:    logger,
	}
	r.lastErr.Store("")
	return r, nil
}

// Session returns the boot session identifier stamped on every heartbeat
func (r *Reporter) Session() string {
	return r.session
}

// Meta implements component.Discoverable
func (r *Reporter) Meta() component.Metadata {
	return component.Metadata{
		Name:        "telemetry",
		Type:        "service",
		Description: "Periodic device heartbeat",
		Version:     "1.0.0",
	}
}

// Health implements component.Discoverable
func (r *Reporter) Health() component.HealthStatus {
	var uptime time.Duration
	if !r.startTime.IsZero() {
		uptime = time.Since(r.startTime)
	}
	return component.HealthStatus{
		Healthy:    r.done != nil,
		LastCheck:  time.Now(),
		ErrorCount: int(r.errCount.Load()),
		LastError:  r.lastErr.Load().(string),
		Uptime:     uptime,
	}
}

// Initialize is a no-op; the reporter has no hardware to bring up
func (r *Reporter) Initialize() error {
	return nil
}

// Start launches the heartbeat loop. The first beat goes out after the
// configured initial delay so it lands after the link settles, then repeats
// on the period.
func (r *Reporter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.startTime = time.Now()

	go r.run(runCtx)
	return nil
}

// Stop halts the heartbeat loop
func (r *Reporter) Stop(timeout time.Duration) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	select {
	case <-r.done:
		return nil
	case <-time.After(timeout):
		return errs.WrapTransient(
			fmt.Errorf("telemetry loop did not exit within %s", timeout),
			"Reporter", "Stop", "stop telemetry reporter")
	}
}

func (r *Reporter) run(ctx context.Context) {
	defer close(r.done)

	select {
	case <-ctx.Done():
		return
	case <-time.After(r.cfg.InitialDelay):
	}
	r.beat(ctx)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		r.beat(ctx)
	}
}

// tempRetryConfig bounds the per-beat temperature read. The budget must fit
// well inside the heartbeat period, so the second attempt follows almost
// immediately.
func tempRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  2,
		InitialDelay: 2 * time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// beat publishes one heartbeat. A failed temperature read is retried once,
// then counted, and the beat still goes out with the zero value.
func (r *Reporter) beat(ctx context.Context) {
	temp, err := retry.DoWithResult(ctx, tempRetryConfig(), r.temp.Temperature)
	if err != nil {
		r.noteError(err)
		r.logger.Debug("Temperature read failed", "error", err)
	}

	hb := heartbeat{
		DeviceID:    r.deviceID,
		Session:     r.session,
		WiFiRSSI:    r.net.RSSI(),
		IP:          r.net.IP(),
		Temperature: temp,
		UptimeS:     int64(time.Since(r.startTime).Seconds()),
	}
	if r.internal != nil {
		hb.FreeHeapInternal = r.internal.FreeBytes()
		hb.FreeHeapTotal += r.internal.FreeBytes()
	}
	if r.psram != nil {
		hb.FreeHeapTotal += r.psram.FreeBytes()
	}

	payload, err := json.Marshal(hb)
	if err != nil {
		r.noteError(err)
		return
	}
	if err := r.publisher.PublishUp(HeartbeatTopic, string(payload)); err != nil {
		r.noteError(err)
		r.logger.Debug("Heartbeat publish failed", "error", err)
		return
	}
	r.metrics.recordHeartbeat()
}

func (r *Reporter) noteError(err error) {
	r.errCount.Add(1)
	r.lastErr.Store(err.Error())
}
