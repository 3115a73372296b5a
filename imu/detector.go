// Package imu polls the accelerometer at a fixed cadence and publishes a
// motion event upward whenever the acceleration magnitude crosses the shake
// threshold. A short cooldown after each event keeps one physical shake from
// flooding the uplink.
package imu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/c360/sduiterm/component"
	errs "github.com/c360/sduiterm/errors"
)

// MotionTopic is the uplink topic for shake events
const MotionTopic = "motion"

// ShakeThreshold is the acceleration magnitude in m/s² above which a sample
// counts as a shake. Gravity alone reads ~9.8, so this is roughly 1.5 g.
const ShakeThreshold = 14.7

const (
	pollInterval    = 100 * time.Millisecond
	cooldownSamples = 10
)

// Publisher is the uplink surface motion events are published through
type Publisher interface {
	PublishUp(topic, payload string) error
}

type motionEvent struct {
	Type      string  `json:"type"`
	Magnitude float64 `json:"magnitude"`
}

// Detector owns the accelerometer poll loop
type Detector struct {
	sensor    Accelerometer
	publisher Publisher
	interval  time.Duration

	cooldown int

	startTime time.Time
	errCount  atomic.Int64
	lastErr   atomic.Value // stores string

	cancel context.CancelFunc
	done   chan struct{}

	metrics *imuMetrics
	logger  *slog.Logger
}

// NewDetector creates the shake detector. registrar may be nil.
func NewDetector(sensor Accelerometer, publisher Publisher,
	registrar Registrar, logger *slog.Logger,
) (*Detector, error) {
	if sensor == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil accelerometer"),
			"Detector", "NewDetector", "create shake detector")
	}
	if publisher == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil publisher"),
			"Detector", "NewDetector", "create shake detector")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newIMUMetrics(registrar)
	if err != nil {
		return nil, err
	}

	d := &Detector{
		sensor:    sensor,
		publisher: publisher,
		interval:  pollInterval,
		metrics:   metrics,
		logger:    logger,
	}
	d.lastErr.Store("")
	return d, nil
}

// Meta implements component.Discoverable
func (d *Detector) Meta() component.Metadata {
	return component.Metadata{
		Name:        "imu",
		Type:        "service",
		Description: "Accelerometer shake detection",
		Version:     "1.0.0",
	}
}

// Health implements component.Discoverable
func (d *Detector) Health() component.HealthStatus {
	var uptime time.Duration
	if !d.startTime.IsZero() {
		uptime = time.Since(d.startTime)
	}
	return component.HealthStatus{
		Healthy:    d.done != nil,
		LastCheck:  time.Now(),
		ErrorCount: int(d.errCount.Load()),
		LastError:  d.lastErr.Load().(string),
		Uptime:     uptime,
	}
}

// Initialize probes the sensor once. A failure here means the IMU is absent
// or wedged, and the caller skips starting the detector rather than retrying.
func (d *Detector) Initialize() error {
	if _, _, _, err := d.sensor.Acceleration(); err != nil {
		return errs.WrapTransient(err, "Detector", "Initialize", "probe accelerometer")
	}
	return nil
}

// Start launches the poll loop
func (d *Detector) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.startTime = time.Now()

	go d.pollLoop(runCtx)
	return nil
}

// Stop halts the poll loop
func (d *Detector) Stop(timeout time.Duration) error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()

	select {
	case <-d.done:
		return nil
	case <-time.After(timeout):
		return errs.WrapTransient(
			fmt.Errorf("imu poll loop did not exit within %s", timeout),
			"Detector", "Stop", "stop shake detector")
	}
}

func (d *Detector) pollLoop(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.sample()
	}
}

// sample reads one acceleration vector and publishes a motion event when its
// magnitude crosses the threshold outside the cooldown window
func (d *Detector) sample() {
	x, y, z, err := d.sensor.Acceleration()
	if err != nil {
		d.noteError(err)
		d.logger.Debug("Accelerometer read failed", "error", err)
		return
	}
	d.metrics.recordSample()

	if d.cooldown > 0 {
		d.cooldown--
		return
	}

	magnitude := math.Sqrt(x*x + y*y + z*z)
	if magnitude <= ShakeThreshold {
		return
	}

	d.cooldown = cooldownSamples
	d.publishShake(magnitude)
}

func (d *Detector) publishShake(magnitude float64) {
	payload, err := json.Marshal(motionEvent{Type: "shake", Magnitude: magnitude})
	if err != nil {
		d.noteError(err)
		return
	}
	if err := d.publisher.PublishUp(MotionTopic, string(payload)); err != nil {
		d.noteError(err)
		d.logger.Debug("Motion event publish failed", "error", err)
		return
	}
	d.metrics.recordShake()
	d.logger.Info("Shake detected", "magnitude", magnitude)
}

func (d *Detector) noteError(err error) {
	d.errCount.Add(1)
	d.lastErr.Store(err.Error())
}
