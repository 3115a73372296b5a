// Package boot wires the runtime together in the one order the hardware
// tolerates: the display and audio DMA buffers must be carved out of fast
// SRAM before the Wi-Fi driver fragments it, and every bus subscription must
// be in place before the first downlink frame is routed.
package boot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/sduiterm/audio"
	"github.com/c360/sduiterm/bus"
	"github.com/c360/sduiterm/component"
	"github.com/c360/sduiterm/config"
	errs "github.com/c360/sduiterm/errors"
	"github.com/c360/sduiterm/health"
	"github.com/c360/sduiterm/imu"
	"github.com/c360/sduiterm/layout"
	"github.com/c360/sduiterm/mem"
	"github.com/c360/sduiterm/metric"
	"github.com/c360/sduiterm/provision"
	"github.com/c360/sduiterm/telemetry"
	"github.com/c360/sduiterm/transport"
)

// ErrRestartRequired signals that provisioning captured credentials and the
// process should exit so the supervisor restarts it into the cloud branch.
var ErrRestartRequired = errors.New("restart required")

// Downlink and local topics the orchestrator subscribes before routing begins
const (
	topicUILayout     = "ui/layout"
	topicUIUpdate     = "ui/update"
	topicAudioPlay    = "audio/play"
	topicRecordStart  = "audio/cmd/record_start"
	topicRecordStop   = "audio/cmd/record_stop"
	topicConfigUpdate = "config/update"
)

const (
	// allocDisplayFrame is the single-buffered panel frame strip
	allocDisplayFrame = "display_frame"
	displayFrameBytes = 9320

	// fragmentedMaxAlloc caps fast-SRAM allocations once the Wi-Fi driver
	// has carved the region up
	fragmentedMaxAlloc = 4096

	sleepPollInterval   = 500 * time.Millisecond
	healthSampleEvery   = 30 * time.Second
	componentStopBudget = 5 * time.Second
)

// service pairs a started component with its lifecycle state so shutdown can
// unwind in reverse start order and report which services wedged
type service struct {
	name  string
	comp  component.LifecycleComponent
	state component.State
}

// Orchestrator owns boot order, the screen-sleep poller, and reverse-order
// shutdown
type Orchestrator struct {
	cfg   *config.Config
	store *provision.Store
	hw    Hardware

	registry *metric.MetricsRegistry
	monitor  *health.Monitor
	logger   *slog.Logger

	fastSRAM *mem.Region
	psram    *mem.Region

	confmgr   *config.Manager
	rlog      *component.Logger
	bus       *bus.Bus
	engine    *layout.Engine
	audio     *audio.Manager
	transport *transport.Client
	imu       *imu.Detector
	telemetry *telemetry.Reporter
	metricSrv *metric.Server

	services []*service

	cancel context.CancelFunc
}

// New creates the orchestrator. The store must already be open; hardware
// devices are consumed as-is.
func New(cfg *config.Config, store *provision.Store, hw Hardware, logger *slog.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil config"), "Orchestrator", "New", "create orchestrator")
	}
	if store == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("nil provisioning store"), "Orchestrator", "New", "create orchestrator")
	}
	if hw.Display == nil || hw.WiFi == nil || hw.Speaker == nil || hw.Mic == nil || hw.Temp == nil {
		return nil, errs.WrapInvalid(
			fmt.Errorf("incomplete hardware set"), "Orchestrator", "New", "create orchestrator")
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		cfg:      cfg,
		store:    store,
		hw:       hw,
		registry: metric.NewMetricsRegistry(),
		monitor:  health.NewMonitor(logger),
		logger:   logger,
	}
	o.monitor.SetRecorder(o.registry.CoreMetrics())
	return o, nil
}

// Run executes the boot sequence. It returns once the runtime is up (the
// loops keep running on ctx), ErrRestartRequired after provisioning, or the
// first fatal start-up error.
func (o *Orchestrator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	if err := o.setupRegions(); err != nil {
		return err
	}

	// Display first: its frame strip must be the first fast-SRAM tenant
	if err := o.hw.Display.Init(); err != nil {
		return errs.WrapFatal(err, "Orchestrator", "Run", "initialise display")
	}
	if err := o.fastSRAM.Alloc(allocDisplayFrame, displayFrameBytes); err != nil {
		return err
	}
	if err := o.hw.Display.SetBacklight(o.cfg.Screen.Brightness); err != nil {
		o.logger.Warn("Backlight set failed", "error", err)
	}

	if err := o.setupCore(); err != nil {
		return err
	}

	o.engine.Init()
	if err := o.engine.Render(loadingScreen); err != nil {
		o.logger.Warn("Loading screen render failed", "error", err)
	}
	go o.engine.Run(runCtx)

	if !o.store.IsProvisioned() {
		return o.runProvisioning(runCtx)
	}

	// Audio before Wi-Fi so the I2S DMA buffer lands in contiguous SRAM
	if err := o.audio.Initialize(); err != nil {
		return err
	}
	if err := o.audio.Start(runCtx); err != nil {
		return err
	}
	o.track("audio", o.audio)

	o.subscribe()

	creds := o.store.Credentials()
	if err := o.hw.WiFi.Connect(runCtx, creds.SSID, creds.Password); err != nil {
		return errs.WrapTransient(err, "Orchestrator", "Run", "connect wifi")
	}
	o.fastSRAM.MarkFragmented(fragmentedMaxAlloc)

	mac, err := o.hw.WiFi.MAC()
	if err != nil {
		return errs.WrapFatal(err, "Orchestrator", "Run", "read station mac")
	}
	o.bus.SetDeviceID(mac)
	o.rlog = component.NewLogger("boot", mac,
		busLogSink{o.bus, o.registry.CoreMetrics()}, o.logger)

	if err := o.startServices(runCtx, mac, creds); err != nil {
		return err
	}

	go o.sleepLoop(runCtx)
	go o.monitor.Run(runCtx, healthSampleEvery)

	o.logger.Info("Boot complete",
		"device_id", mac, "session", o.telemetry.Session())
	return nil
}

// track records a component that reached StateStarted so Stop unwinds it
func (o *Orchestrator) track(name string, comp component.LifecycleComponent) {
	o.services = append(o.services, &service{
		name:  name,
		comp:  comp,
		state: component.StateStarted,
	})
	o.registry.CoreMetrics().RecordServiceStatus(name, int(component.StateStarted))
}

// Stop tears the runtime down in reverse start order
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}

	core := o.registry.CoreMetrics()
	for i := len(o.services) - 1; i >= 0; i-- {
		svc := o.services[i]
		if svc.state != component.StateStarted {
			continue
		}
		if err := svc.comp.Stop(componentStopBudget); err != nil {
			svc.state = component.StateFailed
			core.RecordServiceStatus(svc.name, int(svc.state))
			o.logger.Warn("Component stop failed",
				"component", svc.name, "state", svc.state.String(), "error", err)
			continue
		}
		svc.state = component.StateStopped
		core.RecordServiceStatus(svc.name, int(svc.state))
	}

	if o.metricSrv != nil {
		if err := o.metricSrv.Stop(); err != nil {
			o.logger.Warn("Metrics server stop failed", "error", err)
		}
	}
	if o.confmgr != nil {
		o.confmgr.Close()
	}
	if o.fastSRAM != nil {
		o.fastSRAM.Free(allocDisplayFrame)
	}
	o.logger.Info("Runtime stopped")
}

func (o *Orchestrator) setupRegions() error {
	fast, err := mem.NewRegion(mem.RegionFastSRAM,
		int64(o.cfg.Memory.InternalBytes), o.registry, o.logger)
	if err != nil {
		return err
	}
	psram, err := mem.NewRegion(mem.RegionPSRAM,
		int64(o.cfg.Memory.PSRAMBytes), o.registry, o.logger)
	if err != nil {
		return err
	}
	o.fastSRAM = fast
	o.psram = psram
	return nil
}

// setupCore constructs the bus, audio manager, and layout engine. The bus
// exists before anything else because every other component publishes
// through it.
func (o *Orchestrator) setupCore() error {
	cm, err := config.NewManager(o.cfg, o.logger)
	if err != nil {
		return err
	}
	o.confmgr = cm

	b, err := bus.New(o.registry, o.logger)
	if err != nil {
		return err
	}
	o.bus = b

	mgr, err := audio.NewManager(o.cfg.Audio, o.hw.Speaker, o.hw.Mic,
		b, o.fastSRAM, o.registry, o.logger)
	if err != nil {
		return err
	}
	o.audio = mgr

	engine, err := layout.NewEngine(b, o.psram, mgr, o.registry, o.logger)
	if err != nil {
		return err
	}
	o.engine = engine

	o.monitor.Register("audio", mgr)
	o.monitor.Register("layout", engine)
	return nil
}

// runProvisioning renders the built-in setup screen and blocks on the
// captive portal until credentials arrive
func (o *Orchestrator) runProvisioning(ctx context.Context) error {
	if err := o.engine.Render(provisioningScreen); err != nil {
		o.logger.Warn("Provisioning screen render failed", "error", err)
	}
	if o.hw.Provisioner == nil {
		return errs.WrapFatal(
			fmt.Errorf("device unprovisioned and no provisioner present"),
			"Orchestrator", "Run", "enter provisioning")
	}

	o.logger.Info("Device unprovisioned, waiting for captive portal")
	creds, err := o.hw.Provisioner.Serve(ctx)
	if err != nil {
		return errs.WrapTransient(err, "Orchestrator", "Run", "capture credentials")
	}
	if err := o.store.SetCredentials(creds); err != nil {
		return err
	}
	o.logger.Info("Credentials captured, restarting into cloud branch")
	return ErrRestartRequired
}

// handle wraps a subscriber so the core dispatch metrics see every payload
// and how its handler fared
func (o *Orchestrator) handle(topic, service, op string, fn func(string) error) bus.Callback {
	core := o.registry.CoreMetrics()
	return func(payload string) {
		core.RecordMessageReceived(service, topic)
		start := time.Now()
		err := fn(payload)
		core.RecordProcessingDuration(service, op, time.Since(start))
		if err != nil {
			core.RecordError(service, op)
			core.RecordMessageProcessed(service, topic, "error")
			o.logger.Warn("Handler rejected payload",
				"topic", topic, "component", service, "error", err)
			return
		}
		core.RecordMessageProcessed(service, topic, "ok")
	}
}

// subscribe registers every downlink and local handler. Routing only begins
// when the transport starts, so by then the table is complete.
func (o *Orchestrator) subscribe() {
	o.bus.Subscribe(topicUILayout,
		o.handle(topicUILayout, "layout", "render", o.engine.Render))
	o.bus.Subscribe(topicUIUpdate,
		o.handle(topicUIUpdate, "layout", "update", o.engine.Update))
	o.bus.Subscribe(topicAudioPlay,
		o.handle(topicAudioPlay, "audio", "play", func(p string) error {
			o.audio.HandlePlay(p)
			return nil
		}))
	o.bus.Subscribe(topicRecordStart,
		o.handle(topicRecordStart, "audio", "record_start", func(string) error {
			o.audio.RecordStart()
			return nil
		}))
	o.bus.Subscribe(topicRecordStop,
		o.handle(topicRecordStop, "audio", "record_stop", func(string) error {
			o.audio.RecordStop()
			return nil
		}))
	o.bus.Subscribe(topicConfigUpdate,
		o.handle(topicConfigUpdate, "config", "apply", func(p string) error {
			return o.confmgr.Apply([]byte(p))
		}))
}

// busLogSink adapts the bus uplink to the component log publisher so device
// log entries reach the server alongside other uplink traffic
type busLogSink struct {
	b    *bus.Bus
	core *metric.Metrics
}

func (s busLogSink) PublishLog(topic string, payload []byte) error {
	if err := s.b.PublishUp(topic, string(payload)); err != nil {
		return err
	}
	s.core.RecordMessagePublished("boot", topic)
	return nil
}

func (o *Orchestrator) startServices(ctx context.Context, mac string, creds provision.Credentials) error {
	tcfg := o.cfg.Transport
	if tcfg.URL == "" {
		tcfg.URL = creds.WSURL
	}
	client, err := transport.NewClient(tcfg, func(text string) {
		if err := o.bus.RouteDown([]byte(text)); err != nil {
			o.logger.Warn("Downlink frame rejected", "error", err)
		}
	}, o.registry.CoreMetrics(), o.logger)
	if err != nil {
		return err
	}
	o.bus.SetSender(client)
	if err := client.Initialize(); err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return err
	}
	o.transport = client
	o.track("transport", client)
	o.monitor.Register("transport", client)

	if o.hw.Accel != nil {
		det, err := imu.NewDetector(o.hw.Accel, o.bus, o.registry, o.logger)
		if err != nil {
			return err
		}
		if err := det.Initialize(); err != nil {
			o.logger.Warn("IMU probe failed, shake detection disabled", "error", err)
		} else {
			if err := det.Start(ctx); err != nil {
				return err
			}
			o.imu = det
			o.track("imu", det)
			o.monitor.Register("imu", det)
		}
	} else {
		o.logger.Info("No accelerometer fitted, shake detection disabled")
	}

	rep, err := telemetry.NewReporter(o.cfg.Telemetry, mac, o.hw.WiFi,
		o.hw.Temp, o.bus, o.fastSRAM, o.psram, o.registry, o.logger)
	if err != nil {
		return err
	}
	if err := rep.Start(ctx); err != nil {
		return err
	}
	o.telemetry = rep
	o.track("telemetry", rep)
	o.monitor.Register("telemetry", rep)

	if o.cfg.Metrics.Enabled {
		srv := metric.NewServer(o.cfg.Metrics.Port, o.cfg.Metrics.Path, o.registry)
		o.metricSrv = srv
		go func() {
			if err := srv.Start(); err != nil {
				o.logger.Warn("Metrics server stopped", "error", err)
			}
		}()
	}
	return nil
}

// sleepLoop drops the backlight after the inactivity window and restores it
// on the next input event
func (o *Orchestrator) sleepLoop(ctx context.Context) {
	ticker := time.NewTicker(sleepPollInterval)
	defer ticker.Stop()

	asleep := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Read through the manager so server-pushed screen settings
		// take effect without a restart
		screen := o.confmgr.GetConfig().Get().Screen
		idle := time.Since(o.engine.LastActivity()) > screen.SleepTimeout
		switch {
		case idle && !asleep:
			if err := o.hw.Display.SetBacklight(0); err != nil {
				o.logger.Warn("Backlight off failed", "error", err)
				continue
			}
			asleep = true
			o.rlog.Info("Screen sleeping")
		case !idle && asleep:
			if err := o.hw.Display.SetBacklight(screen.Brightness); err != nil {
				o.logger.Warn("Backlight restore failed", "error", err)
				continue
			}
			asleep = false
			o.rlog.Info("Screen awake")
		}
	}
}
