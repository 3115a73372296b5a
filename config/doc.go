// Package config provides configuration management for the sduiterm runtime.
//
// This package handles loading, validation, and dynamic updates of device
// configuration from JSON files, environment variables, and server-pushed
// updates on the "config/update" topic.
//
// # Core Components
//
// Config: Main configuration structure containing device identity, server
// link settings, telemetry timing, screen power management, audio pipeline
// parameters, logging, memory region budgets, and the metrics endpoint.
//
// SafeConfig: Thread-safe wrapper using RWMutex and cloning to prevent
// concurrent access issues and accidental mutations.
//
// Manager: Applies server-pushed section updates and fans change
// notifications out to subscriber channels.
//
// Loader: Loads configuration with layer merging (base + overrides) and
// environment variable substitution for flexible deployment scenarios.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.json")
//	loader.AddLayer("config/device.json") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Dynamic Configuration
//
// Using Manager for runtime updates pushed by the server:
//
//	cm, err := config.NewManager(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer cm.Close()
//
//	updates := cm.OnChange("telemetry")
//	go func() {
//		for update := range updates {
//			applyInterval(update.Config.Get().Telemetry.Interval)
//		}
//	}()
//
//	// Wired to the message bus by the boot orchestrator:
//	//   bus.Subscribe("config/update", func(payload string) {
//	//       _ = cm.Apply([]byte(payload))
//	//   })
//
// # Environment Overrides
//
// Environment variables with the SDUITERM_ prefix override file values:
//
//	SDUITERM_DEVICE_NAME        device.name
//	SDUITERM_ENVIRONMENT        device.environment
//	SDUITERM_WS_URL             transport.url
//	SDUITERM_LOG_LEVEL          log.level
//	SDUITERM_LOG_FORMAT         log.format
//	SDUITERM_METRICS_PORT       metrics.port
//	SDUITERM_TELEMETRY_INTERVAL telemetry.interval
//
// # Provisioning
//
// The websocket URL may be absent from files entirely. Provisioned devices
// carry ssid, password, and ws_url in the provision.Store; the boot
// orchestrator uses ws_url for the link when Transport.URL is empty; a
// configured URL takes precedence. Validation therefore accepts an empty
// transport.url.
//
// # Input Hardening
//
// Config files are size-bounded, restricted to .json paths without parent
// references, and depth-checked before unmarshaling. File writes use 0600
// permissions. Oversized or null-byte environment values are ignored.
package config
