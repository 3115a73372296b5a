package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Update represents a configuration change notification
type Update struct {
	Section string      // Changed section (e.g., "telemetry")
	Config  *SafeConfig // Full latest configuration
}

// Manager provides centralized configuration management with channel-based
// updates. The server pushes section updates down the link on the
// "config/update" topic; the runtime feeds them to Apply and interested
// components receive the change through OnChange channels.
type Manager struct {
	config      *SafeConfig
	subscribers map[string][]chan Update // Pattern -> channels
	mu          sync.RWMutex             // Protects subscribers map
	logger      *slog.Logger
	closed      atomic.Bool
}

// NewManager creates a new configuration manager
func NewManager(cfg *Config, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		config:      NewSafeConfig(cfg),
		subscribers: make(map[string][]chan Update),
		logger:      logger,
	}, nil
}

// GetConfig returns the current configuration
func (cm *Manager) GetConfig() *SafeConfig {
	return cm.config
}

// OnChange subscribes to configuration changes matching the pattern.
// Returns a channel that receives updates when configuration changes.
// Pattern examples:
//   - "telemetry" - exact match
//   - "*" - all sections
func (cm *Manager) OnChange(pattern string) <-chan Update {
	ch := make(chan Update, 1) // Buffered to prevent blocking

	cm.mu.Lock()
	cm.subscribers[pattern] = append(cm.subscribers[pattern], ch)
	cm.mu.Unlock()

	// Send initial config immediately
	select {
	case ch <- Update{
		Section: pattern,
		Config:  cm.config,
	}:
	default:
	}

	return ch
}

// updateEnvelope is the wire shape of a server-pushed config update
type updateEnvelope struct {
	Section string          `json:"section"`
	Value   json.RawMessage `json:"value"`
}

// Apply processes a raw config update payload from the server. The payload
// carries a section name and its replacement value. Invalid updates are
// rejected without touching the running configuration.
func (cm *Manager) Apply(raw []byte) error {
	if cm.closed.Load() {
		return fmt.Errorf("manager is closed")
	}

	if len(raw) > maxConfigSize {
		return fmt.Errorf("config update too large: %d bytes > %d", len(raw), maxConfigSize)
	}
	if err := validateJSONDepth(raw); err != nil {
		return fmt.Errorf("invalid JSON structure in update: %w", err)
	}

	var env updateEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("parse config update: %w", err)
	}
	if env.Section == "" {
		return fmt.Errorf("config update missing section")
	}

	if err := cm.applySection(env.Section, env.Value); err != nil {
		return err
	}

	cm.notify(env.Section)
	return nil
}

// applySection decodes a section value into a copy of the current config and
// swaps it in atomically.
func (cm *Manager) applySection(section string, value json.RawMessage) error {
	cfg := cm.config.Get()

	var dst any
	switch section {
	case "device":
		dst = &cfg.Device
	case "transport":
		dst = &cfg.Transport
	case "telemetry":
		dst = &cfg.Telemetry
	case "screen":
		dst = &cfg.Screen
	case "audio":
		dst = &cfg.Audio
	case "log":
		dst = &cfg.Log
	case "metrics":
		dst = &cfg.Metrics
	default:
		// Unknown sections are ignored so newer servers can push
		// settings older firmware does not understand.
		cm.logger.Debug("Ignoring unknown config section", "section", section)
		return nil
	}

	if err := json.Unmarshal(value, dst); err != nil {
		return fmt.Errorf("parse %s config: %w", section, err)
	}

	return cm.config.Update(cfg)
}

// notify delivers an update to matching subscribers without blocking
func (cm *Manager) notify(section string) {
	update := Update{
		Section: section,
		Config:  cm.config,
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for pattern, channels := range cm.subscribers {
		if !matchesPattern(section, pattern) {
			continue
		}
		for _, ch := range channels {
			if cm.closed.Load() {
				return
			}
			select {
			case ch <- update:
			default:
				// Channel full, subscriber not keeping up
			}
		}
	}
}

// matchesPattern checks if a section matches a subscription pattern
func matchesPattern(section, pattern string) bool {
	if pattern == section || pattern == "*" {
		return true
	}

	// Prefix wildcard: "tele*" matches "telemetry"
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(section, strings.TrimSuffix(pattern, "*"))
	}

	return false
}

// Close stops update delivery and closes all subscriber channels
func (cm *Manager) Close() {
	if !cm.closed.CompareAndSwap(false, true) {
		return
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, channels := range cm.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	cm.subscribers = make(map[string][]chan Update)
}
