package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config represents the complete device configuration. It is loaded from
// layered JSON files and overridden by environment variables. When no
// websocket URL is configured, boot takes it from the credential store.
type Config struct {
	Version   string          `json:"version"` // Semantic version (e.g., "1.0.0")
	Device    DeviceConfig    `json:"device"`
	Transport TransportConfig `json:"transport"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Screen    ScreenConfig    `json:"screen"`
	Audio     AudioConfig     `json:"audio"`
	Log       LogConfig       `json:"log"`
	Memory    MemoryConfig    `json:"memory"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// DeviceConfig defines device identity
type DeviceConfig struct {
	Name        string `json:"name"`                  // Friendly device name
	Hardware    string `json:"hardware,omitempty"`    // Hardware revision
	Environment string `json:"environment,omitempty"` // "prod", "dev", "test"
}

// TransportConfig defines server link settings. URL may be empty here and
// supplied by the provisioning store instead.
type TransportConfig struct {
	URL               string        `json:"url,omitempty"`
	ReconnectInterval time.Duration `json:"reconnect_interval,omitempty"`
	HandshakeTimeout  time.Duration `json:"handshake_timeout,omitempty"`
}

// TelemetryConfig defines heartbeat timing
type TelemetryConfig struct {
	Interval     time.Duration `json:"interval,omitempty"`
	InitialDelay time.Duration `json:"initial_delay,omitempty"`
}

// ScreenConfig defines display power management
type ScreenConfig struct {
	SleepTimeout time.Duration `json:"sleep_timeout,omitempty"`
	Brightness   int           `json:"brightness,omitempty"` // 0-100, active backlight level
}

// AudioConfig defines the full-duplex audio pipeline parameters
type AudioConfig struct {
	SampleRate    int     `json:"sample_rate,omitempty"`    // Hz
	ChunkSize     int     `json:"chunk_size,omitempty"`     // PCM bytes per uplink chunk
	SpeakerVolume int     `json:"speaker_volume,omitempty"` // 0-100
	MicGain       float64 `json:"mic_gain,omitempty"`       // dB
}

// LogConfig defines local logging behaviour
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // text, json
}

// MemoryConfig defines region capacities for the arena allocator
type MemoryConfig struct {
	InternalBytes int `json:"internal_bytes,omitempty"` // Fast SRAM region
	PSRAMBytes    int `json:"psram_bytes,omitempty"`    // Large buffer region
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{}
	}
	return &SafeConfig{
		config: cfg,
	}
}

// Get returns a deep copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically updates the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	copied := *c
	return &copied
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: false,
		envPrefix:  "SDUITERM",
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := l.getDefaults()

	for _, path := range l.layers {
		rawConfig, err := l.loadRawJSON(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		cfg = l.mergeFromMap(cfg, rawConfig)
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// getDefaults returns default configuration. Timing and audio defaults match
// the shipped firmware image.
func (l *Loader) getDefaults() *Config {
	return &Config{
		Device: DeviceConfig{
			Name: "sduiterm",
		},
		Transport: TransportConfig{
			ReconnectInterval: 5 * time.Second,
			HandshakeTimeout:  10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Interval:     30 * time.Second,
			InitialDelay: 5 * time.Second,
		},
		Screen: ScreenConfig{
			SleepTimeout: 30 * time.Second,
			Brightness:   100,
		},
		Audio: AudioConfig{
			SampleRate:    22050,
			ChunkSize:     1024,
			SpeakerVolume: 70,
			MicGain:       24.0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Memory: MemoryConfig{
			InternalBytes: 320 << 10,
			PSRAMBytes:    8 << 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// loadRawJSON loads configuration from a JSON file as a map
func (l *Loader) loadRawJSON(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return nil, err
	}

	l.parseDurations(rawConfig)

	return rawConfig, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	mergedMap := l.deepMergeMaps(baseMap, override)

	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}

	return &merged
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func (l *Loader) deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = l.deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// durationKeys lists the section.field pairs that accept duration strings
// ("5s", "2m") in config files.
var durationKeys = map[string][]string{
	"transport": {"reconnect_interval", "handshake_timeout"},
	"telemetry": {"interval", "initial_delay"},
	"screen":    {"sleep_timeout"},
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func (l *Loader) parseDurations(data map[string]any) {
	for section, fields := range durationKeys {
		sec, ok := data[section].(map[string]any)
		if !ok {
			continue
		}
		for _, field := range fields {
			if s, ok := sec[field].(string); ok {
				if d, err := time.ParseDuration(s); err == nil {
					sec[field] = d.Nanoseconds()
				}
			}
		}
	}
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := l.getenv("DEVICE_NAME"); val != "" {
		cfg.Device.Name = val
	}
	if val := l.getenv("ENVIRONMENT"); val != "" {
		cfg.Device.Environment = val
	}
	if val := l.getenv("WS_URL"); val != "" {
		cfg.Transport.URL = val
	}
	if val := l.getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = strings.ToLower(val)
	}
	if val := l.getenv("LOG_FORMAT"); val != "" {
		cfg.Log.Format = strings.ToLower(val)
	}
	if val := l.getenv("METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if val := l.getenv("TELEMETRY_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Telemetry.Interval = d
		}
	}
}

// getenv reads a prefixed environment variable, dropping values that fail
// basic validation.
func (l *Loader) getenv(suffix string) string {
	key := l.envPrefix + "_" + suffix
	val := os.Getenv(key)
	if err := validateEnvVar(key, val); err != nil {
		return ""
	}
	return val
}

// UnmarshalJSON implements custom JSON unmarshaling for TransportConfig,
// accepting durations as either strings ("5s") or nanosecond numbers.
func (tc *TransportConfig) UnmarshalJSON(data []byte) error {
	type Alias TransportConfig
	aux := &struct {
		ReconnectInterval any `json:"reconnect_interval,omitempty"`
		HandshakeTimeout  any `json:"handshake_timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(tc),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if tc.ReconnectInterval, err = parseFlexDuration(aux.ReconnectInterval, tc.ReconnectInterval); err != nil {
		return err
	}
	if tc.HandshakeTimeout, err = parseFlexDuration(aux.HandshakeTimeout, tc.HandshakeTimeout); err != nil {
		return err
	}
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for TelemetryConfig
func (tc *TelemetryConfig) UnmarshalJSON(data []byte) error {
	type Alias TelemetryConfig
	aux := &struct {
		Interval     any `json:"interval,omitempty"`
		InitialDelay any `json:"initial_delay,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(tc),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if tc.Interval, err = parseFlexDuration(aux.Interval, tc.Interval); err != nil {
		return err
	}
	if tc.InitialDelay, err = parseFlexDuration(aux.InitialDelay, tc.InitialDelay); err != nil {
		return err
	}
	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for ScreenConfig
func (sc *ScreenConfig) UnmarshalJSON(data []byte) error {
	type Alias ScreenConfig
	aux := &struct {
		SleepTimeout any `json:"sleep_timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(sc),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	sc.SleepTimeout, err = parseFlexDuration(aux.SleepTimeout, sc.SleepTimeout)
	return err
}

// parseFlexDuration accepts a duration as string or float64 nanoseconds.
// A nil value keeps the fallback.
func parseFlexDuration(v any, fallback time.Duration) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return fallback, nil
	case string:
		return time.ParseDuration(t)
	case float64:
		return time.Duration(t), nil
	default:
		return 0, fmt.Errorf("invalid duration value %v", v)
	}
}
