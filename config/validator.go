package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks if the config is valid. The transport URL may be empty
// here because unprovisioned devices receive it from the credential store.
func (c *Config) Validate() error {
	if c.Device.Name == "" {
		return errors.New("device.name is required")
	}

	if c.Transport.URL != "" {
		if err := ValidateServerURL(c.Transport.URL); err != nil {
			return fmt.Errorf("transport.url: %w", err)
		}
	}
	if c.Transport.ReconnectInterval < 0 {
		return errors.New("transport.reconnect_interval cannot be negative")
	}
	if c.Transport.HandshakeTimeout < 0 {
		return errors.New("transport.handshake_timeout cannot be negative")
	}

	if c.Telemetry.Interval < 0 {
		return errors.New("telemetry.interval cannot be negative")
	}
	if c.Telemetry.InitialDelay < 0 {
		return errors.New("telemetry.initial_delay cannot be negative")
	}

	if c.Screen.Brightness < 0 || c.Screen.Brightness > 100 {
		return fmt.Errorf("screen.brightness must be 0-100, got %d", c.Screen.Brightness)
	}

	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("audio.chunk_size must be positive, got %d", c.Audio.ChunkSize)
	}
	if c.Audio.SpeakerVolume < 0 || c.Audio.SpeakerVolume > 100 {
		return fmt.Errorf("audio.speaker_volume must be 0-100, got %d", c.Audio.SpeakerVolume)
	}
	if c.Audio.MicGain < 0 {
		return errors.New("audio.mic_gain cannot be negative")
	}

	if c.Log.Level != "" && !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "" && !validLogFormats[strings.ToLower(c.Log.Format)] {
		return fmt.Errorf("log.format %q is not one of text, json", c.Log.Format)
	}

	if c.Memory.InternalBytes < 0 {
		return errors.New("memory.internal_bytes cannot be negative")
	}
	if c.Memory.PSRAMBytes < 0 {
		return errors.New("memory.psram_bytes cannot be negative")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", c.Metrics.Port)
		}
	}

	return nil
}

// ValidateServerURL checks that a server link URL is a well-formed ws:// or
// wss:// URL with a host. Provisioning uses the same check before persisting
// a ws_url value.
func ValidateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
