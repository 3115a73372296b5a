package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "sduiterm", cfg.Device.Name)
	assert.Equal(t, 5*time.Second, cfg.Transport.ReconnectInterval)
	assert.Equal(t, 10*time.Second, cfg.Transport.HandshakeTimeout)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.Interval)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.InitialDelay)
	assert.Equal(t, 30*time.Second, cfg.Screen.SleepTimeout)
	assert.Equal(t, 100, cfg.Screen.Brightness)
	assert.Equal(t, 22050, cfg.Audio.SampleRate)
	assert.Equal(t, 1024, cfg.Audio.ChunkSize)
	assert.Equal(t, 70, cfg.Audio.SpeakerVolume)
	assert.InDelta(t, 24.0, cfg.Audio.MicGain, 0.001)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoader_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "device.json", `{
		"device": {"name": "kitchen-terminal"},
		"transport": {"url": "wss://sdui.example.com/ws", "reconnect_interval": "2s"},
		"audio": {"speaker_volume": 55}
	}`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "kitchen-terminal", cfg.Device.Name)
	assert.Equal(t, "wss://sdui.example.com/ws", cfg.Transport.URL)
	assert.Equal(t, 2*time.Second, cfg.Transport.ReconnectInterval)
	// Untouched fields keep defaults
	assert.Equal(t, 10*time.Second, cfg.Transport.HandshakeTimeout)
	assert.Equal(t, 55, cfg.Audio.SpeakerVolume)
	assert.Equal(t, 22050, cfg.Audio.SampleRate)
}

func TestLoader_LayerMerging(t *testing.T) {
	dir := t.TempDir()
	base := writeConfigFile(t, dir, "base.json", `{
		"device": {"name": "base-device", "environment": "dev"},
		"telemetry": {"interval": "10s"}
	}`)
	override := writeConfigFile(t, dir, "override.json", `{
		"device": {"name": "override-device"},
		"telemetry": {"initial_delay": "1s"}
	}`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)
	cfg, err := loader.Load()
	require.NoError(t, err)

	// Override wins where set, base survives where not
	assert.Equal(t, "override-device", cfg.Device.Name)
	assert.Equal(t, "dev", cfg.Device.Environment)
	assert.Equal(t, 10*time.Second, cfg.Telemetry.Interval)
	assert.Equal(t, 1*time.Second, cfg.Telemetry.InitialDelay)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("SDUITERM_DEVICE_NAME", "env-device")
	t.Setenv("SDUITERM_WS_URL", "ws://env.example.com/ws")
	t.Setenv("SDUITERM_LOG_LEVEL", "DEBUG")
	t.Setenv("SDUITERM_METRICS_PORT", "9191")
	t.Setenv("SDUITERM_TELEMETRY_INTERVAL", "45s")

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "env-device", cfg.Device.Name)
	assert.Equal(t, "ws://env.example.com/ws", cfg.Transport.URL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9191, cfg.Metrics.Port)
	assert.Equal(t, 45*time.Second, cfg.Telemetry.Interval)
}

func TestLoader_InvalidFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"malformed JSON", "bad.json", `{"device": `},
		{"unbalanced brackets", "unbalanced.json", `{"device": {"name": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, dir, tt.file, tt.content)
			loader := NewLoader()
			_, err := loader.LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoader_RejectsNonJSONPath(t *testing.T) {
	loader := NewLoader()
	_, err := loader.LoadFile(filepath.Join(t.TempDir(), "config.yaml"))
	assert.Error(t, err)
}

func TestLoader_ValidationEnabled(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "bad_volume.json", `{
		"audio": {"speaker_volume": 150}
	}`)

	loader := NewLoader()
	loader.EnableValidation(true)
	_, err := loader.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speaker_volume")
}

func TestConfig_DurationNumbersAccepted(t *testing.T) {
	dir := t.TempDir()
	// Raw nanosecond numbers must work too
	path := writeConfigFile(t, dir, "nanos.json", `{
		"screen": {"sleep_timeout": 60000000000}
	}`)

	loader := NewLoader()
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Screen.SleepTimeout)
}

func TestConfig_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.json")

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)
	cfg.Device.Name = "roundtrip"
	require.NoError(t, cfg.SaveToFile(path))

	reloaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", reloaded.Device.Name)
	assert.Equal(t, cfg.Telemetry.Interval, reloaded.Telemetry.Interval)
}

func TestSafeConfig_GetReturnsCopy(t *testing.T) {
	sc := NewSafeConfig(&Config{Device: DeviceConfig{Name: "original"}})

	got := sc.Get()
	got.Device.Name = "mutated"

	assert.Equal(t, "original", sc.Get().Device.Name)
}

func TestSafeConfig_UpdateValidates(t *testing.T) {
	sc := NewSafeConfig(NewLoader().getDefaults())

	bad := NewLoader().getDefaults()
	bad.Audio.SampleRate = -1
	err := sc.Update(bad)
	require.Error(t, err)

	// Original config untouched
	assert.Equal(t, 22050, sc.Get().Audio.SampleRate)

	good := NewLoader().getDefaults()
	good.Device.Name = "updated"
	require.NoError(t, sc.Update(good))
	assert.Equal(t, "updated", sc.Get().Device.Name)
}

func TestSafeConfig_NilUpdate(t *testing.T) {
	sc := NewSafeConfig(nil)
	assert.Error(t, sc.Update(nil))
}
