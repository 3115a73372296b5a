package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath   string
	StorePath    string
	LogLevel     string
	LogFormat    string
	SSID         string
	WiFiPassword string
	WSURL        string
	ShowVersion  bool
	ShowHelp     bool
	Validate     bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("SDUITERM_CONFIG", ""),
		"Path to configuration file, empty for built-in defaults (env: SDUITERM_CONFIG)")

	flag.StringVar(&cfg.StorePath, "store",
		getEnv("SDUITERM_STORE", "sduiterm.nvs.json"),
		"Path to the provisioning store (env: SDUITERM_STORE)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SDUITERM_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: SDUITERM_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SDUITERM_LOG_FORMAT", "text"),
		"Log format: json, text (env: SDUITERM_LOG_FORMAT)")

	flag.StringVar(&cfg.SSID, "ssid", "",
		"Seed the store with this Wi-Fi SSID, bypassing the captive portal")
	flag.StringVar(&cfg.WiFiPassword, "wifi-password", "",
		"Wi-Fi password used with -ssid")
	flag.StringVar(&cfg.WSURL, "ws-url", "",
		"Server WebSocket URL stored with -ssid")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.SSID == "" && (cfg.WiFiPassword != "" || cfg.WSURL != "") {
		return fmt.Errorf("-wifi-password and -ws-url require -ssid")
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Server-Driven UI Terminal Runtime

Usage:
  %s [flags]

The runtime boots the device pipeline: display, layout engine, audio,
Wi-Fi, WebSocket transport, IMU, and telemetry. On a host machine the
board devices are simulated; point -ws-url at a server to drive the UI.

Flags:
  -config path        Configuration file (default: built-in defaults)
  -store path         Provisioning store file (default: sduiterm.nvs.json)
  -log-level level    debug, info, warn, error (default: info)
  -log-format format  json, text (default: text)
  -ssid name          Seed Wi-Fi credentials, bypassing the captive portal
  -wifi-password pw   Wi-Fi password used with -ssid
  -ws-url url         Server WebSocket URL stored with -ssid
  -validate           Validate configuration and exit
  -version, -v        Show version information
  -help, -h           Show this help

Environment:
  SDUITERM_CONFIG, SDUITERM_STORE, SDUITERM_LOG_LEVEL,
  SDUITERM_LOG_FORMAT, SDUITERM_WS_URL
`, appName, appName)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
