// Package main implements the entry point for the sduiterm device runtime:
// a server-driven UI terminal that renders layouts pushed over WebSocket,
// runs a full-duplex voice pipeline, and reports sensor events upward.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/sduiterm/boot"
	"github.com/c360/sduiterm/config"
	"github.com/c360/sduiterm/provision"
)

// Build information constants
const (
	Version = "1.0.0"
	appName = "sduiterm"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Runtime failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if cliCfg.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}
	if err := validateFlags(cliCfg); err != nil {
		return err
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	store, err := provision.NewStore(cliCfg.StorePath, logger)
	if err != nil {
		return err
	}
	if err := seedCredentials(store, cliCfg); err != nil {
		return err
	}

	hw := hostHardware(cfg, logger)

	orchestrator, err := boot.New(cfg, store, hw, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := orchestrator.Run(ctx); err != nil {
		if errors.Is(err, boot.ErrRestartRequired) {
			logger.Info("Provisioning complete, exiting for restart")
			return nil
		}
		return err
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	orchestrator.Stop()
	return nil
}

func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	loader.EnableValidation(true)
	return loader.Load()
}

// seedCredentials is the host substitute for the captive portal: flags feed
// the store directly so a development run skips the provisioning branch
func seedCredentials(store *provision.Store, cliCfg *CLIConfig) error {
	if cliCfg.SSID == "" {
		return nil
	}
	return store.SetCredentials(provision.Credentials{
		SSID:     cliCfg.SSID,
		Password: cliCfg.WiFiPassword,
		WSURL:    cliCfg.WSURL,
	})
}
