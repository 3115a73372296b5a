package main

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net"
	"time"

	"github.com/c360/sduiterm/boot"
	"github.com/c360/sduiterm/config"
)

// Host stand-ins for the board devices. They keep the full pipeline runnable
// on a development machine: the display logs backlight changes, the speaker
// discards PCM, the microphone yields silence at the configured rate, and
// Wi-Fi reports the host's real interface identity.

func hostHardware(cfg *config.Config, logger *slog.Logger) boot.Hardware {
	return boot.Hardware{
		Display: &hostDisplay{logger: logger},
		WiFi:    &hostWiFi{logger: logger},
		Speaker: &hostSpeaker{},
		Mic:     &hostMic{bytesPerSecond: cfg.Audio.SampleRate * 4},
		Temp:    hostTemp{},
	}
}

type hostDisplay struct {
	logger *slog.Logger
}

func (d *hostDisplay) Init() error { return nil }

func (d *hostDisplay) SetBacklight(level int) error {
	d.logger.Debug("Backlight changed", "level", level)
	return nil
}

type hostWiFi struct {
	logger *slog.Logger
}

func (w *hostWiFi) Connect(_ context.Context, ssid, _ string) error {
	w.logger.Info("Simulated Wi-Fi association", "ssid", ssid)
	return nil
}

// MAC returns the first non-loopback interface's address as lowercase hex,
// matching the identity a real station would report
func (w *hostWiFi) MAC() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return hex.EncodeToString(iface.HardwareAddr), nil
	}
	return "000000000000", nil
}

func (w *hostWiFi) RSSI() int { return -50 }

func (w *hostWiFi) IP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}

type hostSpeaker struct{}

func (hostSpeaker) Write(pcm []byte) (int, error) { return len(pcm), nil }
func (hostSpeaker) SetVolume(int) error           { return nil }
func (hostSpeaker) Close() error                  { return nil }

// hostMic yields silence paced to the stereo capture rate so the record
// pipeline produces frames at a realistic cadence
type hostMic struct {
	bytesPerSecond int
}

func (m *hostMic) Read(pcm []byte) (int, error) {
	for i := range pcm {
		pcm[i] = 0
	}
	if m.bytesPerSecond > 0 {
		time.Sleep(time.Duration(len(pcm)) * time.Second / time.Duration(m.bytesPerSecond))
	}
	return len(pcm), nil
}

func (m *hostMic) SetGain(float64) error { return nil }
func (m *hostMic) Close() error          { return nil }

type hostTemp struct{}

func (hostTemp) Temperature() (float64, error) { return 38.5, nil }
