package boot

import (
	"context"

	"github.com/c360/sduiterm/audio"
	"github.com/c360/sduiterm/imu"
	"github.com/c360/sduiterm/provision"
	"github.com/c360/sduiterm/telemetry"
)

// Display is the panel surface the orchestrator drives. Init brings up the
// panel and its DMA path; SetBacklight takes 0-100.
type Display interface {
	Init() error
	SetBacklight(level int) error
}

// WiFi is the station-mode network interface. Connect blocks until the link
// is up or fails. MAC returns the station MAC as lowercase hex without
// separators; it doubles as the device identity.
type WiFi interface {
	Connect(ctx context.Context, ssid, password string) error
	MAC() (string, error)
	RSSI() int
	IP() string
}

// Provisioner runs the captive-portal credential capture. Serve blocks until
// a credential set is submitted or the context ends. The portal itself
// (SoftAP, DNS, HTTP form) lives outside this module.
type Provisioner interface {
	Serve(ctx context.Context) (provision.Credentials, error)
}

// Hardware bundles the board-level devices the runtime consumes. Accel may
// be nil when the IMU is absent; Provisioner may be nil on pre-provisioned
// devices.
type Hardware struct {
	Display     Display
	WiFi        WiFi
	Provisioner Provisioner
	Speaker     audio.Speaker
	Mic         audio.Microphone
	Accel       imu.Accelerometer
	Temp        telemetry.TempSensor
}
