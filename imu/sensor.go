package imu

import (
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/mpu6050"
)

// Accelerometer reads one acceleration sample in m/s² per axis
type Accelerometer interface {
	Acceleration() (x, y, z float64, err error)
}

// metresPerSecond2PerMicroG converts the driver's µg readings to m/s²
const metresPerSecond2PerMicroG = 9.80665 / 1e6

type mpu6050Sensor struct {
	dev mpu6050.Device
}

// NewMPU6050 configures the MPU-6050 on the given I2C bus and returns it as
// an Accelerometer
func NewMPU6050(bus drivers.I2C) (Accelerometer, error) {
	dev := mpu6050.New(bus)
	if err := dev.Configure(); err != nil {
		return nil, err
	}
	return &mpu6050Sensor{dev: dev}, nil
}

func (s *mpu6050Sensor) Acceleration() (float64, float64, float64, error) {
	gx, gy, gz := s.dev.ReadAcceleration()
	return float64(gx) * metresPerSecond2PerMicroG,
		float64(gy) * metresPerSecond2PerMicroG,
		float64(gz) * metresPerSecond2PerMicroG,
		nil
}
