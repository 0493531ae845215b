//go:build tinygo

package accel

import (
	"fmt"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/lis3dh"
)

// microGToMS2 converts a micro-g reading to m/s^2.
const microGToMS2 = 9.80665 / 1e6

// LIS3DH reads the onboard accelerometer over I2C.
type LIS3DH struct {
	dev       lis3dh.Device
	connected bool
}

// Ensure LIS3DH implements Device.
var _ Device = (*LIS3DH)(nil)

// NewLIS3DH creates a device on the given I2C bus. The bus must already be
// configured.
func NewLIS3DH(bus drivers.I2C) *LIS3DH {
	return &LIS3DH{dev: lis3dh.New(bus)}
}

// Connect configures the sensor and verifies it responds on the bus.
func (d *LIS3DH) Connect() error {
	d.dev.Address = lis3dh.Address0
	d.dev.Configure()
	d.dev.SetRange(lis3dh.RANGE_2_G)
	if !d.dev.Connected() {
		return fmt.Errorf("lis3dh not responding: %w", ErrNotConnected)
	}
	d.connected = true
	return nil
}

// Close marks the sensor as disconnected. The bus stays configured.
func (d *LIS3DH) Close() error {
	d.connected = false
	return nil
}

// TryRead reads the current acceleration from the sensor.
func (d *LIS3DH) TryRead() (Sample, error) {
	if !d.connected {
		return Sample{}, ErrNotConnected
	}

	x, y, z, err := d.dev.ReadAcceleration()
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read acceleration: %w", err)
	}

	return Sample{
		Timestamp: time.Now(),
		X:         float32(x) * microGToMS2,
		Y:         float32(y) * microGToMS2,
		Z:         float32(z) * microGToMS2,
	}, nil
}

// IsConnected returns whether the sensor responded during Connect.
func (d *LIS3DH) IsConnected() bool {
	return d.connected
}
