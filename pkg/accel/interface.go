package accel

import (
	"errors"
	"time"
)

// Device defines the interface for 3-axis accelerometer sources (real or mocked).
type Device interface {
	Connect() error
	Close() error
	// TryRead returns the most recent acceleration sample without blocking.
	TryRead() (Sample, error)
	IsConnected() bool
}

// Sample represents one acceleration reading in m/s^2.
type Sample struct {
	Timestamp time.Time
	X         float32
	Y         float32
	Z         float32
}

// ErrNotConnected is returned when the device has not been connected.
var ErrNotConnected = errors.New("not connected")

// ErrNoSample is returned when no reading has arrived yet.
var ErrNoSample = errors.New("no sample available")
