package accel

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/itohio/gostrovib/pkg/config"
)

// gravity is the baseline acceleration on the Z axis in m/s^2.
const gravity = 9.80665

// Mock simulates an accelerometer for testing and development. It produces a
// sinusoidal vibration on the X axis on top of gravity on Z, with a small
// deterministic pseudo-noise on all axes.
type Mock struct {
	cfg *config.MockConfig

	mu        sync.RWMutex
	connected bool
	startTime time.Time
	lastGen   time.Time
	last      Sample
}

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			NoiseLevel:   0.02,
			VibrationHz:  25.0,
			VibrationAmp: 1.5,
			SampleRate:   4 * time.Millisecond,
		}
	}

	return &Mock{cfg: cfg}
}

// Connect simulates connecting to the device.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = time.Now()
	m.lastGen = time.Time{}

	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false

	return nil
}

// TryRead returns the current simulated reading. A fresh sample is generated
// at most once per configured sample rate, mimicking the output data rate of
// a real sensor.
func (m *Mock) TryRead() (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return Sample{}, ErrNotConnected
	}

	now := time.Now()
	if m.lastGen.IsZero() || now.Sub(m.lastGen) >= m.cfg.SampleRate {
		m.last = m.sampleAt(now)
		m.lastGen = now
	}

	return m.last, nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// sampleAt generates the simulated reading for the given instant.
func (m *Mock) sampleAt(now time.Time) Sample {
	elapsed := now.Sub(m.startTime)
	seconds := elapsed.Seconds()

	vibration := m.cfg.VibrationAmp * math.Sin(2*math.Pi*m.cfg.VibrationHz*seconds)

	// Deterministic pseudo-noise, different phase per axis
	nanos := float64(elapsed.Nanoseconds())
	noiseX := (math.Sin(nanos*0.001) + math.Cos(nanos*0.0013)) * m.cfg.NoiseLevel * 0.5
	noiseY := (math.Sin(nanos*0.0011) + math.Cos(nanos*0.0017)) * m.cfg.NoiseLevel * 0.5
	noiseZ := (math.Sin(nanos*0.0009) + math.Cos(nanos*0.0019)) * m.cfg.NoiseLevel * 0.5

	return Sample{
		Timestamp: now,
		X:         float32(vibration + noiseX),
		Y:         float32(noiseY),
		Z:         float32(gravity + noiseZ),
	}
}
