package vibro

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// feedSine observes a pure sine of the given frequency and amplitude for one
// second at the given sampling rate.
func feedSine(z *ZeroCross, freqHz, amp, rateHz float64) {
	n := int(rateHz)
	for i := 0; i < n; i++ {
		t := float64(i) / rateHz
		z.Observe(int64(t*1e6), amp*math.Sin(2*math.Pi*freqHz*t))
	}
}

func TestZeroCross_PureSine(t *testing.T) {
	tests := []struct {
		name   string
		freqHz float64
	}{
		{"25 Hz", 25},
		{"50 Hz", 50},
		{"7 Hz", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z := NewZeroCross()
			z.Reset(1000)
			feedSine(z, tt.freqHz, 1.0, 1000)

			got := z.Finalize(nil, Stats{})
			assert.InDelta(t, tt.freqHz, got, 0.5)
		})
	}
}

func TestZeroCross_DeadbandRejectsNoise(t *testing.T) {
	z := NewZeroCross()
	z.Reset(1000)

	// Noise well inside the deadband never arms the detector
	feedSine(z, 25, zeroCrossDeadband/5, 1000)

	assert.Equal(t, 0, z.count)
	assert.Equal(t, 0.0, z.Finalize(nil, Stats{}))
}

func TestZeroCross_Instant(t *testing.T) {
	z := NewZeroCross()
	z.Reset(1000)

	assert.Equal(t, 0.0, z.Instant(), "no crossings yet")

	// Two crossings 20 ms apart imply a 40 ms period
	z.Observe(0, 1.0)
	z.Observe(10_000, -1.0)
	z.Observe(30_000, 1.0)
	assert.InDelta(t, 25.0, z.Instant(), 1e-9)
}

func TestZeroCross_TooFewCrossings(t *testing.T) {
	z := NewZeroCross()
	z.Reset(1000)

	z.Observe(0, 1.0)
	z.Observe(10_000, -1.0) // single crossing
	assert.Equal(t, 0.0, z.Finalize(nil, Stats{}))
}

func TestZeroCross_ResetClearsHistory(t *testing.T) {
	z := NewZeroCross()
	z.Reset(1000)
	feedSine(z, 25, 1.0, 1000)
	assert.Greater(t, z.count, 10)

	z.Reset(1000)
	assert.Equal(t, 0, z.count)
	assert.Equal(t, 0.0, z.Instant())
}

func TestNewEstimator(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  interface{}
	}{
		{"zerocross token", EstimatorZeroCross, &ZeroCross{}},
		{"spectral token", EstimatorSpectral, &Spectral{}},
		{"empty token defaults to spectral", "", &Spectral{}},
		{"unknown token defaults to spectral", "wavelet", &Spectral{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEstimator(tt.token)
			assert.IsType(t, tt.want, got)
		})
	}
}
