package vibro

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	// noiseFloor is the minimum spectral magnitude a bin must reach to count
	// as a real peak.
	noiseFloor = 2.0

	// Stillness thresholds. When every statistic of a measurement sits below
	// these simultaneously the instrument was resting and the dominant
	// frequency is forced to zero, whatever the spectrum says.
	stillRMS      = 0.05
	stillStdDev   = 0.05
	stillVelocity = 0.02
	stillPeakMag  = 5.0
)

// Spectral estimates the dominant frequency from the strongest FFT bin of
// the magnitude window: DC removal, Hann window, forward transform, then a
// scan of the non-DC bins below Nyquist.
type Spectral struct {
	sampleRate float64
	fft        *fourier.FFT
	buf        []float64
	coeff      []complex128
}

// NewSpectral creates a spectral estimator.
func NewSpectral() *Spectral {
	return &Spectral{}
}

// Name returns the configuration token of this strategy.
func (s *Spectral) Name() string {
	return EstimatorSpectral
}

// Reset records the sampling rate of the upcoming measurement.
func (s *Spectral) Reset(sampleRateHz float64) {
	s.sampleRate = sampleRateHz
}

// Observe is part of the Estimator interface; the spectral strategy only
// looks at the finalized window.
func (s *Spectral) Observe(tMicros int64, value float64) {}

// Finalize transforms the window and returns the dominant frequency, or zero
// when nothing rises above the noise floor or the stillness filter trips.
func (s *Spectral) Finalize(win []float64, stats Stats) float64 {
	n := len(win)
	if n < 4 || s.sampleRate <= 0 {
		return 0
	}

	coeff := s.transform(win)

	peakBin := 0
	var peakMag float64
	for i := 1; i < n/2; i++ {
		if mag := cmplx.Abs(coeff[i]); mag > peakMag {
			peakMag = mag
			peakBin = i
		}
	}

	if stats.RMS < stillRMS && stats.StdDev < stillStdDev &&
		stats.RMSVelocity < stillVelocity && peakMag < stillPeakMag {
		return 0
	}
	if peakMag < noiseFloor {
		return 0
	}

	return s.fft.Freq(peakBin) * s.sampleRate
}

// Spectrum returns display magnitudes for the window's non-DC bins below
// Nyquist, for the scope view.
func (s *Spectral) Spectrum(win []float64) []float64 {
	n := len(win)
	if n < 4 {
		return nil
	}

	coeff := s.transform(win)
	out := make([]float64, n/2-1)
	for i := 1; i < n/2; i++ {
		out[i-1] = cmplx.Abs(coeff[i])
	}
	return out
}

// transform removes DC, applies the Hann window and runs the forward FFT,
// reusing the transform state across measurements of the same length.
func (s *Spectral) transform(win []float64) []complex128 {
	n := len(win)
	if s.fft == nil || s.fft.Len() != n {
		s.fft = fourier.NewFFT(n)
		s.buf = make([]float64, n)
		s.coeff = make([]complex128, n/2+1)
	}

	// Remove DC so the window function doesn't smear the mean across bins
	var mean float64
	for _, v := range win {
		mean += v
	}
	mean /= float64(n)
	for i, v := range win {
		s.buf[i] = v - mean
	}
	window.Hann(s.buf)

	return s.fft.Coefficients(s.coeff, s.buf)
}
