package vibro

// zeroCrossDeadband is the amplitude in m/s^2 the signal must leave before a
// sign change counts as a crossing. This is the noise gate of the
// zero-crossing strategy; the spectral strategy uses the stillness filter
// instead.
const zeroCrossDeadband = 0.05

// ZeroCross estimates the dominant frequency from sign changes of the
// offset-corrected axis signal. Each crossing pair spans half a vibration
// period, so freq = 1/(2*interval).
type ZeroCross struct {
	sign         int // -1 or +1 once armed, 0 inside the deadband
	count        int
	firstMicros  int64
	lastMicros   int64
	lastInterval int64
}

// NewZeroCross creates a zero-crossing estimator.
func NewZeroCross() *ZeroCross {
	return &ZeroCross{}
}

// Name returns the configuration token of this strategy.
func (z *ZeroCross) Name() string {
	return EstimatorZeroCross
}

// Reset clears the crossing history for a new measurement.
func (z *ZeroCross) Reset(sampleRateHz float64) {
	z.sign = 0
	z.count = 0
	z.firstMicros = 0
	z.lastMicros = 0
	z.lastInterval = 0
}

// Observe feeds one offset-corrected sample. Sign changes register only once
// the signal has crossed the opposite deadband boundary, so noise around
// zero never counts.
func (z *ZeroCross) Observe(tMicros int64, value float64) {
	s := 0
	if value > zeroCrossDeadband {
		s = 1
	} else if value < -zeroCrossDeadband {
		s = -1
	}
	if s == 0 {
		return
	}

	if z.sign == 0 {
		// First departure from the deadband arms the detector
		z.sign = s
		return
	}
	if s == z.sign {
		return
	}

	z.sign = s
	if z.count > 0 {
		z.lastInterval = tMicros - z.lastMicros
	} else {
		z.firstMicros = tMicros
	}
	z.lastMicros = tMicros
	z.count++
}

// Instant returns the frequency implied by the most recent crossing pair,
// for live display during the measurement.
func (z *ZeroCross) Instant() float64 {
	if z.lastInterval <= 0 {
		return 0
	}
	return 1 / (2 * float64(z.lastInterval) * 1e-6)
}

// Finalize averages all observed crossings into one estimate. The window and
// stats are ignored; this strategy trusts only the crossings it counted.
func (z *ZeroCross) Finalize(window []float64, stats Stats) float64 {
	if z.count < 2 {
		return 0
	}
	span := float64(z.lastMicros-z.firstMicros) * 1e-6
	if span <= 0 {
		return 0
	}
	return float64(z.count-1) / (2 * span)
}
