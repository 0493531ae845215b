package instrument

import (
	"math"
	"time"
)

const (
	sweepStartFPM = 60
	sweepEndFPM   = 12000
	sweepPeriod   = 6 * time.Second
)

// sweep ramps the flash rate exponentially from the low bound to the high
// bound, wrapping each period, so the self-test exercises the whole timing
// range.
type sweep struct {
	startFPM float64
	endFPM   float64
	period   time.Duration
	began    time.Time
}

func newSweep() sweep {
	return sweep{
		startFPM: sweepStartFPM,
		endFPM:   sweepEndFPM,
		period:   sweepPeriod,
	}
}

// begin restarts the ramp at the low bound.
func (s *sweep) begin(now time.Time) {
	s.began = now
}

// rate returns the swept rate at the given time, in flashes per minute.
func (s *sweep) rate(now time.Time) int {
	elapsed := now.Sub(s.began)
	if elapsed < 0 {
		elapsed = 0
	}
	frac := math.Mod(elapsed.Seconds(), s.period.Seconds()) / s.period.Seconds()
	return int(s.startFPM * math.Pow(s.endFPM/s.startFPM, frac))
}
