// Package strobe implements the pulse-timing engine of the instrument: a
// flash-rate setpoint with phase offset, and the clock that toggles the lamp
// line from it.
package strobe

const (
	// MinRateFPM is the slowest supported flash rate, in flashes per minute.
	MinRateFPM = 30
	// MaxRateFPM is the fastest supported flash rate.
	MaxRateFPM = 40000
	// DefaultRateFPM is the rate used before configuration is loaded.
	DefaultRateFPM = 1800

	maxPhaseDeg = 359
)

// HalfPeriodMicros returns half the flash period in microseconds for a rate
// in flashes per minute. The rate must be positive; the controller clamps
// before calling.
func HalfPeriodMicros(rateFPM int) int64 {
	return 60_000_000 / int64(rateFPM) / 2
}

// PhaseDelayMicros returns the delay applied to the first edge after the gate
// opens, for a phase in degrees of one full flash period.
func PhaseDelayMicros(halfPeriodMicros int64, phaseDeg int) int64 {
	return 2 * halfPeriodMicros * int64(phaseDeg) / 360
}

// Controller owns the strobe setpoint and the enable gate. Setters clamp
// their input and mark the setpoint dirty; Recompute derives the microsecond
// timing and publishes it to the clock in one critical section. All methods
// must be called from the control loop goroutine.
type Controller struct {
	clock *Clock
	rate  int
	phase int
	dirty bool

	// OnRateChange, when set, is invoked with the applied rate after every
	// accepted rate change, so the value can be mirrored to persisted
	// configuration. Transient rates do not trigger it.
	OnRateChange func(rateFPM int)
}

// NewController creates a controller for the given clock, starting from the
// persisted rate.
func NewController(clock *Clock, rateFPM int) *Controller {
	return &Controller{
		clock: clock,
		rate:  clampRate(rateFPM),
		dirty: true,
	}
}

// Rate returns the current setpoint rate in flashes per minute.
func (c *Controller) Rate() int {
	return c.rate
}

// Phase returns the current phase offset in degrees.
func (c *Controller) Phase() int {
	return c.phase
}

// SetRate applies a new flash rate, clamped to the supported range.
func (c *Controller) SetRate(rateFPM int) {
	clamped := clampRate(rateFPM)
	if clamped == c.rate {
		return
	}
	c.rate = clamped
	c.dirty = true
	if c.OnRateChange != nil {
		c.OnRateChange(clamped)
	}
}

// AdjustRate shifts the rate by a signed step.
func (c *Controller) AdjustRate(delta int) {
	c.SetRate(c.rate + delta)
}

// DoubleRate doubles the flash rate. Useful for finding the true rotation
// rate: harmonics flash in sync, the fundamental does not.
func (c *Controller) DoubleRate() {
	c.SetRate(c.rate * 2)
}

// HalveRate halves the flash rate.
func (c *Controller) HalveRate() {
	c.SetRate(c.rate / 2)
}

// SetPhase applies a new phase offset, clamped to 0..359 degrees.
func (c *Controller) SetPhase(deg int) {
	clamped := clampPhase(deg)
	if clamped == c.phase {
		return
	}
	c.phase = clamped
	c.dirty = true
}

// AdjustPhase shifts the phase by a signed step. Phase is circular, so the
// adjustment wraps around instead of clamping.
func (c *Controller) AdjustPhase(delta int) {
	deg := (c.phase + delta) % 360
	if deg < 0 {
		deg += 360
	}
	if deg == c.phase {
		return
	}
	c.phase = deg
	c.dirty = true
}

// Enable opens the gate.
func (c *Controller) Enable() {
	c.clock.Enable()
}

// Disable closes the gate.
func (c *Controller) Disable() {
	c.clock.Disable()
}

// Enabled returns whether the gate is open.
func (c *Controller) Enabled() bool {
	return c.clock.Enabled()
}

// Recompute derives the timing from the setpoint and publishes it to the
// clock. It is meant to be called exactly once per control-loop iteration;
// a clean setpoint makes it a no-op.
func (c *Controller) Recompute() {
	if !c.dirty {
		return
	}
	half := HalfPeriodMicros(c.rate)
	c.clock.SetTiming(half, PhaseDelayMicros(half, c.phase))
	c.dirty = false
}

// SetRateTransient publishes timing for the given rate without touching the
// stored setpoint or the persist mirror. Lantern mode and the self-test
// sweep run on transient rates; Invalidate restores the setpoint afterwards.
func (c *Controller) SetRateTransient(rateFPM int) {
	half := HalfPeriodMicros(clampRate(rateFPM))
	c.clock.SetTiming(half, PhaseDelayMicros(half, c.phase))
}

// Invalidate marks the setpoint dirty so the next Recompute republishes it.
func (c *Controller) Invalidate() {
	c.dirty = true
}

func clampRate(rateFPM int) int {
	if rateFPM < MinRateFPM {
		return MinRateFPM
	}
	if rateFPM > MaxRateFPM {
		return MaxRateFPM
	}
	return rateFPM
}

func clampPhase(deg int) int {
	if deg < 0 {
		return 0
	}
	if deg > maxPhaseDeg {
		return maxPhaseDeg
	}
	return deg
}
