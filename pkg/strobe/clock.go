package strobe

import (
	"context"
	"sync"
	"time"
)

// State identifies the pulse clock lifecycle.
type State int

const (
	// Muted means the gate is closed and the line is held low.
	Muted State = iota
	// AwaitingPhase means the gate just opened and the first edge is being
	// delayed by the configured phase.
	AwaitingPhase
	// Running means the line is toggling at the half-period.
	Running
)

// String returns a short label for display.
func (s State) String() string {
	switch s {
	case Muted:
		return "muted"
	case AwaitingPhase:
		return "phase"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Output is the line the clock drives. Set is called from the clock
// goroutine and must not block.
type Output interface {
	Set(on bool)
}

// Clock toggles the output line at the published half-period. Fire is a pure
// state transition returning the next delay, so tests drive it directly;
// Run wires it to a real timer. The controller publishes timing and gate
// changes through SetTiming/Enable/Disable, all under the same mutex as
// Fire, so a published setpoint is visible to the very next firing and is
// never observed torn.
type Clock struct {
	mu  sync.Mutex
	out Output

	enabled      bool
	phasePending bool
	level        bool
	state        State

	halfPeriodMicros int64
	phaseDelayMicros int64
}

// NewClock creates a clock driving the given output. The clock starts muted
// at the default rate.
func NewClock(out Output) *Clock {
	return &Clock{
		out:              out,
		state:            Muted,
		halfPeriodMicros: HalfPeriodMicros(DefaultRateFPM),
	}
}

// SetTiming publishes a new half-period and phase delay in microseconds.
func (c *Clock) SetTiming(halfPeriodMicros, phaseDelayMicros int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.halfPeriodMicros = halfPeriodMicros
	c.phaseDelayMicros = phaseDelayMicros
}

// Enable opens the gate. The next firing applies the phase delay before the
// first edge.
func (c *Clock) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
	c.phasePending = true
	c.state = AwaitingPhase
}

// Disable closes the gate. The line is forced low at the next firing, so the
// change is observed within one timer period.
func (c *Clock) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
	c.state = Muted
}

// Fire performs one firing of the clock and returns the delay until the next
// one.
func (c *Clock) Fire() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		// Keep the timer alive while muted, forcing the line low.
		if c.level {
			c.level = false
			c.out.Set(false)
		}
		return time.Duration(c.halfPeriodMicros) * time.Microsecond
	}

	if c.phasePending {
		c.phasePending = false
		if c.phaseDelayMicros > 0 {
			// Delay the first edge instead of toggling.
			return time.Duration(c.phaseDelayMicros) * time.Microsecond
		}
	}

	c.level = !c.level
	c.out.Set(c.level)
	c.state = Running
	return time.Duration(c.halfPeriodMicros) * time.Microsecond
}

// Run drives the clock from a timer until the context is cancelled, then
// forces the line low.
func (c *Clock) Run(ctx context.Context) {
	c.mu.Lock()
	d := time.Duration(c.halfPeriodMicros) * time.Microsecond
	c.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			if c.level {
				c.level = false
				c.out.Set(false)
			}
			c.mu.Unlock()
			return
		case <-timer.C:
			timer.Reset(c.Fire())
		}
	}
}

// State returns the current lifecycle state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Level returns the current output level.
func (c *Clock) Level() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Enabled returns whether the gate is open.
func (c *Clock) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}
