// Package tacho derives rotational speed from edge-to-edge timing, one edge
// per revolution.
package tacho

import "sync/atomic"

const (
	microsPerMinute = 60_000_000

	// SignalTimeoutMicros is how long after the last edge the signal is
	// still considered present.
	SignalTimeoutMicros = 2_000_000
)

// Tachometer measures RPM from input edges. Edge is called from the edge
// source (a pin interrupt on hardware, a goroutine on the host); all cells
// are atomics so the control loop and display read them without locks.
type Tachometer struct {
	intervalMicros atomic.Int64
	lastEdgeMicros atomic.Int64
	rpm            atomic.Int64
}

// New creates a tachometer with no signal.
func New() *Tachometer {
	return &Tachometer{}
}

// Edge records one input edge at the given timestamp. The first edge after a
// reset only arms the interval measurement.
func (t *Tachometer) Edge(nowMicros int64) {
	last := t.lastEdgeMicros.Load()
	if last != 0 {
		t.intervalMicros.Store(nowMicros - last)
	}
	t.lastEdgeMicros.Store(nowMicros)
}

// Update derives the displayed RPM from the captured interval. A zero or
// negative interval never reaches the division; the previous value is held
// instead.
func (t *Tachometer) Update() {
	if interval := t.intervalMicros.Load(); interval > 0 {
		t.rpm.Store(microsPerMinute / interval)
	}
}

// RPM returns the most recently derived speed.
func (t *Tachometer) RPM() int {
	return int(t.rpm.Load())
}

// SignalPresent reports whether edges are actually arriving: an interval has
// been captured and the last edge is recent.
func (t *Tachometer) SignalPresent(nowMicros int64) bool {
	last := t.lastEdgeMicros.Load()
	return t.intervalMicros.Load() > 0 && last != 0 && nowMicros-last <= SignalTimeoutMicros
}

// Reset clears the captured edges and the derived value, so a stale reading
// never survives a mode change.
func (t *Tachometer) Reset() {
	t.intervalMicros.Store(0)
	t.lastEdgeMicros.Store(0)
	t.rpm.Store(0)
}
