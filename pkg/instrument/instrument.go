// Package instrument arbitrates the operating modes of the device and runs
// the cooperative control loop. Exactly one mode is active at a time; leaving
// a mode always closes the strobe gate and forces the vibration session idle,
// so no background hardware activity leaks between modes.
package instrument

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/itohio/gostrovib/pkg/strobe"
	"github.com/itohio/gostrovib/pkg/tacho"
	"github.com/itohio/gostrovib/pkg/vibro"
)

// Mode identifies the active operating mode.
type Mode int

const (
	// ModeStrobe flashes at the user setpoint with adjustable phase.
	ModeStrobe Mode = iota
	// ModeLantern runs the strobe at the maximum rate, which the eye reads
	// as continuous light.
	ModeLantern
	// ModeTach measures rotational speed from the optical pickup.
	ModeTach
	// ModeVibration runs the vibration measurement session.
	ModeVibration
	// ModeSelfTest sweeps the flash rate across its range.
	ModeSelfTest

	modeCount
)

// String returns the display label of the mode.
func (m Mode) String() string {
	switch m {
	case ModeStrobe:
		return "strobe"
	case ModeLantern:
		return "lantern"
	case ModeTach:
		return "tachometer"
	case ModeVibration:
		return "vibration"
	case ModeSelfTest:
		return "self-test"
	default:
		return "unknown"
	}
}

// EditTarget selects which strobe parameter the encoder adjusts.
type EditTarget int

const (
	// TargetRate routes encoder deltas to the flash rate.
	TargetRate EditTarget = iota
	// TargetPhase routes encoder deltas to the phase offset.
	TargetPhase
)

// String returns the display label of the edit target.
func (t EditTarget) String() string {
	if t == TargetPhase {
		return "phase"
	}
	return "rate"
}

// EventKind identifies a debounced input event.
type EventKind int

const (
	// EventModeNext cycles to the next operating mode.
	EventModeNext EventKind = iota
	// EventAdvance is the multi-function confirm button: it toggles the
	// strobe edit target, or advances the vibration session.
	EventAdvance
	// EventRateDouble doubles the strobe rate.
	EventRateDouble
	// EventRateHalve halves the strobe rate.
	EventRateHalve
	// EventEncoder carries a relative encoder delta.
	EventEncoder
)

// Event is one debounced input delivered to the control loop. The input
// collaborator performs the debouncing; the core never reads raw pins.
type Event struct {
	Kind  EventKind
	Delta int // encoder detents, signed; meaningful for EventEncoder only
}

// Snapshot is a read-only view of the whole instrument for display. RateFPM
// is the rate currently driving the lamp; in lantern and self-test modes that
// is the transient rate, not the stored setpoint.
type Snapshot struct {
	Mode          Mode
	Target        EditTarget
	RateFPM       int
	PhaseDeg      int
	GateOpen      bool
	RPM           int
	SignalPresent bool
	Vibration     vibro.Status
}

const eventQueueSize = 32

// Instrument owns the mode state machine and sequences the strobe controller,
// tachometer and vibration session from one cooperative loop. Events are
// posted from any goroutine; everything else is loop-owned, and display
// readers get mutex-guarded copies captured at the end of each step.
type Instrument struct {
	strobe  *strobe.Controller
	tach    *tacho.Tachometer
	session *vibro.Session

	events chan Event
	sweep  sweep
	disp   *vibro.Spectral

	mu       sync.RWMutex
	mode     Mode
	target   EditTarget
	snap     Snapshot
	wave     []float64
	spectrum []float64
}

// New creates an instrument over the given components and enters strobe mode,
// matching the device's power-on behavior.
func New(ctrl *strobe.Controller, tach *tacho.Tachometer, session *vibro.Session) *Instrument {
	ins := &Instrument{
		strobe:  ctrl,
		tach:    tach,
		session: session,
		events:  make(chan Event, eventQueueSize),
		sweep:   newSweep(),
		disp:    vibro.NewSpectral(),
		mode:    ModeStrobe,
	}
	ins.enterMode(ModeStrobe, time.Now())
	ins.capture(time.Now())
	return ins
}

// Post delivers an input event to the control loop without blocking. Events
// beyond the queue capacity are dropped; a stuck loop must not back-pressure
// into an interrupt or UI handler.
func (ins *Instrument) Post(ev Event) {
	select {
	case ins.events <- ev:
	default:
		log.Printf("instrument: event queue full, dropping %v", ev.Kind)
	}
}

// Mode returns the active mode.
func (ins *Instrument) Mode() Mode {
	ins.mu.RLock()
	defer ins.mu.RUnlock()
	return ins.mode
}

// SetMode switches directly to the given mode, running the usual exit and
// entry actions. Must be called from the loop goroutine; input collaborators
// use EventModeNext instead.
func (ins *Instrument) SetMode(mode Mode, now time.Time) {
	if mode < 0 || mode >= modeCount {
		return
	}
	ins.exitMode()
	ins.mu.Lock()
	ins.mode = mode
	ins.mu.Unlock()
	ins.enterMode(mode, now)
}

// Step runs one cooperative loop iteration: drain pending events, tick the
// active mode, then publish any dirty strobe setpoint exactly once.
func (ins *Instrument) Step(now time.Time) {
drain:
	for {
		select {
		case ev := <-ins.events:
			ins.handleEvent(ev, now)
		default:
			break drain
		}
	}

	switch ins.Mode() {
	case ModeTach:
		ins.tach.Update()
	case ModeVibration:
		ins.session.Tick(now)
	case ModeSelfTest:
		ins.strobe.SetRateTransient(ins.sweep.rate(now))
	}

	ins.strobe.Recompute()
	ins.capture(now)
}

// Run drives Step at the given cadence until the context is cancelled, then
// leaves the hardware quiet.
func (ins *Instrument) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ins.exitMode()
			return
		case now := <-ticker.C:
			ins.Step(now)
		}
	}
}

// Snapshot returns the view captured at the end of the last Step. Safe to
// call from any goroutine.
func (ins *Instrument) Snapshot() Snapshot {
	ins.mu.RLock()
	defer ins.mu.RUnlock()
	return ins.snap
}

// Wave returns a copy of the vibration sample window captured at the end of
// the last Step. Safe to call from any goroutine.
func (ins *Instrument) Wave() []float64 {
	ins.mu.RLock()
	defer ins.mu.RUnlock()
	if len(ins.wave) == 0 {
		return nil
	}
	return append([]float64(nil), ins.wave...)
}

// Spectrum returns a copy of the display spectrum of the most recently
// completed measurement. Safe to call from any goroutine.
func (ins *Instrument) Spectrum() []float64 {
	ins.mu.RLock()
	defer ins.mu.RUnlock()
	if len(ins.spectrum) == 0 {
		return nil
	}
	return append([]float64(nil), ins.spectrum...)
}

// capture publishes display state for concurrent readers. The controller,
// tachometer and session stay loop-owned; readers only ever see these copies.
func (ins *Instrument) capture(now time.Time) {
	st := ins.session.Status()

	ins.mu.Lock()
	rate := ins.strobe.Rate()
	switch ins.mode {
	case ModeLantern:
		rate = strobe.MaxRateFPM
	case ModeSelfTest:
		rate = ins.sweep.rate(now)
	}
	newResult := st.HasResult && (!ins.snap.Vibration.HasResult || st.Result != ins.snap.Vibration.Result)
	ins.snap = Snapshot{
		Mode:          ins.mode,
		Target:        ins.target,
		RateFPM:       rate,
		PhaseDeg:      ins.strobe.Phase(),
		GateOpen:      ins.strobe.Enabled(),
		RPM:           ins.tach.RPM(),
		SignalPresent: ins.tach.SignalPresent(now.UnixMicro()),
		Vibration:     st,
	}
	ins.wave = append(ins.wave[:0], ins.session.WindowSamples()...)
	wave := ins.wave
	ins.mu.Unlock()

	// The FFT over a full window is too heavy for every step; run it only
	// when a measurement has just finished.
	if newResult {
		spectrum := ins.disp.Spectrum(wave)
		ins.mu.Lock()
		ins.spectrum = spectrum
		ins.mu.Unlock()
	}
}

func (ins *Instrument) handleEvent(ev Event, now time.Time) {
	mode := ins.Mode()

	switch ev.Kind {
	case EventModeNext:
		ins.SetMode((mode+1)%modeCount, now)

	case EventAdvance:
		switch mode {
		case ModeStrobe:
			ins.mu.Lock()
			if ins.target == TargetRate {
				ins.target = TargetPhase
			} else {
				ins.target = TargetRate
			}
			ins.mu.Unlock()
		case ModeVibration:
			ins.session.Advance(now)
		}

	case EventRateDouble:
		if mode == ModeStrobe {
			ins.strobe.DoubleRate()
		}

	case EventRateHalve:
		if mode == ModeStrobe {
			ins.strobe.HalveRate()
		}

	case EventEncoder:
		switch mode {
		case ModeStrobe:
			ins.mu.RLock()
			target := ins.target
			ins.mu.RUnlock()
			if target == TargetPhase {
				ins.strobe.AdjustPhase(ev.Delta)
			} else {
				ins.strobe.AdjustRate(ev.Delta)
			}
		case ModeVibration:
			ins.session.AdjustDuration(ev.Delta)
		}
	}
}

// exitMode closes the gate and idles the session regardless of the mode
// being left; both are no-ops when already inactive.
func (ins *Instrument) exitMode() {
	ins.strobe.Disable()
	ins.session.ForceIdle()
}

func (ins *Instrument) enterMode(mode Mode, now time.Time) {
	switch mode {
	case ModeStrobe:
		// Republish the setpoint in case a transient rate was active
		ins.strobe.Invalidate()
		ins.strobe.Enable()
	case ModeLantern:
		ins.strobe.SetRateTransient(strobe.MaxRateFPM)
		ins.strobe.Enable()
	case ModeTach:
		ins.tach.Reset()
	case ModeSelfTest:
		ins.sweep.begin(now)
		ins.strobe.SetRateTransient(ins.sweep.rate(now))
		ins.strobe.Enable()
	}
}
