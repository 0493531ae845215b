//go:generate tinygo flash -target=xiao-rp2040

package main

import (
	"machine"
	"strconv"
	"time"

	"github.com/itohio/gostrovib/pkg/accel"
	"github.com/itohio/gostrovib/pkg/config"
	"github.com/itohio/gostrovib/pkg/instrument"
	"github.com/itohio/gostrovib/pkg/strobe"
	"github.com/itohio/gostrovib/pkg/tacho"
	"github.com/itohio/gostrovib/pkg/vibro"
)

// tach is package level so the pin interrupt reaches it without a capture.
// Edge only touches atomics, which is safe from the interrupt handler.
var tach = tacho.New()

// lampOutput drives the flash gate pin.
type lampOutput struct {
	pin machine.Pin
}

func (o lampOutput) Set(on bool) {
	o.pin.Set(on)
}

// button tracks one active-low input with a debounce window.
type button struct {
	pin      machine.Pin
	pressed  bool
	lastEdge time.Time
}

func newButton(pin machine.Pin) *button {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return &button{pin: pin}
}

// fell reports a debounced press edge.
func (b *button) fell(now time.Time) bool {
	down := !b.pin.Get() // active low
	if down == b.pressed {
		return false
	}
	if now.Sub(b.lastEdge) < DEBOUNCE_MS*time.Millisecond {
		return false
	}
	b.pressed = down
	b.lastEdge = now
	return down
}

// encoder decodes a quadrature pair by polling. The loop granularity is well
// under one detent at hand speeds, so no interrupt is needed.
type encoder struct {
	pinA, pinB machine.Pin
	lastState  uint8
}

func newEncoder(pinA, pinB machine.Pin) *encoder {
	pinA.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	pinB.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	e := &encoder{pinA: pinA, pinB: pinB}
	e.lastState = e.read()
	return e
}

func (e *encoder) read() uint8 {
	var s uint8
	if e.pinA.Get() {
		s |= 1
	}
	if e.pinB.Get() {
		s |= 2
	}
	return s
}

// delta returns the movement since the last call: -1, 0 or +1.
func (e *encoder) delta() int {
	s := e.read()
	if s == e.lastState {
		return 0
	}

	var d int
	switch e.lastState<<2 | s {
	case 0b0001, 0b0111, 0b1110, 0b1000:
		d = 1
	case 0b0010, 0b1011, 0b1101, 0b0100:
		d = -1
	}
	e.lastState = s
	return d
}

func main() {
	// Lamp gate output, off until the clock opens it
	PIN_LAMP.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LAMP.Low()

	// Tach pickup delivers edges straight into the tachometer
	PIN_TACH.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	PIN_TACH.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		tach.Edge(time.Now().UnixNano() / 1000)
	})

	// Onboard accelerometer over I2C. A missing sensor degrades the
	// vibration mode; everything else still runs.
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{Frequency: I2C_FREQUENCY}); err != nil {
		println("i2c configure failed:", err.Error())
	}
	pod := accel.NewLIS3DH(i2c)
	available := true
	if err := pod.Connect(); err != nil {
		println("accelerometer unavailable:", err.Error())
		available = false
	}

	cfg := config.Default()

	clock := strobe.NewClock(lampOutput{pin: PIN_LAMP})
	ctrl := strobe.NewController(clock, cfg.Strobe.Rate)
	session := vibro.NewSession(&cfg.Vibration, pod, available)
	ins := instrument.New(ctrl, tach, session)

	modeBtn := newButton(PIN_BTN_MODE)
	selBtn := newButton(PIN_BTN_SEL)
	x2Btn := newButton(PIN_BTN_X2)
	div2Btn := newButton(PIN_BTN_DIV2)
	enc := newEncoder(PIN_ENC_A, PIN_ENC_B)

	now := time.Now()
	clockDue := now
	lastStep := now
	lastStatus := now

	// Main loop
	for {
		now = time.Now()

		// Buttons and encoder feed the same event queue the desktop
		// panel uses
		if modeBtn.fell(now) {
			ins.Post(instrument.Event{Kind: instrument.EventModeNext})
		}
		if selBtn.fell(now) {
			ins.Post(instrument.Event{Kind: instrument.EventAdvance})
		}
		if x2Btn.fell(now) {
			ins.Post(instrument.Event{Kind: instrument.EventRateDouble})
		}
		if div2Btn.fell(now) {
			ins.Post(instrument.Event{Kind: instrument.EventRateHalve})
		}
		if d := enc.delta(); d != 0 {
			ins.Post(instrument.Event{Kind: instrument.EventEncoder, Delta: d})
		}

		// The pulse clock is serviced by due time instead of a timer
		// goroutine. The shortest half-period is 750us, well above the
		// loop granularity.
		if !now.Before(clockDue) {
			clockDue = now.Add(clock.Fire())
		}

		if now.Sub(lastStep) >= STEP_INTERVAL_MS*time.Millisecond {
			ins.Step(now)
			lastStep = now
		}

		if now.Sub(lastStatus) >= STATUS_PERIOD_MS*time.Millisecond {
			printStatus(ins.Snapshot())
			lastStatus = now
		}

		time.Sleep(LOOP_SLEEP_US * time.Microsecond)
	}
}

// printStatus writes one status line to the serial console.
func printStatus(snap instrument.Snapshot) {
	print(snap.Mode.String())

	switch snap.Mode {
	case instrument.ModeStrobe, instrument.ModeLantern, instrument.ModeSelfTest:
		print(" rate=")
		print(snap.RateFPM)
		print(" phase=")
		print(snap.PhaseDeg)
	case instrument.ModeTach:
		if snap.SignalPresent {
			print(" rpm=")
			print(snap.RPM)
		} else {
			print(" rpm=-")
		}
	case instrument.ModeVibration:
		st := snap.Vibration
		print(" state=")
		print(st.State.String())
		if st.State == vibro.StateMeasuring {
			print(" live=")
			print(strconv.FormatFloat(st.Live, 'f', 2, 64))
		}
		if st.HasResult {
			print(" score=")
			print(strconv.FormatFloat(st.Result.Score, 'f', 2, 64))
			print(" freq=")
			print(strconv.FormatFloat(st.Result.DominantFreqHz, 'f', 1, 64))
		}
	}
	print("\n")
}
