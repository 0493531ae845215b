package instrument

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gostrovib/pkg/accel"
	"github.com/itohio/gostrovib/pkg/config"
	"github.com/itohio/gostrovib/pkg/strobe"
	"github.com/itohio/gostrovib/pkg/tacho"
	"github.com/itohio/gostrovib/pkg/vibro"
)

type nopOutput struct{}

func (nopOutput) Set(bool) {}

// stillDevice is a motionless accelerometer.
type stillDevice struct{}

func (stillDevice) Connect() error { return nil }

func (stillDevice) Close() error { return nil }

func (stillDevice) IsConnected() bool { return true }

func (stillDevice) TryRead() (accel.Sample, error) { return accel.Sample{Z: 9.80665}, nil }

func newTestInstrument() (*Instrument, *strobe.Controller, *tacho.Tachometer, *vibro.Session) {
	clock := strobe.NewClock(nopOutput{})
	ctrl := strobe.NewController(clock, strobe.DefaultRateFPM)
	tach := tacho.New()
	vcfg := &config.VibrationConfig{
		CalibrationDuration: 50 * time.Millisecond,
		MeasurementDuration: 100 * time.Millisecond,
		SamplePeriod:        time.Millisecond,
		Estimator:           vibro.EstimatorSpectral,
	}
	session := vibro.NewSession(vcfg, stillDevice{}, true)
	return New(ctrl, tach, session), ctrl, tach, session
}

func TestInstrument_PowerOnEntersStrobe(t *testing.T) {
	ins, _, _, _ := newTestInstrument()

	snap := ins.Snapshot()
	assert.Equal(t, ModeStrobe, snap.Mode)
	assert.Equal(t, TargetRate, snap.Target)
	assert.Equal(t, strobe.DefaultRateFPM, snap.RateFPM)
	assert.True(t, snap.GateOpen)
}

func TestInstrument_ModeCycle(t *testing.T) {
	ins, ctrl, _, session := newTestInstrument()
	now := time.Unix(0, 0)

	wantGate := map[Mode]bool{
		ModeStrobe:    true,
		ModeLantern:   true,
		ModeTach:      false,
		ModeVibration: false,
		ModeSelfTest:  true,
	}

	order := []Mode{ModeLantern, ModeTach, ModeVibration, ModeSelfTest, ModeStrobe}
	for _, want := range order {
		ins.Post(Event{Kind: EventModeNext})
		now = now.Add(time.Millisecond)
		ins.Step(now)

		assert.Equal(t, want, ins.Mode())
		assert.Equal(t, wantGate[want], ctrl.Enabled(), "gate in %v", want)
		if want != ModeVibration {
			assert.Equal(t, vibro.StateIdle, session.State(), "session in %v", want)
		}
	}
}

func TestInstrument_ModeSwitchAbortsMeasurement(t *testing.T) {
	ins, _, _, session := newTestInstrument()
	now := time.Unix(10, 0)

	ins.SetMode(ModeVibration, now)
	ins.Post(Event{Kind: EventAdvance})
	ins.Step(now)
	require.Equal(t, vibro.StateCalibrating, session.State())

	for i := 0; i < 200 && session.State() != vibro.StateReady; i++ {
		now = now.Add(time.Millisecond)
		ins.Step(now)
	}
	require.Equal(t, vibro.StateReady, session.State())

	ins.Post(Event{Kind: EventAdvance})
	now = now.Add(time.Millisecond)
	ins.Step(now)
	require.Equal(t, vibro.StateMeasuring, session.State())

	// Switching modes mid-measurement discards the partial window
	ins.Post(Event{Kind: EventModeNext})
	now = now.Add(time.Millisecond)
	ins.Step(now)

	assert.Equal(t, ModeSelfTest, ins.Mode())
	assert.Equal(t, vibro.StateIdle, session.State())
	assert.False(t, session.Status().HasResult)
}

func TestInstrument_StrobeControls(t *testing.T) {
	ins, ctrl, _, _ := newTestInstrument()
	now := time.Unix(20, 0)

	ins.Post(Event{Kind: EventEncoder, Delta: 100})
	ins.Step(now)
	assert.Equal(t, strobe.DefaultRateFPM+100, ctrl.Rate())

	ins.Post(Event{Kind: EventRateDouble})
	ins.Step(now)
	assert.Equal(t, 2*(strobe.DefaultRateFPM+100), ctrl.Rate())

	ins.Post(Event{Kind: EventRateHalve})
	ins.Step(now)
	assert.Equal(t, strobe.DefaultRateFPM+100, ctrl.Rate())

	// Advance moves the encoder over to the phase
	ins.Post(Event{Kind: EventAdvance})
	ins.Post(Event{Kind: EventEncoder, Delta: 45})
	ins.Step(now)

	snap := ins.Snapshot()
	assert.Equal(t, TargetPhase, snap.Target)
	assert.Equal(t, 45, snap.PhaseDeg)
	assert.Equal(t, strobe.DefaultRateFPM+100, snap.RateFPM)

	// And back to the rate
	ins.Post(Event{Kind: EventAdvance})
	ins.Post(Event{Kind: EventEncoder, Delta: -100})
	ins.Step(now)
	assert.Equal(t, TargetRate, ins.Snapshot().Target)
	assert.Equal(t, strobe.DefaultRateFPM, ctrl.Rate())
}

func TestInstrument_RateControlsOnlyInStrobeMode(t *testing.T) {
	ins, ctrl, _, session := newTestInstrument()
	now := time.Unix(30, 0)

	ins.SetMode(ModeTach, now)
	ins.Post(Event{Kind: EventRateDouble})
	ins.Post(Event{Kind: EventRateHalve})
	ins.Post(Event{Kind: EventEncoder, Delta: 500})
	ins.Post(Event{Kind: EventAdvance})
	ins.Step(now)

	assert.Equal(t, strobe.DefaultRateFPM, ctrl.Rate())
	assert.Equal(t, 0, ctrl.Phase())
	assert.Equal(t, TargetRate, ins.Snapshot().Target)
	assert.Equal(t, vibro.StateIdle, session.State())
}

func TestInstrument_LanternPreservesSetpoint(t *testing.T) {
	ins, ctrl, _, _ := newTestInstrument()
	now := time.Unix(40, 0)

	ins.SetMode(ModeLantern, now)
	ins.Step(now)
	assert.True(t, ctrl.Enabled())
	assert.Equal(t, strobe.DefaultRateFPM, ctrl.Rate(), "lantern rate is transient")
	assert.Equal(t, strobe.MaxRateFPM, ins.Snapshot().RateFPM, "display shows the transient rate")

	// Returning to strobe republishes the stored setpoint
	ins.SetMode(ModeStrobe, now)
	ins.Step(now)
	assert.True(t, ctrl.Enabled())
	assert.Equal(t, strobe.DefaultRateFPM, ctrl.Rate())
	assert.Equal(t, strobe.DefaultRateFPM, ins.Snapshot().RateFPM)
}

func TestInstrument_VibrationEncoderAdjustsDuration(t *testing.T) {
	ins, _, _, session := newTestInstrument()
	now := time.Unix(50, 0)

	var mirrored time.Duration
	session.OnDurationChange = func(d time.Duration) { mirrored = d }

	ins.SetMode(ModeVibration, now)
	ins.Post(Event{Kind: EventEncoder, Delta: 5})
	ins.Step(now)

	assert.Equal(t, 5*time.Second+100*time.Millisecond, mirrored)
}

func TestInstrument_VibrationDisplayCapture(t *testing.T) {
	ins, _, _, session := newTestInstrument()
	now := time.Unix(90, 0)

	ins.SetMode(ModeVibration, now)
	ins.Post(Event{Kind: EventAdvance})
	ins.Step(now)
	for i := 0; i < 200 && session.State() != vibro.StateReady; i++ {
		now = now.Add(time.Millisecond)
		ins.Step(now)
	}
	require.Equal(t, vibro.StateReady, session.State())

	ins.Post(Event{Kind: EventAdvance})
	for i := 0; i < 1000 && session.State() != vibro.StateResult; i++ {
		now = now.Add(time.Millisecond)
		ins.Step(now)
	}
	require.Equal(t, vibro.StateResult, session.State())

	snap := ins.Snapshot()
	assert.True(t, snap.Vibration.HasResult)
	assert.NotEmpty(t, ins.Wave())
	assert.NotEmpty(t, ins.Spectrum())
}

func TestInstrument_TachMode(t *testing.T) {
	ins, _, tach, _ := newTestInstrument()
	now := time.Unix(60, 0)
	ins.SetMode(ModeTach, now)

	edge := now.UnixMicro()
	tach.Edge(edge - 20_000)
	tach.Edge(edge)
	ins.Step(now)

	snap := ins.Snapshot()
	assert.Equal(t, ModeTach, snap.Mode)
	assert.Equal(t, 3000, snap.RPM)
	assert.True(t, snap.SignalPresent)
	assert.False(t, snap.GateOpen)
}

func TestInstrument_PostNeverBlocks(t *testing.T) {
	ins, ctrl, _, _ := newTestInstrument()

	// Twice the queue capacity; the excess is dropped, not blocked on
	for i := 0; i < eventQueueSize*2; i++ {
		ins.Post(Event{Kind: EventEncoder, Delta: 1})
	}
	ins.Step(time.Unix(70, 0))

	assert.Equal(t, strobe.DefaultRateFPM+eventQueueSize, ctrl.Rate())
}

func TestInstrument_RunShutdownLeavesHardwareQuiet(t *testing.T) {
	ins, ctrl, _, session := newTestInstrument()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ins.Run(ctx, time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run loop did not exit")
	}

	assert.False(t, ctrl.Enabled())
	assert.Equal(t, vibro.StateIdle, session.State())
}

func TestSweep_ExponentialRamp(t *testing.T) {
	s := newSweep()
	start := time.Unix(0, 0)
	s.begin(start)

	assert.Equal(t, sweepStartFPM, s.rate(start))

	// Geometric midpoint halfway through the period
	mid := s.rate(start.Add(sweepPeriod / 2))
	assert.InDelta(t, math.Sqrt(sweepStartFPM*sweepEndFPM), float64(mid), 1.0)

	// Monotone within a period, wrapping at its end
	r1 := s.rate(start.Add(time.Second))
	r2 := s.rate(start.Add(2 * time.Second))
	assert.Greater(t, r2, r1)
	assert.Equal(t, sweepStartFPM, s.rate(start.Add(sweepPeriod)))
}

func TestInstrument_SelfTestLeavesSetpointAlone(t *testing.T) {
	ins, ctrl, _, _ := newTestInstrument()
	now := time.Unix(80, 0)

	ins.SetMode(ModeSelfTest, now)
	for i := 0; i < 10; i++ {
		now = now.Add(300 * time.Millisecond)
		ins.Step(now)
	}

	assert.True(t, ctrl.Enabled())
	assert.Equal(t, strobe.DefaultRateFPM, ctrl.Rate())
	assert.NotEqual(t, strobe.DefaultRateFPM, ins.Snapshot().RateFPM, "display follows the sweep")
}
