// Package vibro implements the vibration measurement pipeline: calibration
// against gravity, fixed-rate magnitude sampling into a bounded window, and
// dominant-frequency estimation with statistical summaries.
package vibro

import (
	"math"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/gostrovib/pkg/accel"
	"github.com/itohio/gostrovib/pkg/config"
)

const (
	minMeasurementDuration = time.Second
	maxMeasurementDuration = 2 * time.Minute
)

// State identifies the measurement session lifecycle.
type State int

const (
	// StateIdle means no measurement is in progress.
	StateIdle State = iota
	// StateCalibrating means per-axis offsets are being accumulated.
	StateCalibrating
	// StateReady means offsets are valid and a measurement can start.
	StateReady
	// StateMeasuring means samples are being acquired and analyzed.
	StateMeasuring
	// StateResult means a finished result is being held for display.
	StateResult
)

// String returns a short label for display.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCalibrating:
		return "calibrating"
	case StateReady:
		return "ready"
	case StateMeasuring:
		return "measuring"
	case StateResult:
		return "result"
	default:
		return "unknown"
	}
}

// Status is a read-only view of the session for display.
type Status struct {
	State      State
	Available  bool
	Progress   float64 // 0..1 within the current phase
	Live       float64 // most recent magnitude (m/s^2)
	LiveFreq   float64 // instantaneous zero-crossing estimate, when available
	SampleRate float64 // Hz, zero until a measurement has started
	Estimator  string
	Result     Result
	HasResult  bool
}

// Session is the vibration measurement state machine. A single Advance event
// drives the forward transitions; Tick performs the per-iteration work with
// injected time. All methods belong to the control loop goroutine.
type Session struct {
	cfg *config.VibrationConfig
	dev accel.Device
	est Estimator

	available bool
	state     State

	// Phase timing, snapshotted at phase entry so mid-run configuration
	// edits only apply to the next run
	phaseStart time.Time
	nextSample time.Time
	period     time.Duration
	calDur     time.Duration
	measDur    time.Duration
	rateHz     float64

	// Calibration accumulators
	sumX, sumY, sumZ          float64
	calCount                  int
	offsetX, offsetY, offsetZ float32
	calibrated                bool

	// Measurement accumulators
	window     *Window
	peak       float64
	sum        float64
	sumSq      float64
	velInt     float64
	count      int
	lastSample accel.Sample
	haveSample bool

	live      float64
	progress  float64
	result    Result
	hasResult bool

	// OnDurationChange, when set, is invoked with the applied measurement
	// duration after every accepted adjustment, so the value can be mirrored
	// to persisted configuration.
	OnDurationChange func(d time.Duration)
}

// NewSession creates a session reading from the given device. available is
// latched once at startup; an absent sensor leaves the session permanently
// degraded with calibration unreachable.
func NewSession(cfg *config.VibrationConfig, dev accel.Device, available bool) *Session {
	return &Session{
		cfg:       cfg,
		dev:       dev,
		est:       NewEstimator(cfg.Estimator),
		available: available,
		state:     StateIdle,
		window:    NewWindow(WindowSize),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Available reports whether the sensor was present at startup.
func (s *Session) Available() bool {
	return s.available
}

// Calibrated reports whether valid offsets exist.
func (s *Session) Calibrated() bool {
	return s.calibrated
}

// Offsets returns the per-axis calibration offsets.
func (s *Session) Offsets() (x, y, z float32) {
	return s.offsetX, s.offsetY, s.offsetZ
}

// Advance moves the session forward: Idle starts calibration, Ready starts a
// measurement, Result returns to Idle. All other states ignore the event;
// their exits are driven by completion, not input.
func (s *Session) Advance(now time.Time) {
	switch s.state {
	case StateIdle:
		if !s.available {
			return
		}
		s.beginCalibration(now)
	case StateReady:
		s.beginMeasurement(now)
	case StateResult:
		s.state = StateIdle
		s.progress = 0
	}
}

// ForceIdle aborts whatever is in progress and discards partial data. A held
// result survives; it was complete when it was computed.
func (s *Session) ForceIdle() {
	s.state = StateIdle
	s.progress = 0
	s.live = 0
}

// AdjustDuration shifts the configured measurement duration by a signed
// number of seconds, clamped to a sane range. The duration is adjustable only
// while idle or ready; a running phase keeps the duration it started with.
func (s *Session) AdjustDuration(deltaSeconds int) {
	if s.state != StateIdle && s.state != StateReady {
		return
	}
	d := s.cfg.MeasurementDuration + time.Duration(deltaSeconds)*time.Second
	if d < minMeasurementDuration {
		d = minMeasurementDuration
	}
	if d > maxMeasurementDuration {
		d = maxMeasurementDuration
	}
	if d == s.cfg.MeasurementDuration {
		return
	}
	s.cfg.MeasurementDuration = d
	if s.OnDurationChange != nil {
		s.OnDurationChange(d)
	}
}

// Tick performs one control-loop iteration of work at the given time.
func (s *Session) Tick(now time.Time) {
	switch s.state {
	case StateCalibrating:
		s.tickCalibrating(now)
	case StateMeasuring:
		s.tickMeasuring(now)
	}
}

// Status returns a read-only view for display.
func (s *Session) Status() Status {
	st := Status{
		State:      s.state,
		Available:  s.available,
		Progress:   s.progress,
		Live:       s.live,
		SampleRate: s.rateHz,
		Estimator:  s.est.Name(),
		Result:     s.result,
		HasResult:  s.hasResult,
	}
	if zc, ok := s.est.(*ZeroCross); ok && s.state == StateMeasuring {
		st.LiveFreq = zc.Instant()
	}
	return st
}

// WindowSamples returns the current measurement window for display. The
// slice aliases session state and must be copied if retained.
func (s *Session) WindowSamples() []float64 {
	return s.window.Samples()
}

func (s *Session) beginCalibration(now time.Time) {
	s.state = StateCalibrating
	s.phaseStart = now
	s.nextSample = now
	s.period = s.samplePeriod()
	s.calDur = s.cfg.CalibrationDuration
	s.sumX, s.sumY, s.sumZ = 0, 0, 0
	s.calCount = 0
	s.progress = 0
}

func (s *Session) beginMeasurement(now time.Time) {
	s.state = StateMeasuring
	s.phaseStart = now
	s.nextSample = now
	s.period = s.samplePeriod()
	s.rateHz = 1 / s.period.Seconds()

	// Pick up a configuration change of the estimator at run start
	if s.est.Name() != s.cfg.Estimator {
		s.est = NewEstimator(s.cfg.Estimator)
	}

	// The window must be able to fill within the measurement
	s.measDur = s.cfg.MeasurementDuration
	if fill := s.period * WindowSize; s.measDur < fill {
		s.measDur = fill
	}

	s.window.Reset()
	s.peak = 0
	s.sum = 0
	s.sumSq = 0
	s.velInt = 0
	s.count = 0
	s.haveSample = false
	s.hasResult = false
	s.progress = 0
	s.est.Reset(s.rateHz)
}

func (s *Session) tickCalibrating(now time.Time) {
	if !now.Before(s.nextSample) {
		if sample, ok := s.acquire(); ok {
			s.sumX += float64(sample.X)
			s.sumY += float64(sample.Y)
			s.sumZ += float64(sample.Z)
			s.calCount++
		}
		s.nextSample = s.nextSample.Add(s.period)
	}

	elapsed := now.Sub(s.phaseStart)
	s.progress = clampProgress(elapsed.Seconds() / s.calDur.Seconds())
	if elapsed < s.calDur {
		return
	}

	if s.calCount == 0 {
		// Nothing arrived at all; without offsets a measurement would be
		// meaningless, so fall back to idle
		s.state = StateIdle
		s.progress = 0
		return
	}

	n := float64(s.calCount)
	s.offsetX = float32(s.sumX / n)
	s.offsetY = float32(s.sumY / n)
	s.offsetZ = float32(s.sumZ / n)
	s.calibrated = true
	s.state = StateReady
	s.progress = 1
}

func (s *Session) tickMeasuring(now time.Time) {
	if !now.Before(s.nextSample) {
		scheduled := s.nextSample
		if sample, ok := s.acquire(); ok {
			s.process(scheduled, sample)
		}
		s.nextSample = s.nextSample.Add(s.period)
	}

	elapsed := now.Sub(s.phaseStart)
	s.progress = clampProgress(elapsed.Seconds() / s.measDur.Seconds())
	if elapsed < s.measDur || !s.window.Full() {
		return
	}

	s.finalize(elapsed)
}

// acquire reads the sensor, falling back to the previous sample on a
// transient failure. Transient failures are never surfaced.
func (s *Session) acquire() (accel.Sample, bool) {
	sample, err := s.dev.TryRead()
	if err != nil {
		if s.haveSample {
			return s.lastSample, true
		}
		return accel.Sample{}, false
	}
	s.lastSample = sample
	s.haveSample = true
	return sample, true
}

// process folds one acquired sample into the running measurement.
func (s *Session) process(scheduled time.Time, sample accel.Sample) {
	dx := sample.X - s.offsetX
	dy := sample.Y - s.offsetY
	dz := sample.Z - s.offsetZ

	mag := float64(math32.Sqrt(dx*dx + dy*dy + dz*dz))
	s.live = mag

	if mag > s.peak {
		s.peak = mag
	}
	s.sum += mag
	s.sumSq += mag * mag
	s.velInt += mag / s.rateHz
	s.count++

	s.window.Append(mag) // silently dropped once full
	s.est.Observe(scheduled.UnixMicro(), float64(dz))
}

// finalize computes the statistics, runs the estimator on the frozen window
// and holds the result.
func (s *Session) finalize(elapsed time.Duration) {
	n := float64(s.count)
	mean := s.sum / n
	meanSq := s.sumSq / n

	variance := meanSq - mean*mean
	if variance < 0 {
		variance = 0
	}

	stats := Stats{
		Peak:        s.peak,
		RMS:         math.Sqrt(meanSq),
		StdDev:      math.Sqrt(variance),
		RMSVelocity: s.velInt / n,
		Duration:    elapsed.Seconds(),
		Samples:     s.count,
	}

	s.result = Result{
		Stats:          stats,
		DominantFreqHz: s.est.Finalize(s.window.Samples(), stats),
		Score:          Score(stats.Peak, stats.Duration),
	}
	s.hasResult = true
	s.state = StateResult
	s.progress = 1
}

// samplePeriod returns the configured sampling period with a safe fallback.
func (s *Session) samplePeriod() time.Duration {
	if s.cfg.SamplePeriod > 0 {
		return s.cfg.SamplePeriod
	}
	return 4 * time.Millisecond
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
