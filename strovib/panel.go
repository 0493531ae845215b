package main

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gostrovib/pkg/accel"
	"github.com/itohio/gostrovib/pkg/config"
	"github.com/itohio/gostrovib/pkg/instrument"
	"github.com/itohio/gostrovib/pkg/scope"
	"github.com/itohio/gostrovib/pkg/strobe"
	"github.com/itohio/gostrovib/pkg/tacho"
	"github.com/itohio/gostrovib/pkg/vibro"
)

var (
	lampOn  = color.RGBA{R: 255, G: 240, B: 120, A: 255}
	lampOff = color.RGBA{R: 45, G: 45, B: 45, A: 255}
)

// flashIndicator renders the strobe output as an on-screen lamp. Set is
// called from the clock goroutine at flash rates, so it only stores the
// level; the display poller repaints on the main thread.
type flashIndicator struct {
	level  atomic.Bool
	circle *canvas.Circle
}

func newFlashIndicator() *flashIndicator {
	return &flashIndicator{circle: canvas.NewCircle(lampOff)}
}

// Set records the lamp level. Safe to call from any goroutine.
func (f *flashIndicator) Set(on bool) {
	f.level.Store(on)
}

// refresh repaints the lamp when the level changed. Main thread only.
func (f *flashIndicator) refresh() {
	want := color.Color(lampOff)
	if f.level.Load() {
		want = lampOn
	}
	if f.circle.FillColor != want {
		f.circle.FillColor = want
		f.circle.Refresh()
	}
}

// panel holds the application state.
type panel struct {
	cfg     *config.Config
	cfgPath string
	useMock bool

	window  fyne.Window
	device  accel.Device
	tachSim *tacho.Simulator
	clock   *strobe.Clock
	ins     *instrument.Instrument
	history *history

	cancel context.CancelFunc

	flash       *flashIndicator
	scopeWidget *scope.Widget
	modeLabel   *widget.Label
	readout     *widget.Label
	status      *widget.Label

	// Setpoint changes confirmed on the control loop, waiting to be
	// persisted by the poller on the main thread
	pendingRate atomic.Int64
	rateDirty   atomic.Bool
	pendingDur  atomic.Int64
	durDirty    atomic.Bool
}

// newPanel wires the full instrument core to a desktop front panel.
func newPanel(cfg *config.Config, cfgPath string, useMock bool) *panel {
	application := app.NewWithID("com.itohio.gostrovib")

	window := application.NewWindow("StroVib")
	window.Resize(fyne.NewSize(1000, 700))
	window.CenterOnScreen()

	p := &panel{
		cfg:     cfg,
		cfgPath: cfgPath,
		useMock: useMock,
		window:  window,
		flash:   newFlashIndicator(),
		history: newHistory(defaultResultsPath),
	}

	// The sensor pod is connected once at startup. A missing pod degrades
	// the vibration mode instead of blocking the rest of the instrument.
	if useMock {
		p.device = accel.NewMock(&cfg.Mock)
		fmt.Println("Using mocked sensors")
	} else {
		p.device = accel.New(cfg.Serial.Port, accel.DefaultBaudRate, cfg.Serial.AverageSamples)
		fmt.Printf("Sensor pod on serial port: %s\n", cfg.Serial.Port)
	}
	available := true
	if err := p.device.Connect(); err != nil {
		log.Printf("Accelerometer unavailable: %v", err)
		available = false
	}

	p.clock = strobe.NewClock(p.flash)
	ctrl := strobe.NewController(p.clock, cfg.Strobe.Rate)
	tach := tacho.New()
	session := vibro.NewSession(&cfg.Vibration, p.device, available)
	p.ins = instrument.New(ctrl, tach, session)

	// Confirmed setpoint changes fire on the control loop; the poller
	// persists them on the main thread
	ctrl.OnRateChange = func(rateFPM int) {
		p.pendingRate.Store(int64(rateFPM))
		p.rateDirty.Store(true)
	}
	session.OnDurationChange = func(d time.Duration) {
		p.pendingDur.Store(int64(d))
		p.durDirty.Store(true)
	}

	if useMock {
		p.tachSim = tacho.NewSimulator(cfg.Mock.RPM, tach.Edge)
	}

	p.scopeWidget = scope.New()
	p.modeLabel = widget.NewLabel("")
	p.modeLabel.TextStyle = fyne.TextStyle{Bold: true}
	p.readout = widget.NewLabel("")
	p.status = widget.NewLabel("")

	readouts := container.NewVBox(p.modeLabel, p.readout, p.status)
	lamp := container.NewGridWrap(fyne.NewSize(48, 48), p.flash.circle)
	header := container.NewBorder(nil, nil, readouts, lamp, nil)

	window.SetContent(container.NewBorder(
		container.NewVBox(p.buildToolbar(), header),
		nil,
		nil,
		nil,
		p.scopeWidget,
	))

	return p
}

// show starts the background goroutines and runs the UI event loop until the
// window closes.
func (p *panel) show() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	go p.clock.Run(ctx)
	go p.ins.Run(ctx, 2*time.Millisecond)
	go p.poll(ctx)

	if p.tachSim != nil {
		if err := p.tachSim.Start(); err != nil {
			log.Printf("Tachometer simulator: %v", err)
		}
	}

	p.window.SetOnClosed(p.shutdown)
	p.window.ShowAndRun()
}

func (p *panel) shutdown() {
	p.cancel()
	if p.tachSim != nil {
		p.tachSim.Stop()
	}
	if err := p.device.Close(); err != nil {
		log.Printf("Closing sensor pod: %v", err)
	}
}

// buildToolbar creates the front-panel controls. The buttons mirror the
// physical instrument: Mode, Select, rate halve/double and the encoder.
func (p *panel) buildToolbar() fyne.CanvasObject {
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(p)
	})
	exportBtn := widget.NewButtonWithIcon("", theme.DocumentSaveIcon(), func() {
		p.handleExport()
	})

	modeBtn := widget.NewButton("Mode", p.post(instrument.Event{Kind: instrument.EventModeNext}))
	selectBtn := widget.NewButton("Select", p.post(instrument.Event{Kind: instrument.EventAdvance}))
	halveBtn := widget.NewButton("÷2", p.post(instrument.Event{Kind: instrument.EventRateHalve}))
	doubleBtn := widget.NewButton("×2", p.post(instrument.Event{Kind: instrument.EventRateDouble}))

	coarseDown := widget.NewButton("−10", p.encoder(-10))
	fineDown := widget.NewButton("−1", p.encoder(-1))
	fineUp := widget.NewButton("+1", p.encoder(1))
	coarseUp := widget.NewButton("+10", p.encoder(10))

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(settingsBtn, exportBtn),
		container.NewHBox(modeBtn, selectBtn, halveBtn, doubleBtn, coarseDown, fineDown, fineUp, coarseUp),
		nil,
	)
}

func (p *panel) post(ev instrument.Event) func() {
	return func() { p.ins.Post(ev) }
}

func (p *panel) encoder(delta int) func() {
	return p.post(instrument.Event{Kind: instrument.EventEncoder, Delta: delta})
}

// poll feeds the display from instrument snapshots at a fixed cadence,
// keeping all widget mutation on the main thread.
func (p *panel) poll(ctx context.Context) {
	const updateInterval = 80 * time.Millisecond
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := p.ins.Snapshot()
			wave := p.ins.Wave()
			spectrum := p.ins.Spectrum()

			fyne.Do(func() {
				p.updateReadout(snap)
				p.flash.refresh()

				dominant := 0.0
				if snap.Vibration.HasResult {
					dominant = snap.Vibration.Result.DominantFreqHz
				}
				p.scopeWidget.UpdateData(wave, spectrum, snap.Vibration.SampleRate, dominant)

				p.persistSetpoints()
			})
		}
	}
}

func (p *panel) updateReadout(snap instrument.Snapshot) {
	p.modeLabel.SetText(strings.ToUpper(snap.Mode.String()))

	switch snap.Mode {
	case instrument.ModeStrobe:
		p.readout.SetText(fmt.Sprintf("%d FPM   phase %d°", snap.RateFPM, snap.PhaseDeg))
		p.status.SetText(fmt.Sprintf("encoder adjusts %s", snap.Target))
	case instrument.ModeLantern:
		p.readout.SetText("continuous light")
		p.status.SetText(fmt.Sprintf("%d FPM", snap.RateFPM))
	case instrument.ModeTach:
		if snap.SignalPresent {
			p.readout.SetText(fmt.Sprintf("%d RPM", snap.RPM))
			p.status.SetText("optical pickup locked")
		} else {
			p.readout.SetText("--- RPM")
			p.status.SetText("no signal")
		}
	case instrument.ModeVibration:
		p.updateVibrationReadout(snap.Vibration)
	case instrument.ModeSelfTest:
		p.readout.SetText(fmt.Sprintf("sweep %d FPM", snap.RateFPM))
		p.status.SetText("flash rate ramp check")
	}
}

func (p *panel) updateVibrationReadout(st vibro.Status) {
	if !st.Available {
		p.readout.SetText("sensor absent")
		p.status.SetText("vibration measurement unavailable")
		return
	}

	switch st.State {
	case vibro.StateIdle:
		p.readout.SetText("idle")
		p.status.SetText("Select starts calibration; keep the device still")
	case vibro.StateCalibrating:
		p.readout.SetText(fmt.Sprintf("calibrating %3.0f%%", st.Progress*100))
		p.status.SetText("measuring gravity offsets")
	case vibro.StateReady:
		p.readout.SetText("ready")
		p.status.SetText("Select starts the measurement")
	case vibro.StateMeasuring:
		if st.LiveFreq > 0 {
			p.readout.SetText(fmt.Sprintf("measuring %3.0f%%   %.1f Hz", st.Progress*100, st.LiveFreq))
		} else {
			p.readout.SetText(fmt.Sprintf("measuring %3.0f%%", st.Progress*100))
		}
		p.status.SetText(fmt.Sprintf("live %.2f m/s²   %s estimator", st.Live, st.Estimator))
	case vibro.StateResult:
		r := st.Result
		p.readout.SetText(fmt.Sprintf("score %.2f   %.1f Hz", r.Score, r.DominantFreqHz))
		p.status.SetText(fmt.Sprintf("peak %.2f   rms %.2f m/s²   %.1f s / %d samples", r.Peak, r.RMS, r.Duration, r.Samples))
	}
}

// persistSetpoints mirrors confirmed control-loop changes into the saved
// configuration. Runs on the main thread, so it never races the settings
// dialog.
func (p *panel) persistSetpoints() {
	save := false
	if p.rateDirty.Swap(false) {
		p.cfg.Strobe.Rate = int(p.pendingRate.Load())
		save = true
	}
	if p.durDirty.Swap(false) {
		p.cfg.Vibration.MeasurementDuration = time.Duration(p.pendingDur.Load())
		save = true
	}
	if save {
		if err := p.cfg.Save(p.cfgPath); err != nil {
			log.Printf("Saving configuration: %v", err)
		}
	}
}
