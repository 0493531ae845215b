package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gostrovib/pkg/vibro"
)

// Widget is a custom Fyne widget that displays the vibration magnitude
// waveform and its spectrum as two stacked oscilloscope-style panes.
type Widget struct {
	widget.BaseWidget

	// Data (protected by mu)
	mu         sync.RWMutex
	wave       []float64
	spectrum   []float64
	sampleRate float64
	dominantHz float64

	// Display buffers (reused for downsampling)
	displayWave []float64
	displaySpec []float64

	// Auto-scaling
	waveMin, waveMax float64
	specMax          float64

	maxDisplayPoints int
}

// New creates the scope widget.
func New() *Widget {
	w := &Widget{
		displayWave:      make([]float64, 0, 1000),
		displaySpec:      make([]float64, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	w.ExtendBaseWidget(w)
	// Trigger initial refresh to display the empty scope
	w.Refresh()
	return w
}

// UpdateData replaces the displayed waveform and spectrum. The waveform is
// the magnitude window (possibly partial while a measurement runs); the
// spectrum and dominant frequency may be empty/zero until a result exists.
// Must be called on the main thread (fyne.Do).
func (w *Widget) UpdateData(wave, spectrum []float64, sampleRateHz, dominantHz float64) {
	w.mu.Lock()

	// Downsample for display (reuse buffers)
	w.displayWave = vibro.Downsample(w.displayWave, wave, w.maxDisplayPoints)
	w.displaySpec = vibro.Downsample(w.displaySpec, spectrum, w.maxDisplayPoints)

	// Store full data
	w.wave = wave
	w.spectrum = spectrum
	w.sampleRate = sampleRateHz
	w.dominantHz = dominantHz

	w.updateAutoScale()

	w.mu.Unlock()

	// Refresh the widget (must be outside the lock)
	w.Refresh()
}

// updateAutoScale derives the axis ranges from the current display data.
func (w *Widget) updateAutoScale() {
	w.waveMin, w.waveMax = 0.0, 1.0
	if len(w.displayWave) > 0 {
		w.waveMin = w.displayWave[0]
		w.waveMax = w.displayWave[0]
		for _, v := range w.displayWave {
			if v < w.waveMin {
				w.waveMin = v
			}
			if v > w.waveMax {
				w.waveMax = v
			}
		}
	}

	// Add 10% margin
	span := w.waveMax - w.waveMin
	if span == 0 {
		span = 1.0
	}
	w.waveMin -= span * 0.1
	w.waveMax += span * 0.1

	w.specMax = 0
	for _, v := range w.displaySpec {
		if v > w.specMax {
			w.specMax = v
		}
	}
	if w.specMax == 0 {
		w.specMax = 1.0
	}
}

// CreateRenderer creates the widget renderer.
func (w *Widget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   w,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
