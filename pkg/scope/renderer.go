package scope

import (
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

// pane is one plotting rectangle inside the widget.
type pane struct {
	x, y, w, h float32
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *Widget

	// Background
	bg *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	// Background fills the entire widget
	r.bg.Resize(size)

	if r.lastSize.Width != size.Width || r.lastSize.Height != size.Height {
		r.lastSize = size
		// Size changed, redraw with the new dimensions
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the canvas objects from the current data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	wave := r.scope.displayWave
	spectrum := r.scope.displaySpec
	fullWaveLen := len(r.scope.wave)
	sampleRate := r.scope.sampleRate
	dominant := r.scope.dominantHz
	waveMin := r.scope.waveMin
	waveMax := r.scope.waveMax
	specMax := r.scope.specMax
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	// Clear old objects (but keep the background)
	r.objects = []fyne.CanvasObject{r.bg}

	marginLeft := float32(60.0)
	marginRight := float32(20.0)
	marginTop := float32(20.0)
	marginBottom := float32(30.0)
	gap := float32(30.0)

	plotWidth := size.Width - marginLeft - marginRight
	paneHeight := (size.Height - marginTop - marginBottom - gap) / 2

	wavePane := pane{x: marginLeft, y: marginTop, w: plotWidth, h: paneHeight}
	specPane := pane{x: marginLeft, y: marginTop + paneHeight + gap, w: plotWidth, h: paneHeight}

	waveSeconds := 0.0
	if sampleRate > 0 {
		waveSeconds = float64(fullWaveLen) / sampleRate
	}
	maxFreq := sampleRate / 2

	r.drawWaveGrid(wavePane, waveMin, waveMax, waveSeconds)
	if len(wave) > 1 {
		r.drawWave(wavePane, wave, waveMin, waveMax)
	}

	r.drawSpecGrid(specPane, specMax, maxFreq)
	if len(spectrum) > 0 {
		r.drawSpectrum(specPane, spectrum, specMax)
		if dominant > 0 && maxFreq > 0 {
			r.drawDominant(specPane, dominant, maxFreq)
		}
	}
}

// drawWaveGrid draws the waveform pane grid with acceleration and time labels.
func (r *scopeRenderer) drawWaveGrid(p pane, yMin, yMax, seconds float64) {
	const hLines = 4
	for i := 0; i <= hLines; i++ {
		y := p.y + float32(i)*p.h/hLines
		line := gridLine()
		line.Position1 = fyne.NewPos(p.x, y)
		line.Position2 = fyne.NewPos(p.x+p.w, y)
		r.objects = append(r.objects, line)

		value := yMax - float64(i)*(yMax-yMin)/hLines
		text := gridText(formatAccel(value))
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	const vLines = 5
	for i := 0; i <= vLines; i++ {
		x := p.x + float32(i)*p.w/vLines
		line := gridLine()
		line.Position1 = fyne.NewPos(x, p.y)
		line.Position2 = fyne.NewPos(x, p.y+p.h)
		r.objects = append(r.objects, line)

		text := gridText(formatSeconds(float64(i) * seconds / vLines))
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.h+4))
		r.objects = append(r.objects, text)
	}
}

// drawSpecGrid draws the spectrum pane grid with magnitude and frequency
// labels.
func (r *scopeRenderer) drawSpecGrid(p pane, specMax, maxFreq float64) {
	const hLines = 4
	for i := 0; i <= hLines; i++ {
		y := p.y + float32(i)*p.h/hLines
		line := gridLine()
		line.Position1 = fyne.NewPos(p.x, y)
		line.Position2 = fyne.NewPos(p.x+p.w, y)
		r.objects = append(r.objects, line)

		value := specMax * float64(hLines-i) / hLines
		text := gridText(strconv.FormatFloat(value, 'f', 1, 64))
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	const vLines = 5
	for i := 0; i <= vLines; i++ {
		x := p.x + float32(i)*p.w/vLines
		line := gridLine()
		line.Position1 = fyne.NewPos(x, p.y)
		line.Position2 = fyne.NewPos(x, p.y+p.h)
		r.objects = append(r.objects, line)

		text := gridText(formatFreq(maxFreq * float64(i) / vLines))
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.h+4))
		r.objects = append(r.objects, text)
	}
}

// drawWave draws the magnitude curve (orange).
func (r *scopeRenderer) drawWave(p pane, wave []float64, yMin, yMax float64) {
	span := yMax - yMin
	if span == 0 {
		return
	}

	step := p.w / float32(len(wave)-1)
	prev := fyne.NewPos(p.x, p.y+p.h-float32((wave[0]-yMin)/span)*p.h)
	for i := 1; i < len(wave); i++ {
		pt := fyne.NewPos(p.x+float32(i)*step, p.y+p.h-float32((wave[i]-yMin)/span)*p.h)
		line := canvas.NewLine(color.RGBA{R: 255, G: 165, B: 0, A: 255}) // Orange
		line.Position1 = prev
		line.Position2 = pt
		line.StrokeWidth = 1.5
		r.objects = append(r.objects, line)
		prev = pt
	}
}

// drawSpectrum draws one vertical bar per frequency bin (light blue).
func (r *scopeRenderer) drawSpectrum(p pane, bins []float64, max float64) {
	step := p.w / float32(len(bins))
	for i, v := range bins {
		h := float32(v/max) * p.h
		if h < 1 {
			continue
		}
		x := p.x + (float32(i)+0.5)*step
		line := canvas.NewLine(color.RGBA{R: 100, G: 200, B: 255, A: 255}) // Light blue
		line.Position1 = fyne.NewPos(x, p.y+p.h)
		line.Position2 = fyne.NewPos(x, p.y+p.h-h)
		line.StrokeWidth = 2
		r.objects = append(r.objects, line)
	}
}

// drawDominant marks the dominant frequency with a vertical line and label.
func (r *scopeRenderer) drawDominant(p pane, freq, maxFreq float64) {
	x := p.x + float32(freq/maxFreq)*p.w

	line := canvas.NewLine(color.RGBA{R: 255, G: 80, B: 80, A: 255})
	line.Position1 = fyne.NewPos(x, p.y)
	line.Position2 = fyne.NewPos(x, p.y+p.h)
	line.StrokeWidth = 1
	r.objects = append(r.objects, line)

	text := canvas.NewText(formatFreq(freq), color.RGBA{R: 255, G: 80, B: 80, A: 255})
	text.TextSize = 12
	text.Alignment = fyne.TextAlignCenter
	text.Move(fyne.NewPos(x-25, p.y-16))
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {
	// Cleanup handled by Fyne
}

// Helper functions for formatting

func gridLine() *canvas.Line {
	line := canvas.NewLine(color.RGBA{R: 40, G: 40, B: 40, A: 255})
	line.StrokeWidth = 1
	return line
}

func gridText(s string) *canvas.Text {
	text := canvas.NewText(s, color.RGBA{R: 150, G: 150, B: 150, A: 255})
	text.TextSize = 10
	return text
}

func formatAccel(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " m/s²"
}

func formatFreq(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + " Hz"
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " s"
}
