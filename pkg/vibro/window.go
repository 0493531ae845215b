package vibro

// WindowSize is the number of samples in one measurement window, sized for
// the FFT.
const WindowSize = 512

// Window is a fixed-capacity magnitude buffer filled at the sampling rate.
// Samples beyond the capacity are dropped, so a long measurement keeps its
// earliest full window instead of growing.
type Window struct {
	samples []float64
}

// NewWindow creates a window with the given capacity.
func NewWindow(capacity int) *Window {
	return &Window{samples: make([]float64, 0, capacity)}
}

// Append stores a sample while capacity remains and reports whether it was
// stored.
func (w *Window) Append(v float64) bool {
	if len(w.samples) == cap(w.samples) {
		return false
	}
	w.samples = append(w.samples, v)
	return true
}

// Full reports whether the window has reached capacity.
func (w *Window) Full() bool {
	return len(w.samples) == cap(w.samples)
}

// Len returns the number of stored samples.
func (w *Window) Len() int {
	return len(w.samples)
}

// Samples returns the stored samples. The slice aliases the window; callers
// must copy if they retain it across Reset.
func (w *Window) Samples() []float64 {
	return w.samples
}

// Reset discards the stored samples, keeping the capacity.
func (w *Window) Reset() {
	w.samples = w.samples[:0]
}

// Downsample decimates samples to at most maxPoints for display.
// Destination-based: reuses dst if it has sufficient capacity, otherwise
// allocates new. Returns the destination slice.
func Downsample(dst []float64, samples []float64, maxPoints int) []float64 {
	if len(samples) <= maxPoints {
		// Need to copy all samples
		if cap(dst) >= len(samples) {
			dst = dst[:len(samples)]
			copy(dst, samples)
			return dst
		}
		// dst too small, allocate new
		result := make([]float64, len(samples))
		copy(result, samples)
		return result
	}

	// Need to downsample
	if cap(dst) >= maxPoints {
		// Reuse dst
		dst = dst[:0] // Reset length but keep capacity
	} else {
		// Allocate new slice
		dst = make([]float64, 0, maxPoints)
	}

	// Calculate step size for decimation
	step := float64(len(samples)) / float64(maxPoints)

	for i := range maxPoints {
		idx := int(float64(i) * step)
		if idx < len(samples) {
			dst = append(dst, samples[idx])
		}
	}

	return dst
}
