package vibro

import "math"

// Stats summarizes the acceleration magnitudes of one measurement.
type Stats struct {
	Peak        float64 // highest magnitude seen (m/s^2)
	RMS         float64 // root mean square of the magnitudes
	StdDev      float64 // population standard deviation of the magnitudes
	RMSVelocity float64 // velocity proxy: running integral over the sample count
	Duration    float64 // measured wall-clock seconds
	Samples     int
}

// Result is the immutable outcome of one completed measurement.
type Result struct {
	Stats
	DominantFreqHz float64
	Score          float64
}

// Score maps a peak acceleration and measurement duration onto the display
// scale. Longer exposure to the same peak reads higher.
func Score(peakAccel, durationSeconds float64) float64 {
	return math.Log10(peakAccel+1) + 1.5*math.Log10(durationSeconds+1)
}
