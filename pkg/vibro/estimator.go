package vibro

// Estimator names accepted in configuration.
const (
	EstimatorSpectral  = "spectral"
	EstimatorZeroCross = "zerocross"
)

// Estimator turns one measurement into a dominant-frequency estimate.
// Observe is fed once per acquired sample with the offset-corrected axis
// value; Finalize runs once on the frozen magnitude window. The two
// strategies weigh the inputs differently and may legitimately disagree on
// the same measurement.
type Estimator interface {
	// Name returns the configuration token identifying the strategy.
	Name() string
	Reset(sampleRateHz float64)
	Observe(tMicros int64, value float64)
	Finalize(window []float64, stats Stats) float64
}

// NewEstimator returns the strategy for the configuration token, defaulting
// to spectral for unknown names.
func NewEstimator(name string) Estimator {
	switch name {
	case EstimatorZeroCross:
		return NewZeroCross()
	default:
		return NewSpectral()
	}
}

// Ensure both strategies implement Estimator.
var _ Estimator = (*ZeroCross)(nil)
var _ Estimator = (*Spectral)(nil)
