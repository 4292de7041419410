package analyzer

// Classifier reduces per-frame spectral data to a single named scalar.
//
// Update is called exactly once per delivered frame. Implementations push one sample
// into each of their windows before reading averages and cache the result for Value.
type Classifier interface {
	Name() string
	Reset()
	Update(f Frame, smoothed []float64) float64
	Value() float64
}

// binned is implemented by classifiers whose partitioning depends on the smoothed width.
type binned interface {
	Bins() int
}
