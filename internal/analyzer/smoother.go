package analyzer

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrFrameSize is returned when a frame does not match the configured sizes.
	ErrFrameSize = errors.New("frame size mismatch")
	// ErrInvalidConfig is returned by constructors given unusable parameters.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Frame is one synchronized pair of time-domain and frequency-domain byte samples.
type Frame struct {
	Time []byte
	Freq []byte
}

// Smoother reduces a wide frequency frame to fewer bins and blends them over time.
//
// Each raw bin r covers the interval [r, r+1). Output bin i covers
// [i*spb, (i+1)*spb) where spb = inputBins/outputBins may be fractional; a raw bin
// straddling a boundary contributes to both neighbours in proportion to its overlap.
// With an integral spb this reduces to a plain average of whole bins.
type Smoother struct {
	inputBins int
	alpha     float64
	state     []float64
}

// NewSmoother creates a Smoother mapping inputBins raw bins onto outputBins smoothed bins.
// alpha weights the newest frame: 1 disables temporal memory, 0 freezes the state.
func NewSmoother(inputBins, outputBins int, alpha float64) (*Smoother, error) {
	if outputBins <= 0 || inputBins <= outputBins {
		return nil, fmt.Errorf("smoother %d->%d bins: %w", inputBins, outputBins, ErrInvalidConfig)
	}
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("smoother alpha %v outside [0,1]: %w", alpha, ErrInvalidConfig)
	}
	return &Smoother{
		inputBins: inputBins,
		alpha:     alpha,
		state:     make([]float64, outputBins),
	}, nil
}

// Update folds freq into the smoothed state and returns it. The returned slice is
// owned by the Smoother and is rewritten in place on every call.
func (s *Smoother) Update(freq []byte) ([]float64, error) {
	if len(freq) != s.inputBins {
		return nil, fmt.Errorf("smoother got %d bins, want %d: %w", len(freq), s.inputBins, ErrFrameSize)
	}
	spb := float64(s.inputBins) / float64(len(s.state))
	for i := range s.state {
		lo := float64(i) * spb
		hi := float64(i+1) * spb
		sum := 0.0
		for r := int(math.Floor(lo)); r < s.inputBins && float64(r) < hi; r++ {
			start := math.Max(lo, float64(r))
			end := math.Min(hi, float64(r+1))
			sum += float64(freq[r]) * (end - start)
		}
		fresh := sum / spb
		s.state[i] = s.alpha*fresh + (1-s.alpha)*s.state[i]
	}
	return s.state, nil
}

// State returns the smoothed bins without updating them.
func (s *Smoother) State() []float64 {
	return s.state
}

// Bins returns the number of smoothed bins.
func (s *Smoother) Bins() int { return len(s.state) }

// InputBins returns the expected raw frame width.
func (s *Smoother) InputBins() int { return s.inputBins }

// Alpha returns the blend factor.
func (s *Smoother) Alpha() float64 { return s.alpha }

// Reset zero-fills the smoothed state.
func (s *Smoother) Reset() {
	for i := range s.state {
		s.state[i] = 0
	}
}
