package params

import (
	"time"

	"github.com/guidoenr/diggers/internal/tempo"
)

// Parameters models the choreography timing and flip behaviour of the lineup.
type Parameters struct {
	BPM          float64
	DigInterval  time.Duration
	FlipInterval time.Duration
	FlipLower    float64 // classifier input mapped to the highest flip threshold
	FlipUpper    float64 // classifier input mapped to the lowest flip threshold
	FlipBase     float64 // lowest flip threshold
	FlipInput    string  // classifier driving flips
	FadeOut      time.Duration
}

// Defaults returns calm defaults for an unknown tempo.
func Defaults() Parameters {
	p := Parameters{
		FlipLower: 0.48,
		FlipUpper: 0.55,
		FlipBase:  0.8,
		FlipInput: "midFreqSum",
		FadeOut:   150 * time.Millisecond,
	}
	p.ApplyTempo(0)
	return p
}

// ApplyTempo derives the dig and flip durations from bpm.
func (p *Parameters) ApplyTempo(bpm float64) {
	p.BPM = bpm
	p.DigInterval = tempo.Interval(bpm)
	p.FlipInterval = 2 * p.DigInterval
}

// MovesDelay is how long the opening flip runs before digging starts.
func (p Parameters) MovesDelay() time.Duration {
	return p.FlipInterval - p.DigInterval
}

// FlipThreshold maps a classifier value to the probability threshold a random draw
// must exceed to start a flip. Louder input lowers the threshold towards FlipBase.
func (p Parameters) FlipThreshold(input float64) float64 {
	span := p.FlipUpper - p.FlipLower
	if span <= 0 {
		return 1
	}
	input = clamp(input, p.FlipLower, p.FlipUpper)
	ratio := (input - p.FlipLower) / span
	return p.FlipBase + (1-p.FlipBase)*(1-ratio)
}

// ShouldFlip reports whether the draw r in [0,1) triggers a flip for input.
func (p Parameters) ShouldFlip(input, r float64) bool {
	return r > p.FlipThreshold(input)
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
