// Package tempo estimates the beat rate of a decoded audio buffer.
package tempo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrTooShort is returned when the buffer holds too few beats to measure.
	ErrTooShort = errors.New("buffer too short for tempo estimation")
	// ErrNoBeat is returned when no periodic onsets are found.
	ErrNoBeat = errors.New("no beat detected")
)

// DefaultInterval is used when the tempo is unknown.
const DefaultInterval = time.Second

// Tempo is an estimated beat rate and the time of the first beat.
type Tempo struct {
	BPM    float64
	Offset float64 // seconds
}

// Interval returns the duration of one beat.
func (t Tempo) Interval() time.Duration {
	return Interval(t.BPM)
}

// Interval converts bpm into a beat duration, falling back to DefaultInterval when
// bpm is zero, negative or not a number.
func Interval(bpm float64) time.Duration {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return DefaultInterval
	}
	return time.Duration(60 / bpm * float64(time.Second))
}

// Estimator guesses the tempo of a mono buffer.
type Estimator interface {
	Estimate(ctx context.Context, samples []float32, sampleRate float64) (Tempo, error)
}

// Autocorrelation estimates tempo from the periodicity of an energy onset envelope.
type Autocorrelation struct {
	Hop    int
	MinBPM float64
	MaxBPM float64
}

const (
	defaultHop    = 512
	defaultMinBPM = 90.0
	defaultMaxBPM = 180.0
)

// NewAutocorrelation returns an estimator searching 90-180 BPM with 512-sample hops.
// Zero fields of a literal Autocorrelation take the same defaults.
func NewAutocorrelation() *Autocorrelation {
	return &Autocorrelation{Hop: defaultHop, MinBPM: defaultMinBPM, MaxBPM: defaultMaxBPM}
}

// Estimate implements Estimator.
func (a *Autocorrelation) Estimate(ctx context.Context, samples []float32, sampleRate float64) (Tempo, error) {
	if sampleRate <= 0 {
		return Tempo{}, fmt.Errorf("sample rate %v: %w", sampleRate, ErrTooShort)
	}
	hop := a.Hop
	if hop <= 0 {
		hop = defaultHop
	}
	minBPM, maxBPM := a.MinBPM, a.MaxBPM
	if minBPM <= 0 {
		minBPM = defaultMinBPM
	}
	if maxBPM <= 0 {
		maxBPM = defaultMaxBPM
	}
	if maxBPM <= minBPM {
		return Tempo{}, fmt.Errorf("bpm range %v-%v: %w", minBPM, maxBPM, ErrNoBeat)
	}
	frameRate := sampleRate / float64(hop)
	minLag := int(math.Floor(60 / maxBPM * frameRate))
	maxLag := int(math.Ceil(60 / minBPM * frameRate))
	if minLag < 1 {
		minLag = 1
	}

	env := onsetEnvelope(samples, hop)
	if len(env) < 2*maxLag {
		return Tempo{}, fmt.Errorf("%d onset frames, need %d: %w", len(env), 2*maxLag, ErrTooShort)
	}

	mean := 0.0
	for _, v := range env {
		mean += v
	}
	mean /= float64(len(env))
	if mean == 0 {
		return Tempo{}, ErrNoBeat
	}

	bestLag, best := 0, 0.0
	zeroLag := 0.0
	for _, v := range env {
		zeroLag += (v - mean) * (v - mean)
	}
	for lag := minLag; lag <= maxLag; lag++ {
		if err := ctx.Err(); err != nil {
			return Tempo{}, err
		}
		sum := 0.0
		for i := lag; i < len(env); i++ {
			sum += (env[i] - mean) * (env[i-lag] - mean)
		}
		sum /= float64(len(env) - lag)
		if sum > best {
			best, bestLag = sum, lag
		}
	}
	if bestLag == 0 || best < 0.1*zeroLag/float64(len(env)) {
		return Tempo{}, ErrNoBeat
	}

	// Parabolic interpolation around the peak sharpens the integer lag.
	lag := float64(bestLag)
	if bestLag > minLag && bestLag < maxLag {
		prev := autocorr(env, mean, bestLag-1)
		next := autocorr(env, mean, bestLag+1)
		if d := prev - 2*best + next; d < 0 {
			lag += 0.5 * (prev - next) / d
		}
	}
	bpm := 60 * frameRate / lag

	return Tempo{
		BPM:    math.Round(bpm*10) / 10,
		Offset: firstOnset(env, bestLag) / frameRate,
	}, nil
}

func autocorr(env []float64, mean float64, lag int) float64 {
	sum := 0.0
	for i := lag; i < len(env); i++ {
		sum += (env[i] - mean) * (env[i-lag] - mean)
	}
	return sum / float64(len(env)-lag)
}

// onsetEnvelope returns the positive energy flux between consecutive hops.
func onsetEnvelope(samples []float32, hop int) []float64 {
	frames := len(samples) / hop
	if frames < 2 {
		return nil
	}
	env := make([]float64, frames-1)
	prev := 0.0
	for f := 0; f < frames; f++ {
		energy := 0.0
		for _, s := range samples[f*hop : (f+1)*hop] {
			energy += float64(s) * float64(s)
		}
		if f > 0 {
			env[f-1] = math.Max(0, energy-prev)
		}
		prev = energy
	}
	return env
}

// firstOnset returns the strongest onset within the first beat period, in frames.
func firstOnset(env []float64, period int) float64 {
	if period > len(env) {
		period = len(env)
	}
	best := 0
	for i := 1; i < period; i++ {
		if env[i] > env[best] {
			best = i
		}
	}
	// env[i] is the flux into hop i+1.
	return float64(best + 1)
}
