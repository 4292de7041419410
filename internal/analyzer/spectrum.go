package analyzer

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	defaultFFTSize = 1024
	defaultMinDB   = -100.0
	defaultMaxDB   = -30.0
)

// DefaultTimeConst is the magnitude smoothing browsers apply to analyser output.
const DefaultTimeConst = 0.8

// Spectrum converts mono PCM into byte frames: fftSize time-domain bytes centred on
// 128 and fftSize/2 frequency bytes mapping [MinDB, MaxDB] onto [0, 255].
type Spectrum struct {
	fftSize   int
	minDB     float64
	maxDB     float64
	timeConst float64

	window []float64
	input  []float64
	mags   []float64
	frame  Frame
}

// SpectrumConfig controls Spectrum behavior.
type SpectrumConfig struct {
	FFTSize   int
	MinDB     float64
	MaxDB     float64
	TimeConst float64 // temporal smoothing of magnitudes, 0 disables it
}

// NewSpectrum creates a Spectrum. FFTSize is rounded up to a power of two.
func NewSpectrum(cfg SpectrumConfig) *Spectrum {
	if cfg.FFTSize <= 0 {
		cfg.FFTSize = defaultFFTSize
	}
	if cfg.MinDB == 0 && cfg.MaxDB == 0 {
		cfg.MinDB, cfg.MaxDB = defaultMinDB, defaultMaxDB
	}
	if cfg.MaxDB <= cfg.MinDB {
		cfg.MaxDB = cfg.MinDB + 1
	}
	if cfg.TimeConst < 0 || cfg.TimeConst >= 1 {
		cfg.TimeConst = DefaultTimeConst
	}
	size := nextPow2(cfg.FFTSize)
	if size < 32 {
		size = 32
	}
	return &Spectrum{
		fftSize:   size,
		minDB:     cfg.MinDB,
		maxDB:     cfg.MaxDB,
		timeConst: cfg.TimeConst,
		window:    window.Blackman(size),
		input:     make([]float64, size),
		mags:      make([]float64, size/2),
		frame: Frame{
			Time: make([]byte, size),
			Freq: make([]byte, size/2),
		},
	}
}

// FFTSize returns the number of time-domain bytes per frame.
func (s *Spectrum) FFTSize() int { return s.fftSize }

// FrequencyBins returns the number of frequency bytes per frame.
func (s *Spectrum) FrequencyBins() int { return s.fftSize / 2 }

// Analyze fills the internal frame from the most recent fftSize samples. Shorter
// input is zero-padded at the front. The returned frame is reused by the next call.
func (s *Spectrum) Analyze(samples []float32) Frame {
	size := s.fftSize
	if len(samples) > size {
		samples = samples[len(samples)-size:]
	}
	pad := size - len(samples)
	for i := 0; i < size; i++ {
		v := 0.0
		if i >= pad {
			v = float64(samples[i-pad])
		}
		s.frame.Time[i] = byte(clamp(math.Floor(128*(1+v)), 0, 255))
		s.input[i] = v * s.window[i]
	}

	spec := fft.FFTReal(s.input)
	scale := 255 / (s.maxDB - s.minDB)
	for k := range s.mags {
		mag := cmag(spec[k]) / float64(size)
		s.mags[k] = s.timeConst*s.mags[k] + (1-s.timeConst)*mag
		db := math.Inf(-1)
		if s.mags[k] > 0 {
			db = 20 * math.Log10(s.mags[k])
		}
		s.frame.Freq[k] = byte(clamp(math.Floor(scale*(db-s.minDB)), 0, 255))
	}
	return s.frame
}

// Reset clears the smoothed magnitudes.
func (s *Spectrum) Reset() {
	for i := range s.mags {
		s.mags[i] = 0
	}
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
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
