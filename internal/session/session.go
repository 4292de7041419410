// Package session wires the smoothing filter, classifier registry and level mapper
// into one explicitly owned pipeline per playback session.
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/guidoenr/diggers/internal/analyzer"
	"github.com/guidoenr/diggers/internal/level"
	"github.com/guidoenr/diggers/internal/tempo"
)

// ErrStopped is returned when frames are delivered to a stopped session.
var ErrStopped = errors.New("session stopped")

const (
	defaultFFTSize    = 1024
	defaultLevelInput = "midFreqSum"
)

// Config describes the pipeline of a session.
type Config struct {
	FFTSize     int      // time bytes per frame; frequency bytes are half of it
	Alpha       *float64 // smoothing blend, see analyzer.Smoother; nil means 1
	Classifiers []analyzer.Classifier
	Level       *level.Config
	LevelInput  string // classifier feeding the level mapper
	Log         *log.Logger
}

// DefaultLevel is the dig amplitude mapping driven by the mid band.
func DefaultLevel() level.Config {
	return level.Config{
		MinInput:  0.46,
		MaxInput:  0.55,
		MinOutput: 14,
		MaxOutput: 30,
		Levels:    4,
		Interval:  1,
		Unit:      "vmin",
	}
}

// SmoothedBins returns the smoothed width used for a given FFT size.
func SmoothedBins(fftSize int) int {
	return fftSize / 32
}

// DefaultClassifiers returns the classifiers active during playback.
func DefaultClassifiers(fftSize int) ([]analyzer.Classifier, error) {
	mid, err := analyzer.NewBandEnergy(analyzer.BandEnergyConfig{
		Name:   defaultLevelInput,
		Bins:   SmoothedBins(fftSize),
		Start:  5,
		End:    10,
		Window: 20,
	})
	if err != nil {
		return nil, err
	}
	return []analyzer.Classifier{mid}, nil
}

// Session owns all mutable pipeline state for one playback. It is not safe for
// concurrent use; frames are delivered from a single loop.
type Session struct {
	timeBins   int
	smoother   *analyzer.Smoother
	registry   *analyzer.Registry
	mapper     *level.Mapper
	levelInput string
	tempo      tempo.Tempo
	active     bool
	frames     uint64
	log        *log.Logger
}

// New validates cfg and builds the pipeline. The session starts stopped.
func New(cfg Config) (*Session, error) {
	if cfg.FFTSize == 0 {
		cfg.FFTSize = defaultFFTSize
	}
	if cfg.FFTSize < 64 || cfg.FFTSize%32 != 0 {
		return nil, fmt.Errorf("fft size %d must be a multiple of 32 and at least 64: %w", cfg.FFTSize, analyzer.ErrInvalidConfig)
	}
	alpha := 1.0
	if cfg.Alpha != nil {
		alpha = *cfg.Alpha
	}
	if cfg.Log == nil {
		cfg.Log = log.New(io.Discard, "", 0)
	}
	if cfg.Classifiers == nil {
		cs, err := DefaultClassifiers(cfg.FFTSize)
		if err != nil {
			return nil, err
		}
		cfg.Classifiers = cs
	}
	if cfg.Level == nil {
		def := DefaultLevel()
		cfg.Level = &def
	}
	if cfg.LevelInput == "" {
		cfg.LevelInput = defaultLevelInput
	}

	bins := SmoothedBins(cfg.FFTSize)
	smoother, err := analyzer.NewSmoother(cfg.FFTSize/2, bins, alpha)
	if err != nil {
		return nil, fmt.Errorf("smoother: %w", err)
	}
	registry := analyzer.NewRegistry(bins)
	for _, c := range cfg.Classifiers {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	mapper, err := level.New(*cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("level mapper: %w", err)
	}

	return &Session{
		timeBins:   cfg.FFTSize,
		smoother:   smoother,
		registry:   registry,
		mapper:     mapper,
		levelInput: cfg.LevelInput,
		log:        cfg.Log,
	}, nil
}

// Start marks the session live. State is always clean here since Stop resets it.
func (s *Session) Start() {
	if s.active {
		return
	}
	s.active = true
	s.log.Printf("session started: %d classifiers, %d smoothed bins", s.registry.Len(), s.smoother.Bins())
}

// Stop ends playback and synchronously resets every piece of owned state.
func (s *Session) Stop() {
	if !s.active {
		return
	}
	s.active = false
	s.reset()
	s.log.Printf("session stopped after %d frames", s.frames)
	s.frames = 0
}

func (s *Session) reset() {
	s.smoother.Reset()
	s.registry.Reset()
	s.mapper.Reset()
}

// Active reports whether frames are being accepted.
func (s *Session) Active() bool { return s.active }

// DeliverFrame runs one frame through the smoothing filter and classifiers.
func (s *Session) DeliverFrame(f analyzer.Frame) error {
	if !s.active {
		return ErrStopped
	}
	if len(f.Time) != s.timeBins {
		return fmt.Errorf("time frame has %d samples, want %d: %w", len(f.Time), s.timeBins, analyzer.ErrFrameSize)
	}
	smoothed, err := s.smoother.Update(f.Freq)
	if err != nil {
		return err
	}
	if err := s.registry.Update(f, smoothed); err != nil {
		return err
	}
	s.frames++
	return nil
}

// Values returns the latest classifier outputs by name.
func (s *Session) Values() map[string]float64 {
	return s.registry.Values()
}

// Value returns one classifier output.
func (s *Session) Value(name string) (float64, bool) {
	return s.registry.Value(name)
}

// Smoothed returns a copy of the smoothed bins.
func (s *Session) Smoothed() []float64 {
	return append([]float64(nil), s.smoother.State()...)
}

// Frames returns the number of frames delivered since Start.
func (s *Session) Frames() uint64 { return s.frames }

// LevelOutput advances the level mapper with the current level input and returns the
// formatted output. Without a live session or input the minimum output is returned
// and the mapper is left untouched.
func (s *Session) LevelOutput() string {
	v, ok := s.registry.Value(s.levelInput)
	if !s.active || !ok {
		return s.mapper.Format(s.mapper.MinOutput())
	}
	return s.mapper.Format(s.mapper.Update(v))
}

// Amplitude returns the mapper output for the current level without advancing it,
// along with the configured maximum output.
func (s *Session) Amplitude() (current, max float64) {
	if !s.active {
		return s.mapper.MinOutput(), s.mapper.MaxOutput()
	}
	return s.mapper.Output(), s.mapper.MaxOutput()
}

// Level returns the current mapper level.
func (s *Session) Level() int { return s.mapper.Level() }

// SetTempo records the estimated tempo used to size timing intervals.
func (s *Session) SetTempo(t tempo.Tempo) { s.tempo = t }

// Tempo returns the recorded tempo.
func (s *Session) Tempo() tempo.Tempo { return s.tempo }

// DigInterval returns the beat duration, one second when the tempo is unknown.
func (s *Session) DigInterval() time.Duration { return s.tempo.Interval() }
