package level

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidConfig is returned by New for unusable ranges.
var ErrInvalidConfig = errors.New("invalid level mapper configuration")

// hysteresis is the dead band on each side of a nominal threshold, in steps.
const hysteresis = 0.1

// Config controls a Mapper.
type Config struct {
	MinInput  float64
	MaxInput  float64
	MinOutput float64
	MaxOutput float64
	Levels    int
	Interval  int    // invocations skipped between applied transitions
	Unit      string // appended by Format
}

// Mapper turns a noisy scalar into a discrete output level. The target level moves
// at most one step per update and only once the input clears a dead band around the
// nominal threshold. The current level follows the target every Interval+1 updates,
// jumping straight up but falling one level at a time.
type Mapper struct {
	cfg      Config
	stepUp   []float64
	stepDown []float64
	outputs  []float64

	current   int
	target    int
	countdown int
}

// New precomputes thresholds and the output table.
func New(cfg Config) (*Mapper, error) {
	if cfg.Levels < 1 {
		return nil, fmt.Errorf("levels %d: %w", cfg.Levels, ErrInvalidConfig)
	}
	if !(cfg.MaxInput > cfg.MinInput) {
		return nil, fmt.Errorf("input range [%v,%v]: %w", cfg.MinInput, cfg.MaxInput, ErrInvalidConfig)
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("interval %d: %w", cfg.Interval, ErrInvalidConfig)
	}

	step := (cfg.MaxInput - cfg.MinInput) / float64(cfg.Levels)
	m := &Mapper{
		cfg:       cfg,
		stepUp:    make([]float64, cfg.Levels-1),
		stepDown:  make([]float64, cfg.Levels-1),
		outputs:   make([]float64, cfg.Levels),
		countdown: cfg.Interval,
	}
	for i := 1; i < cfg.Levels; i++ {
		thr := cfg.MinInput + step*float64(i)
		m.stepUp[i-1] = thr + hysteresis*step
		m.stepDown[i-1] = thr - hysteresis*step
	}
	outStep := (cfg.MaxOutput - cfg.MinOutput) / float64(cfg.Levels)
	for i := range m.outputs {
		m.outputs[i] = cfg.MinOutput + float64(i)*outStep
	}
	return m, nil
}

// Update feeds one input sample and returns the output for the current level.
func (m *Mapper) Update(raw float64) float64 {
	input := raw
	if math.IsNaN(input) {
		input = m.cfg.MinInput
	}
	input = math.Min(m.cfg.MaxInput, math.Max(m.cfg.MinInput, input))

	last := m.cfg.Levels - 1
	if m.target < last && input > m.stepUp[m.target] {
		m.target++
	} else if m.target > 0 && input < m.stepDown[m.target-1] {
		m.target--
	}

	if m.countdown > 0 {
		m.countdown--
	} else {
		if m.target > m.current {
			m.current = m.target
		} else if m.target < m.current {
			m.current--
		}
		m.countdown = m.cfg.Interval
	}
	return m.outputs[m.current]
}

// Output returns the output for the current level without updating.
func (m *Mapper) Output() float64 { return m.outputs[m.current] }

// MinOutput returns the output of level zero.
func (m *Mapper) MinOutput() float64 { return m.cfg.MinOutput }

// MaxOutput returns the configured maximum output. The top level stays one output
// step below it.
func (m *Mapper) MaxOutput() float64 { return m.cfg.MaxOutput }

// Level returns the current level.
func (m *Mapper) Level() int { return m.current }

// Target returns the level the mapper is moving towards.
func (m *Mapper) Target() int { return m.target }

// Levels returns the number of levels.
func (m *Mapper) Levels() int { return m.cfg.Levels }

// Thresholds returns copies of the rising and falling thresholds.
func (m *Mapper) Thresholds() (up, down []float64) {
	up = append([]float64(nil), m.stepUp...)
	down = append([]float64(nil), m.stepDown...)
	return up, down
}

// Outputs returns a copy of the output table.
func (m *Mapper) Outputs() []float64 {
	return append([]float64(nil), m.outputs...)
}

// Format renders v with two decimals followed by the configured unit.
func (m *Mapper) Format(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + m.cfg.Unit
}

// Reset returns to level zero and restarts the countdown.
func (m *Mapper) Reset() {
	m.current = 0
	m.target = 0
	m.countdown = m.cfg.Interval
}
