package analyzer

import "fmt"

// DefaultScale is the full-scale value of byte-valued spectra.
const DefaultScale = 256

// BandEnergyConfig configures a BandEnergy classifier.
type BandEnergyConfig struct {
	Name   string
	Bins   int // smoothed bins per frame
	Start  int
	End    int // exclusive
	Window int
	Scale  float64 // full-scale of one smoothed bin, defaults to DefaultScale
}

// BandEnergy averages each bin of [Start, End) over a window and reports the mean
// normalized to roughly [0,1].
type BandEnergy struct {
	name    string
	bins    int
	start   int
	end     int
	scale   float64
	windows []*Window
	last    float64
}

// NewBandEnergy validates cfg and allocates one window per bin in the band.
func NewBandEnergy(cfg BandEnergyConfig) (*BandEnergy, error) {
	if cfg.Scale == 0 {
		cfg.Scale = DefaultScale
	}
	switch {
	case cfg.Name == "":
		return nil, fmt.Errorf("band energy: empty name: %w", ErrInvalidConfig)
	case cfg.Start < 0 || cfg.End <= cfg.Start || cfg.End > cfg.Bins:
		return nil, fmt.Errorf("band energy %q: band [%d,%d) over %d bins: %w", cfg.Name, cfg.Start, cfg.End, cfg.Bins, ErrInvalidConfig)
	case cfg.Window < 1:
		return nil, fmt.Errorf("band energy %q: window %d: %w", cfg.Name, cfg.Window, ErrInvalidConfig)
	case cfg.Scale < 0:
		return nil, fmt.Errorf("band energy %q: scale %v: %w", cfg.Name, cfg.Scale, ErrInvalidConfig)
	}

	c := &BandEnergy{
		name:    cfg.Name,
		bins:    cfg.Bins,
		start:   cfg.Start,
		end:     cfg.End,
		scale:   cfg.Scale,
		windows: make([]*Window, cfg.End-cfg.Start),
	}
	for i := range c.windows {
		c.windows[i] = NewWindow(cfg.Window)
	}
	return c, nil
}

func (c *BandEnergy) Name() string   { return c.name }
func (c *BandEnergy) Bins() int      { return c.bins }
func (c *BandEnergy) Value() float64 { return c.last }

func (c *BandEnergy) Reset() {
	for _, w := range c.windows {
		w.Reset()
	}
	c.last = 0
}

func (c *BandEnergy) Update(_ Frame, smoothed []float64) float64 {
	sum := 0.0
	for i, w := range c.windows {
		w.Push(smoothed[c.start+i])
		sum += w.Average()
	}
	c.last = sum / (c.scale * float64(len(c.windows)))
	return c.last
}
