package analyzer

import "fmt"

// ZoneRatioConfig configures a ZoneRatio classifier.
type ZoneRatioConfig struct {
	Name   string
	Bins   int // smoothed bins per frame
	Zones  int
	Window int
	Zone   *int // zone whose share of the total is reported, nil picks zone 1
}

// ZoneRatio splits the smoothed spectrum into contiguous zones and reports the
// share of one zone's windowed energy in the windowed energy of all zones.
type ZoneRatio struct {
	name    string
	bins    int
	zone    int
	bounds  []int // zone i covers [bounds[i], bounds[i+1])
	windows []*Window
	avgs    []float64
	last    float64
}

// NewZoneRatio validates cfg and builds the zone partitioning. Zero Zones and Window
// default to 3 and 100, a nil Zone to 1 (0 with a single zone); the last zone absorbs
// the remainder of the integer division.
func NewZoneRatio(cfg ZoneRatioConfig) (*ZoneRatio, error) {
	if cfg.Zones == 0 {
		cfg.Zones = 3
	}
	if cfg.Window == 0 {
		cfg.Window = 100
	}
	zone := 1
	if cfg.Zone != nil {
		zone = *cfg.Zone
	} else if cfg.Zones == 1 {
		zone = 0
	}
	switch {
	case cfg.Name == "":
		return nil, fmt.Errorf("zone ratio: empty name: %w", ErrInvalidConfig)
	case cfg.Zones < 1 || cfg.Bins < cfg.Zones:
		return nil, fmt.Errorf("zone ratio %q: %d zones over %d bins: %w", cfg.Name, cfg.Zones, cfg.Bins, ErrInvalidConfig)
	case cfg.Window < 1:
		return nil, fmt.Errorf("zone ratio %q: window %d: %w", cfg.Name, cfg.Window, ErrInvalidConfig)
	case zone < 0 || zone >= cfg.Zones:
		return nil, fmt.Errorf("zone ratio %q: zone %d of %d: %w", cfg.Name, zone, cfg.Zones, ErrInvalidConfig)
	}

	width := cfg.Bins / cfg.Zones
	bounds := make([]int, cfg.Zones+1)
	for i := 0; i < cfg.Zones; i++ {
		bounds[i] = i * width
	}
	bounds[cfg.Zones] = cfg.Bins

	c := &ZoneRatio{
		name:    cfg.Name,
		bins:    cfg.Bins,
		zone:    zone,
		bounds:  bounds,
		windows: make([]*Window, cfg.Zones),
		avgs:    make([]float64, cfg.Zones),
	}
	for i := range c.windows {
		c.windows[i] = NewWindow(cfg.Window)
	}
	return c, nil
}

func (c *ZoneRatio) Name() string { return c.name }
func (c *ZoneRatio) Bins() int    { return c.bins }
func (c *ZoneRatio) Value() float64 {
	return c.last
}

// Bounds returns the zone boundaries; zone i covers [b[i], b[i+1]).
func (c *ZoneRatio) Bounds() []int {
	out := make([]int, len(c.bounds))
	copy(out, c.bounds)
	return out
}

// Averages returns the windowed zone energies computed by the last Update.
func (c *ZoneRatio) Averages() []float64 {
	out := make([]float64, len(c.avgs))
	copy(out, c.avgs)
	return out
}

func (c *ZoneRatio) Reset() {
	for i, w := range c.windows {
		w.Reset()
		c.avgs[i] = 0
	}
	c.last = 0
}

func (c *ZoneRatio) Update(_ Frame, smoothed []float64) float64 {
	total := 0.0
	for i, w := range c.windows {
		sum := 0.0
		for _, v := range smoothed[c.bounds[i]:c.bounds[i+1]] {
			sum += v
		}
		w.Push(sum)
		c.avgs[i] = w.Average()
		total += c.avgs[i]
	}
	if total == 0 {
		c.last = 0
		return 0
	}
	c.last = c.avgs[c.zone] / total
	return c.last
}
