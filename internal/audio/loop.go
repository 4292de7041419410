package audio

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// LoopConfig describes the synthetic beat loop.
type LoopConfig struct {
	BPM        float64
	Bars       int
	SampleRate float64
	Seed       int64
}

// Loop is a looping synthetic beat: a kick on every beat, a snare on two and four
// and a hat on the off-beats. Reads follow the wall clock while playing.
type Loop struct {
	samples    []float32
	sampleRate float64
	bpm        float64
	now        func() time.Time

	mu      sync.Mutex
	playing bool
	started time.Time
	offset  int // loop position when playback last stopped
}

// NewLoop renders the loop into memory.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.BPM <= 0 {
		cfg.BPM = 120
	}
	if cfg.Bars <= 0 {
		cfg.Bars = 4
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	return &Loop{
		samples:    renderLoop(cfg),
		sampleRate: cfg.SampleRate,
		bpm:        cfg.BPM,
		now:        time.Now,
	}
}

func renderLoop(cfg LoopConfig) []float32 {
	rng := rand.New(rand.NewSource(cfg.Seed))
	beat := int(60 / cfg.BPM * cfg.SampleRate)
	beats := cfg.Bars * 4
	out := make([]float64, beat*beats)

	for b := 0; b < beats; b++ {
		start := b * beat
		// kick: pitch sweep 120 -> 45 Hz
		phase := 0.0
		for i := 0; i < beat/2 && start+i < len(out); i++ {
			t := float64(i) / cfg.SampleRate
			freq := 45 + 75*math.Exp(-t*30)
			phase += 2 * math.Pi * freq / cfg.SampleRate
			out[start+i] += 0.9 * math.Exp(-t*9) * math.Sin(phase)
		}
		if b%2 == 1 {
			// snare: noise burst with a mid body
			for i := 0; i < beat/3 && start+i < len(out); i++ {
				t := float64(i) / cfg.SampleRate
				body := math.Sin(2 * math.Pi * 190 * t)
				out[start+i] += 0.45 * math.Exp(-t*18) * (0.6*(rng.Float64()*2-1) + 0.4*body)
			}
		}
		// hat on the off-beat
		hat := start + beat/2
		prev := 0.0
		for i := 0; i < beat/8 && hat+i < len(out); i++ {
			t := float64(i) / cfg.SampleRate
			n := rng.Float64()*2 - 1
			out[hat+i] += 0.25 * math.Exp(-t*60) * (n - prev)
			prev = n
		}
	}

	samples := make([]float32, len(out))
	for i, v := range out {
		samples[i] = float32(math.Max(-1, math.Min(1, v)))
	}
	return samples
}

// SampleRate returns the loop sample rate.
func (l *Loop) SampleRate() float64 { return l.sampleRate }

// BPM returns the tempo the loop was rendered at.
func (l *Loop) BPM() float64 { return l.bpm }

// Name identifies the source in status output.
func (l *Loop) Name() string { return "synthetic loop" }

// Buffer returns the whole loop.
func (l *Loop) Buffer() []float32 { return l.samples }

// Start resumes playback from where it stopped.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.playing {
		return
	}
	l.playing = true
	l.started = l.now()
}

// Stop pauses playback.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.playing {
		return
	}
	l.offset = l.positionLocked()
	l.playing = false
}

// Playing reports whether the loop is running.
func (l *Loop) Playing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.playing
}

func (l *Loop) positionLocked() int {
	if !l.playing {
		return l.offset
	}
	elapsed := l.now().Sub(l.started).Seconds()
	return (l.offset + int(elapsed*l.sampleRate)) % len(l.samples)
}

// Recent returns the n samples played most recently. A stopped loop is silent.
func (l *Loop) Recent(n int) []float32 {
	out := make([]float32, n)
	l.mu.Lock()
	playing := l.playing
	pos := l.positionLocked()
	l.mu.Unlock()
	if !playing {
		return out
	}
	size := len(l.samples)
	for i := 0; i < n; i++ {
		idx := (pos - n + i) % size
		if idx < 0 {
			idx += size
		}
		out[i] = l.samples[idx]
	}
	return out
}
