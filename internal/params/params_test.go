package params

import (
	"math"
	"testing"
	"time"
)

func TestDefaultsUseOneSecondBeat(t *testing.T) {
	p := Defaults()
	if p.DigInterval != time.Second || p.FlipInterval != 2*time.Second {
		t.Fatalf("dig=%v flip=%v", p.DigInterval, p.FlipInterval)
	}
	if p.MovesDelay() != time.Second {
		t.Fatalf("moves delay=%v", p.MovesDelay())
	}
}

func TestApplyTempo(t *testing.T) {
	p := Defaults()
	p.ApplyTempo(120)
	if p.DigInterval != 500*time.Millisecond || p.FlipInterval != time.Second {
		t.Fatalf("dig=%v flip=%v", p.DigInterval, p.FlipInterval)
	}
}

func TestFlipThreshold(t *testing.T) {
	p := Defaults()
	cases := map[float64]float64{
		0:     1.0,
		0.48:  1.0,
		0.515: 0.9,
		0.55:  0.8,
		0.9:   0.8,
	}
	for input, want := range cases {
		if got := p.FlipThreshold(input); math.Abs(got-want) > 1e-9 {
			t.Fatalf("FlipThreshold(%v)=%v want=%v", input, got, want)
		}
	}
	if p.ShouldFlip(0, 0.999) {
		t.Fatalf("quiet input should never flip")
	}
	if !p.ShouldFlip(0.55, 0.85) {
		t.Fatalf("loud input should flip above 0.8")
	}
}
