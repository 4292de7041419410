package analyzer

import (
	"errors"
	"math"
	"testing"
)

func rampFrame(n int) []byte {
	freq := make([]byte, n)
	for i := range freq {
		freq[i] = byte(i * 7 % 256)
	}
	return freq
}

func TestSmootherAlphaOneIsPlainAverage(t *testing.T) {
	s, err := NewSmoother(8, 4, 1)
	if err != nil {
		t.Fatalf("new smoother: %v", err)
	}
	out, err := s.Update([]byte{2, 4, 10, 20, 0, 0, 255, 1})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := []float64{3, 15, 0, 128}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("bin %d=%f want=%f", i, out[i], want[i])
		}
	}
	out, _ = s.Update([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	for i, v := range out {
		if v != 0 {
			t.Fatalf("alpha=1 kept memory in bin %d: %f", i, v)
		}
	}
}

func TestSmootherAlphaZeroNeverChanges(t *testing.T) {
	s, err := NewSmoother(64, 8, 0)
	if err != nil {
		t.Fatalf("new smoother: %v", err)
	}
	for i := 0; i < 5; i++ {
		out, err := s.Update(rampFrame(64))
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		for j, v := range out {
			if v != 0 {
				t.Fatalf("bin %d moved to %f", j, v)
			}
		}
	}
}

func TestSmootherExponentialBlend(t *testing.T) {
	s, _ := NewSmoother(4, 2, 0.5)
	s.Update([]byte{100, 100, 0, 0})
	out, _ := s.Update([]byte{100, 100, 0, 0})
	if out[0] != 75 || out[1] != 0 {
		t.Fatalf("got %v want [75 0]", out)
	}
}

func TestSmootherFractionalBoundaries(t *testing.T) {
	// 5 raw bins over 2 outputs: spb=2.5, raw bin 2 is split evenly.
	s, _ := NewSmoother(5, 2, 1)
	out, err := s.Update([]byte{10, 20, 30, 40, 50})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if want := (10 + 20 + 15.0) / 2.5; math.Abs(out[0]-want) > 1e-9 {
		t.Fatalf("bin 0=%f want=%f", out[0], want)
	}
	if want := (15 + 40 + 50.0) / 2.5; math.Abs(out[1]-want) > 1e-9 {
		t.Fatalf("bin 1=%f want=%f", out[1], want)
	}

	// Every raw unit of energy lands in exactly one place.
	s, _ = NewSmoother(512, 33, 1)
	freq := rampFrame(512)
	out, _ = s.Update(freq)
	rawSum, gotSum := 0.0, 0.0
	for _, v := range freq {
		rawSum += float64(v)
	}
	for _, v := range out {
		gotSum += v * 512 / 33
	}
	if math.Abs(rawSum-gotSum) > 1e-6 {
		t.Fatalf("energy not conserved: raw=%f smoothed=%f", rawSum, gotSum)
	}
}

func TestSmootherRejectsWrongFrameSize(t *testing.T) {
	s, _ := NewSmoother(512, 32, 1)
	if _, err := s.Update(make([]byte, 511)); !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
}

func TestSmootherInPlace(t *testing.T) {
	s, _ := NewSmoother(4, 2, 1)
	a, _ := s.Update([]byte{1, 1, 1, 1})
	b, _ := s.Update([]byte{2, 2, 2, 2})
	if &a[0] != &b[0] {
		t.Fatalf("expected state to be reused")
	}
}

func TestNewSmootherValidation(t *testing.T) {
	cases := map[string]struct {
		in, out int
		alpha   float64
	}{
		"more outputs than inputs": {4, 8, 1},
		"equal widths":             {8, 8, 1},
		"zero outputs":             {8, 0, 1},
		"alpha above one":          {8, 4, 1.5},
		"negative alpha":           {8, 4, -0.1},
		"nan alpha":                {8, 4, math.NaN()},
	}
	for name, c := range cases {
		if _, err := NewSmoother(c.in, c.out, c.alpha); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}
