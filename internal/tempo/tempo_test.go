package tempo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func clickTrack(bpm, sampleRate, seconds float64) []float32 {
	n := int(sampleRate * seconds)
	out := make([]float32, n)
	period := int(60 / bpm * sampleRate)
	for start := 0; start < n; start += period {
		for i := 0; i < 2000 && start+i < n; i++ {
			out[start+i] = float32(0.9 * math.Exp(-float64(i)/400) * math.Sin(2*math.Pi*60*float64(i)/sampleRate))
		}
	}
	return out
}

func TestEstimateClickTrack(t *testing.T) {
	for _, bpm := range []float64{100, 120, 150} {
		got, err := NewAutocorrelation().Estimate(context.Background(), clickTrack(bpm, 44100, 12), 44100)
		if err != nil {
			t.Fatalf("bpm %v: %v", bpm, err)
		}
		if math.Abs(got.BPM-bpm) > 3 {
			t.Fatalf("estimated %v want %v", got.BPM, bpm)
		}
		if got.Offset < 0 || got.Offset > 60/bpm {
			t.Fatalf("offset %v outside first beat", got.Offset)
		}
	}
}

func TestZeroValueEstimatorUsesDefaults(t *testing.T) {
	var est Autocorrelation
	got, err := est.Estimate(context.Background(), clickTrack(120, 44100, 12), 44100)
	if err != nil {
		t.Fatalf("zero value estimator: %v", err)
	}
	if math.Abs(got.BPM-120) > 3 {
		t.Fatalf("estimated %v want 120", got.BPM)
	}

	inverted := Autocorrelation{MinBPM: 180, MaxBPM: 90}
	if _, err := inverted.Estimate(context.Background(), clickTrack(120, 44100, 12), 44100); !errors.Is(err, ErrNoBeat) {
		t.Fatalf("expected ErrNoBeat for an empty range, got %v", err)
	}
}

func TestEstimateFailures(t *testing.T) {
	est := NewAutocorrelation()
	if _, err := est.Estimate(context.Background(), make([]float32, 1000), 44100); !errors.Is(err, ErrTooShort) {
		t.Fatalf("short buffer: got %v", err)
	}
	if _, err := est.Estimate(context.Background(), make([]float32, 44100*10), 44100); !errors.Is(err, ErrNoBeat) {
		t.Fatalf("silence: got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := est.Estimate(ctx, clickTrack(120, 44100, 10), 44100); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled: got %v", err)
	}
}

func TestInterval(t *testing.T) {
	cases := map[float64]time.Duration{
		120:        500 * time.Millisecond,
		60:         time.Second,
		0:          DefaultInterval,
		-5:         DefaultInterval,
		math.NaN(): DefaultInterval,
	}
	for bpm, want := range cases {
		if got := Interval(bpm); got != want {
			t.Fatalf("Interval(%v)=%v want=%v", bpm, got, want)
		}
	}
	if (Tempo{BPM: 240}).Interval() != 250*time.Millisecond {
		t.Fatalf("tempo interval mismatch")
	}
}
