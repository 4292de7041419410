package analyzer

import (
	"math"
	"testing"
)

func TestWindowZeroPaddedBeforeWarmup(t *testing.T) {
	w := NewWindow(4)
	w.Push(8)
	if w.Len() != 4 {
		t.Fatalf("len=%d want=4", w.Len())
	}
	if got := w.Average(); got != 2 {
		t.Fatalf("average=%f want=2", got)
	}
}

func TestWindowAverageOfLastPushes(t *testing.T) {
	w := NewWindow(3)
	pushed := []float64{1, 5, 2, 9, 4, 7}
	for i, v := range pushed {
		w.Push(v)
		if w.Len() != 3 {
			t.Fatalf("len=%d after %d pushes", w.Len(), i+1)
		}
		sum := 0.0
		for j := i; j > i-3; j-- {
			if j >= 0 {
				sum += pushed[j]
			}
		}
		if got, want := w.Average(), sum/3; math.Abs(got-want) > 1e-12 {
			t.Fatalf("after %d pushes average=%f want=%f", i+1, got, want)
		}
	}
	want := []float64{9, 4, 7}
	got := w.Values()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values=%v want=%v", got, want)
		}
	}
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(2)
	w.Push(3)
	w.Push(5)
	w.Reset()
	if w.Average() != 0 || w.Len() != 2 {
		t.Fatalf("reset window: average=%f len=%d", w.Average(), w.Len())
	}
}

func TestWindowMinimumLength(t *testing.T) {
	if NewWindow(0).Len() != 1 {
		t.Fatalf("expected zero length to be raised to 1")
	}
}
