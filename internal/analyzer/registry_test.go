package analyzer

import (
	"errors"
	"testing"
)

type countingClassifier struct {
	name  string
	calls *[]string
	value float64
}

func (c *countingClassifier) Name() string { return c.name }
func (c *countingClassifier) Reset()       { c.value = 0 }
func (c *countingClassifier) Value() float64 {
	return c.value
}
func (c *countingClassifier) Update(_ Frame, smoothed []float64) float64 {
	*c.calls = append(*c.calls, c.name)
	c.value = smoothed[0]
	return c.value
}

func TestRegistryUpdatesInOrder(t *testing.T) {
	var calls []string
	r := NewRegistry(2)
	for _, name := range []string{"b", "a", "c"} {
		if err := r.Register(&countingClassifier{name: name, calls: &calls}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	if err := r.Update(Frame{}, []float64{0.5, 0}); err != nil {
		t.Fatalf("update: %v", err)
	}
	want := []string{"b", "a", "c"}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call order=%v want=%v", calls, want)
		}
	}
	values := r.Values()
	if len(values) != 3 || values["a"] != 0.5 {
		t.Fatalf("values=%v", values)
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	var calls []string
	r := NewRegistry(2)
	_ = r.Register(&countingClassifier{name: "x", calls: &calls})
	if err := r.Register(&countingClassifier{name: "x", calls: &calls}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("duplicate was registered")
	}
}

func TestRegistryRejectsMismatchedBins(t *testing.T) {
	r := NewRegistry(32)
	c, _ := NewBandEnergy(BandEnergyConfig{Name: "mid", Bins: 16, Start: 5, End: 10, Window: 20})
	if err := r.Register(c); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRegistryRejectsWrongSmoothedWidth(t *testing.T) {
	r := NewRegistry(4)
	if err := r.Update(Frame{}, make([]float64, 3)); !errors.Is(err, ErrFrameSize) {
		t.Fatalf("expected ErrFrameSize, got %v", err)
	}
}

func TestRegistryValueAndReset(t *testing.T) {
	r := NewRegistry(32)
	c, _ := NewBandEnergy(BandEnergyConfig{Name: "mid", Bins: 32, Start: 5, End: 10, Window: 1})
	if err := r.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := r.Value("mid"); ok {
		t.Fatalf("value published before first frame")
	}
	_ = r.Update(Frame{}, constant(32, 64))
	if v, ok := r.Value("mid"); !ok || v != 0.25 {
		t.Fatalf("mid=%f ok=%v want 0.25", v, ok)
	}
	r.Reset()
	if _, ok := r.Value("mid"); ok {
		t.Fatalf("value survived reset")
	}
	if c.Value() != 0 {
		t.Fatalf("classifier not reset")
	}
}
