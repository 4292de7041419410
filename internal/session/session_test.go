package session

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/guidoenr/diggers/internal/analyzer"
	"github.com/guidoenr/diggers/internal/tempo"
)

func frame(fftSize int, freq byte) analyzer.Frame {
	f := analyzer.Frame{
		Time: make([]byte, fftSize),
		Freq: make([]byte, fftSize/2),
	}
	for i := range f.Freq {
		f.Freq[i] = freq
	}
	return f
}

func TestAlphaReachesSmoother(t *testing.T) {
	cases := []struct {
		alpha *float64
		want  float64
	}{
		{nil, 200},
		{floatPtr(1), 200},
		{floatPtr(0.5), 100},
		{floatPtr(0), 0},
	}
	for _, tc := range cases {
		s, err := New(Config{Alpha: tc.alpha})
		if err != nil {
			t.Fatalf("new session: %v", err)
		}
		s.Start()
		if err := s.DeliverFrame(frame(1024, 200)); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		if got := s.Smoothed()[0]; math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("alpha %v: smoothed[0]=%f want %f", s.smoother.Alpha(), got, tc.want)
		}
	}
}

func TestInvalidAlphaRejected(t *testing.T) {
	if _, err := New(Config{Alpha: floatPtr(1.5)}); !errors.Is(err, analyzer.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestDeliverFrameRequiresStart(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeliverFrame(frame(1024, 0)); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestDeliverFrameRejectsMalformedFrames(t *testing.T) {
	s, _ := New(Config{})
	s.Start()
	bad := []analyzer.Frame{
		{Time: make([]byte, 1023), Freq: make([]byte, 512)},
		{Time: make([]byte, 1024), Freq: make([]byte, 256)},
		{},
	}
	for i, f := range bad {
		if err := s.DeliverFrame(f); !errors.Is(err, analyzer.ErrFrameSize) {
			t.Fatalf("case %d: expected ErrFrameSize, got %v", i, err)
		}
	}
	if s.Frames() != 0 {
		t.Fatalf("malformed frames counted")
	}
}

func TestPipelinePublishesClassifierOutputs(t *testing.T) {
	s, _ := New(Config{})
	s.Start()
	for i := 0; i < 20; i++ {
		if err := s.DeliverFrame(frame(1024, 128)); err != nil {
			t.Fatalf("deliver: %v", err)
		}
	}
	v, ok := s.Value("midFreqSum")
	if !ok || v != 0.5 {
		t.Fatalf("midFreqSum=%f ok=%v want 0.5", v, ok)
	}
	if got := s.Values()["midFreqSum"]; got != v {
		t.Fatalf("values map=%f", got)
	}
	for i, b := range s.Smoothed() {
		if b != 128 {
			t.Fatalf("smoothed[%d]=%f", i, b)
		}
	}
}

func TestLevelOutputWithoutInputIsMinimum(t *testing.T) {
	s, _ := New(Config{})
	if got := s.LevelOutput(); got != "14.00vmin" {
		t.Fatalf("stopped output=%q", got)
	}
	s.Start()
	if got := s.LevelOutput(); got != "14.00vmin" {
		t.Fatalf("no-frame output=%q", got)
	}
}

func TestLevelOutputFollowsInput(t *testing.T) {
	s, _ := New(Config{})
	s.Start()
	// 0.55*256 puts the mid band at the top of the mapper's range.
	for i := 0; i < 20; i++ {
		_ = s.DeliverFrame(frame(1024, 141))
	}
	outputs := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		outputs = append(outputs, s.LevelOutput())
	}
	if outputs[0] != "14.00vmin" {
		t.Fatalf("first output=%q, countdown should hold level 0", outputs[0])
	}
	if last := outputs[len(outputs)-1]; last != "26.00vmin" {
		t.Fatalf("outputs=%v, expected to reach top level", outputs)
	}
}

func TestStopResetsEverything(t *testing.T) {
	s, _ := New(Config{})
	s.Start()
	for i := 0; i < 20; i++ {
		_ = s.DeliverFrame(frame(1024, 141))
		s.LevelOutput()
	}
	if s.Level() == 0 {
		t.Fatalf("expected level to rise before stop")
	}
	s.Stop()
	if s.Active() || s.Level() != 0 || len(s.Values()) != 0 || s.Frames() != 0 {
		t.Fatalf("stop left state: active=%v level=%d values=%v", s.Active(), s.Level(), s.Values())
	}
	for _, b := range s.Smoothed() {
		if b != 0 {
			t.Fatalf("smoothed state survived stop")
		}
	}
	s.Start()
	_ = s.DeliverFrame(frame(1024, 128))
	if v, _ := s.Value("midFreqSum"); math.Abs(v-0.5/20) > 1e-12 {
		t.Fatalf("windows leaked across sessions: %f", v)
	}
}

func TestDuplicateClassifiersRejected(t *testing.T) {
	a, _ := DefaultClassifiers(1024)
	b, _ := DefaultClassifiers(1024)
	if _, err := New(Config{Classifiers: append(a, b...)}); !errors.Is(err, analyzer.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestZoneRatioAlongsideBandEnergy(t *testing.T) {
	cs, _ := DefaultClassifiers(1024)
	ratio, err := analyzer.NewZoneRatio(analyzer.ZoneRatioConfig{Name: "midRatio", Bins: 32})
	if err != nil {
		t.Fatalf("zone ratio: %v", err)
	}
	s, err := New(Config{Classifiers: append(cs, ratio)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	s.Start()
	_ = s.DeliverFrame(frame(1024, 100))
	v, ok := s.Value("midRatio")
	if !ok || v != 10.0/32 {
		t.Fatalf("midRatio=%f ok=%v", v, ok)
	}
}

func TestDigInterval(t *testing.T) {
	s, _ := New(Config{})
	if s.DigInterval() != time.Second {
		t.Fatalf("default interval=%v", s.DigInterval())
	}
	s.SetTempo(tempo.Tempo{BPM: 120})
	if s.DigInterval() != 500*time.Millisecond {
		t.Fatalf("120 bpm interval=%v", s.DigInterval())
	}
}

func TestInvalidFFTSize(t *testing.T) {
	if _, err := New(Config{FFTSize: 100}); !errors.Is(err, analyzer.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
