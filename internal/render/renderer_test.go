package render

import (
	"strings"
	"testing"
)

func TestRenderDimensions(t *testing.T) {
	r, err := New(60, 20, false, false)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	frame, err := r.Render(View{
		Fellows:  make([]Fellow, 4),
		Smoothed: make([]float64, 32),
		Time:     make([]byte, 1024),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(frame.Lines) != 20 {
		t.Fatalf("lines=%d want=20", len(frame.Lines))
	}
	for i, line := range frame.Lines {
		if n := len([]rune(line)); n != 60 {
			t.Fatalf("line %d width=%d want=60", i, n)
		}
	}
}

func TestRenderRejectsBadDimensions(t *testing.T) {
	if _, err := New(0, 10, false, false); err == nil {
		t.Fatalf("expected error for zero width")
	}
}

func TestWindowUnavailableWithoutTag(t *testing.T) {
	if SupportsWindow() {
		t.Skip("built with sdl")
	}
	if _, err := New(10, 10, false, true); err == nil {
		t.Fatalf("expected window backend error")
	}
}

func TestRenderBarsScaleWithSmoothedBins(t *testing.T) {
	r, _ := New(32, 17, false, false)
	bins := make([]float64, 4)
	bins[1] = 255
	frame, _ := r.Render(View{Smoothed: bins})
	// 17 rows minus 7 lineup rows leaves 6 bar rows.
	full := 0
	for _, line := range frame.Lines[:6] {
		if strings.ContainsRune(line, '█') {
			full++
		}
	}
	if full != 6 {
		t.Fatalf("bar spans %d rows want 6", full)
	}
	if strings.ContainsRune(frame.Lines[0][:8], '█') {
		t.Fatalf("silent bin drew a bar")
	}
}

func TestDiggingLiftsSprites(t *testing.T) {
	r, _ := New(20, 10, false, false)
	find := func(v View) int {
		frame, _ := r.Render(v)
		for i, line := range frame.Lines {
			if strings.Contains(line, "o_") {
				return i
			}
		}
		return -1
	}
	rest := find(View{Fellows: []Fellow{{Digging: true}}, MaxAmp: 30, DigAmp: 30, DigPhase: 0})
	peak := find(View{Fellows: []Fellow{{Digging: true}}, MaxAmp: 30, DigAmp: 30, DigPhase: 0.5})
	if rest < 0 || peak < 0 {
		t.Fatalf("digging sprite not drawn")
	}
	if peak >= rest {
		t.Fatalf("expected lift at mid beat: rest row %d, peak row %d", rest, peak)
	}
}

func TestMessageIsDrawn(t *testing.T) {
	r, _ := New(40, 12, false, false)
	frame, _ := r.Render(View{Message: "click to start again"})
	if !strings.Contains(strings.Join(frame.Lines, "\n"), "click") {
		t.Fatalf("message missing")
	}
}

func TestBuildStatus(t *testing.T) {
	got := buildStatus(View{
		Playing:  true,
		BPM:      120,
		Values:   map[string]float64{"midFreqSum": 0.5, "a": 0.25},
		AmpLabel: "22.00vmin",
		Level:    2,
	})
	want := "playing | bpm 120.0 | a 0.250 | midFreqSum 0.500 | dig 22.00vmin L2"
	if got != want {
		t.Fatalf("status=%q want=%q", got, want)
	}
}

func TestStatusBarPlain(t *testing.T) {
	if got := StatusBar("abc", 5, false, false); got != "abc  " {
		t.Fatalf("padded=%q", got)
	}
	if got := StatusBar("abcdef", 4, true, false); got != "abcd" {
		t.Fatalf("truncated=%q", got)
	}
}
