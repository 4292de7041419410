package render

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrRendererQuit is returned by a graphical backend when its window was closed.
var ErrRendererQuit = errors.New("renderer closed")

// Fellow is the visual state of one dancer in the lineup.
type Fellow struct {
	Digging  bool
	Flipping bool
	Flip     float64 // progress through the flip, 0..1
}

// View is everything the presentation layer needs for one frame.
type View struct {
	Fellows  []Fellow
	DigAmp   float64 // current dig amplitude in output units
	MaxAmp   float64 // amplitude drawn as the full lineup height
	DigPhase float64 // position within the current dig beat, 0..1
	Smoothed []float64
	Time     []byte
	Values   map[string]float64
	AmpLabel string
	BPM      float64
	Level    int
	Playing  bool
	Message  string
	Source   string
	FPS      float64
}

// Frame contains the rendered ASCII lines and status text.
type Frame struct {
	Lines  []string
	Status string
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

var (
	spriteStand = [3]string{" o ", "/|\\", "/ \\"}
	spriteDig   = [3]string{" o_", "/|/", "/ \\"}
	spriteFlip  = [3]string{"\\ /", "\\|/", " o "}
	spriteSide  = [3]string{" _o", "-- ", " ) "}
)

const (
	spriteWidth  = 3
	spriteHeight = 3
	lineupGap    = 3
)

// Renderer draws views as ASCII frames and optionally mirrors the canvas into a window.
type Renderer struct {
	width   int
	height  int
	useANSI bool
	canvas  canvas
}

// canvas is a graphical backend drawing the spectrum and waveform.
type canvas interface {
	Draw(v View) error
	Close() error
}

// New creates a Renderer. window requests the SDL canvas, which is only available in
// builds tagged sdl.
func New(width, height int, useANSI, window bool) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: width=%d height=%d", width, height)
	}
	r := &Renderer{width: width, height: height, useANSI: useANSI}
	if window {
		c, err := newCanvas(width*8, height*16)
		if err != nil {
			return nil, fmt.Errorf("window backend: %w", err)
		}
		r.canvas = c
	}
	return r, nil
}

// Resize updates the framebuffer dimensions.
func (r *Renderer) Resize(width, height int) {
	if width > 0 {
		r.width = width
	}
	if height > 0 {
		r.height = height
	}
}

// Size returns the framebuffer dimensions.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Close releases the graphical backend.
func (r *Renderer) Close() error {
	if r.canvas == nil {
		return nil
	}
	return r.canvas.Close()
}

// Render draws v. The layout is spectrum bars on top, the waveform below them and
// the lineup at the bottom.
func (r *Renderer) Render(v View) (Frame, error) {
	if r.width <= 0 || r.height <= 0 {
		return Frame{}, nil
	}
	grid := newGrid(r.width, r.height)

	lineupRows := spriteHeight + 4
	if lineupRows > r.height {
		lineupRows = r.height
	}
	upper := r.height - lineupRows
	barRows := upper * 3 / 5
	waveRows := upper - barRows

	r.drawBars(grid, v.Smoothed, 0, barRows)
	r.drawWave(grid, v.Time, barRows, waveRows)
	r.drawLineup(grid, v, upper, lineupRows)
	if v.Message != "" {
		grid.text(r.height/2, (r.width-len(v.Message))/2, v.Message, 15)
	}

	frame := Frame{
		Lines:  grid.lines(r.useANSI),
		Status: buildStatus(v),
	}
	if r.canvas != nil {
		if err := r.canvas.Draw(v); err != nil {
			return frame, err
		}
	}
	return frame, nil
}

func (r *Renderer) drawBars(g *grid, bins []float64, top, rows int) {
	if rows <= 0 || len(bins) == 0 {
		return
	}
	colWidth := float64(r.width) / float64(len(bins))
	for i, v := range bins {
		h := int(math.Round(clampFloat(v, 0, 255) / 256 * float64(rows)))
		x0 := int(float64(i)*colWidth) + 1
		x1 := int(float64(i+1) * colWidth)
		for y := 0; y < h; y++ {
			row := top + rows - 1 - y
			color := barColor(float64(y+1) / float64(rows))
			for x := x0; x < x1; x++ {
				g.set(row, x, '█', color)
			}
		}
	}
}

func (r *Renderer) drawWave(g *grid, samples []byte, top, rows int) {
	if rows <= 0 || len(samples) == 0 {
		return
	}
	for x := 0; x < r.width; x++ {
		v := samples[x*len(samples)/r.width]
		row := top + int(float64(255-int(v))/256*float64(rows))
		g.set(row, x, '•', 124)
	}
}

func (r *Renderer) drawLineup(g *grid, v View, top, rows int) {
	if len(v.Fellows) == 0 || rows < spriteHeight {
		return
	}
	span := len(v.Fellows)*(spriteWidth+lineupGap) - lineupGap
	left := (r.width - span) / 2
	if left < 0 {
		left = 0
	}
	travel := rows - spriteHeight
	lift := 0
	if v.MaxAmp > 0 {
		depth := clampFloat(v.DigAmp/v.MaxAmp, 0, 1) * math.Abs(math.Sin(v.DigPhase*math.Pi))
		lift = int(math.Round(depth * float64(travel)))
	}
	ground := top + rows - 1
	for x := 0; x < r.width; x++ {
		g.set(ground, x, '▁', 94)
	}
	for i, f := range v.Fellows {
		sprite := spriteStand
		offset := 0
		switch {
		case f.Flipping:
			sprite = spriteFlip
			if f.Flip < 0.25 || f.Flip > 0.75 {
				sprite = spriteSide
			}
			offset = int(math.Round(math.Sin(f.Flip*math.Pi) * float64(travel)))
		case f.Digging:
			sprite = spriteDig
			offset = lift
		}
		x := left + i*(spriteWidth+lineupGap)
		y := ground - spriteHeight - offset
		for row, line := range sprite {
			g.text(y+row, x, line, 222)
		}
	}
}

func buildStatus(v View) string {
	var b strings.Builder
	if v.Playing {
		b.WriteString("playing")
	} else {
		b.WriteString("stopped")
	}
	if v.Source != "" {
		b.WriteString(" | ")
		b.WriteString(v.Source)
	}
	if v.BPM > 0 {
		b.WriteString(" | bpm ")
		b.WriteString(strconv.FormatFloat(v.BPM, 'f', 1, 64))
	}
	names := make([]string, 0, len(v.Values))
	for name := range v.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(" | ")
		b.WriteString(name)
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(v.Values[name], 'f', 3, 64))
	}
	if v.AmpLabel != "" {
		b.WriteString(" | dig ")
		b.WriteString(v.AmpLabel)
		b.WriteString(" L")
		b.WriteString(strconv.Itoa(v.Level))
	}
	if v.FPS > 0 {
		b.WriteString(" | ")
		b.WriteString(strconv.FormatFloat(v.FPS, 'f', 0, 64))
		b.WriteString(" fps")
	}
	return b.String()
}

// barColor runs the spectrum gradient from green at the floor to red at the top.
func barColor(height float64) int {
	switch {
	case height > 0.9:
		return 160
	case height > 0.6:
		return 178
	default:
		return 34
	}
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index > 255 {
		index = 255
	}
	return precomputedANSI[index]
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
