//go:build sdl

package render

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

// sdlCanvas mirrors the analyser canvas: translucent spectrum bars with a
// red-to-green gradient and the time-domain waveform drawn over them.
type sdlCanvas struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	width    int32
	height   int32
}

func newCanvas(width, height int) (canvas, error) {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, err
	}
	window, err := sdl.CreateWindow("diggers",
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(width), int32(height), sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		_ = window.Destroy()
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	_ = renderer.SetDrawBlendMode(sdl.BLENDMODE_BLEND)
	return &sdlCanvas{window: window, renderer: renderer, width: int32(width), height: int32(height)}, nil
}

// SupportsWindow reports whether the SDL canvas was compiled in.
func SupportsWindow() bool { return true }

func (c *sdlCanvas) Draw(v View) error {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if _, ok := event.(*sdl.QuitEvent); ok {
			return ErrRendererQuit
		}
	}

	_ = c.renderer.SetDrawColor(0, 0, 0, 255)
	_ = c.renderer.Clear()

	if n := int32(len(v.Smoothed)); n > 0 {
		const margin = 5
		xRatio := c.width / n
		scale := float64(c.height) / 256
		for i, bin := range v.Smoothed {
			h := int32(clampFloat(bin, 0, 255) * scale)
			top := c.height - h
			for y := top; y < c.height; y++ {
				rel := float64(c.height-y) / float64(c.height)
				r, g := uint8(0), uint8(127)
				if rel > 0.4 {
					r, g = uint8(127*(rel-0.4)/0.6), uint8(127*(1-(rel-0.4)/0.6))
				}
				_ = c.renderer.SetDrawColor(r, g, 0, 60)
				_ = c.renderer.DrawLine(int32(i)*xRatio+margin, y, int32(i+1)*xRatio-1, y)
			}
		}
	}

	if n := len(v.Time); n > 1 {
		_ = c.renderer.SetDrawColor(127, 0, 0, 90)
		scale := float64(c.height) / 256
		prevX, prevY := int32(0), c.height/2
		for i, s := range v.Time {
			x := int32(i) * c.width / int32(n)
			y := int32(float64(255-int(s)) * scale)
			_ = c.renderer.DrawLine(prevX, prevY, x, y)
			prevX, prevY = x, y
		}
	}

	c.renderer.Present()
	return nil
}

func (c *sdlCanvas) Close() error {
	if c.renderer != nil {
		_ = c.renderer.Destroy()
	}
	if c.window != nil {
		_ = c.window.Destroy()
	}
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	return nil
}
