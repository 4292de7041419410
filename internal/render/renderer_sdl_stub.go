//go:build !sdl

package render

import "errors"

func newCanvas(width, height int) (canvas, error) {
	return nil, errors.New("SDL backend not enabled; rebuild with -tags sdl")
}

// SupportsWindow reports whether the SDL canvas was compiled in.
func SupportsWindow() bool { return false }
