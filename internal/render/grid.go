package render

import "strings"

type cell struct {
	ch    rune
	color int
}

// grid is a character framebuffer with one 256-color foreground per cell.
type grid struct {
	width  int
	height int
	cells  []cell
}

func newGrid(width, height int) *grid {
	g := &grid{width: width, height: height, cells: make([]cell, width*height)}
	for i := range g.cells {
		g.cells[i] = cell{ch: ' ', color: -1}
	}
	return g
}

func (g *grid) set(row, col int, ch rune, color int) {
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		return
	}
	g.cells[row*g.width+col] = cell{ch: ch, color: color}
}

func (g *grid) text(row, col int, s string, color int) {
	for _, ch := range s {
		if ch != ' ' {
			g.set(row, col, ch, color)
		}
		col++
	}
}

func (g *grid) lines(useANSI bool) []string {
	out := make([]string, g.height)
	for y := 0; y < g.height; y++ {
		var b strings.Builder
		b.Grow(g.width * 4)
		last := -1
		for _, c := range g.cells[y*g.width : (y+1)*g.width] {
			if useANSI && c.color >= 0 && c.color != last {
				b.WriteString(colorCode(c.color))
				last = c.color
			}
			b.WriteRune(c.ch)
		}
		if useANSI && last >= 0 {
			b.WriteString(resetANSI)
		}
		out[y] = b.String()
	}
	return out
}
