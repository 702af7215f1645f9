package viz

import (
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a character grid where every cell holds 2x4 braille dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set sets a dot at (x, y) in sub-pixel coordinates; the canvas is
// (Width*2) x (Height*4) dots with y growing downwards.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}

	col := x / 2
	row := y / 4
	if col >= c.Width || row >= c.Height {
		return
	}

	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = 0x2800
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Trace scales the curve (xs[k], ys[k]) to fill the canvas and connects
// consecutive points.
func (c *Canvas) Trace(xs, ys []float64) {
	n := min(len(xs), len(ys))
	if n == 0 {
		return
	}

	minX, maxX := bounds(xs[:n])
	minY, maxY := bounds(ys[:n])
	w, h := c.Width*2-1, c.Height*4-1

	px := func(v float64) int { return int((v - minX) / (maxX - minX) * float64(w)) }
	py := func(v float64) int { return h - int((v-minY)/(maxY-minY)*float64(h)) }

	x0, y0 := px(xs[0]), py(ys[0])
	c.Set(x0, y0)
	for k := 1; k < n; k++ {
		x1, y1 := px(xs[k]), py(ys[k])
		if x1 != x0 || y1 != y0 {
			c.DrawLine(x0, y0, x1, y1)
		}
		x0, y0 = x1, y1
	}
}

// bounds returns the range of vs, widened to a non-empty interval.
func bounds(vs []float64) (lo, hi float64) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
