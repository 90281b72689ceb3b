package viz

import (
	"strings"
)

// Dot bits within one braille cell, indexed [row][col]. Rows 0-2 use the
// original six-dot pattern; row 3 holds dots 7 and 8.
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is Width x Height terminal cells, addressed in sub-pixels: the
// drawable area is (Width*2) x (Height*4) with y growing downwards.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	grid := make([][]rune, h)
	for row := range grid {
		grid[row] = make([]rune, w)
	}
	c := &Canvas{Width: w, Height: h, Grid: grid}
	c.Clear()
	return c
}

// PixelSize returns the drawable area in sub-pixels.
func (c *Canvas) PixelSize() (w, h int) {
	return c.Width * 2, c.Height * 4
}

func (c *Canvas) cell(x, y int) (row, col int, bit rune, ok bool) {
	w, h := c.PixelSize()
	if x < 0 || y < 0 || x >= w || y >= h {
		return 0, 0, 0, false
	}
	return y / 4, x / 2, dotBits[y%4][x%2], true
}

func (c *Canvas) Set(x, y int) {
	if row, col, bit, ok := c.cell(x, y); ok {
		c.Grid[row][col] |= bit
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	row, col, bit, ok := c.cell(x, y)
	return ok && c.Grid[row][col]&bit != 0
}

func (c *Canvas) Clear() {
	for _, cells := range c.Grid {
		for col := range cells {
			cells[col] = brailleBlank
		}
	}
}

func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	Line(x0, y0, x1, y1, c.Set)
}

// Line calls plot for every point of the segment from (x0, y0) to
// (x1, y1), both ends included, stepping one unit along the longer axis.
func Line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx, dy := x1-x0, y1-y0
	n := max(dx, -dx, dy, -dy)
	if n == 0 {
		plot(x0, y0)
		return
	}
	for i := 0; i <= n; i++ {
		plot(x0+divRound(dx*i, n), y0+divRound(dy*i, n))
	}
}

// divRound divides with rounding half away from zero; n is positive.
func divRound(a, n int) int {
	if a < 0 {
		return -((-a + n/2) / n)
	}
	return (a + n/2) / n
}

// Disc fills a circle of radius r around (cx, cy).
func (c *Canvas) Disc(cx, cy, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(cx+dx, cy+dy)
			}
		}
	}
}

func (c *Canvas) String() string {
	var sb strings.Builder
	for _, cells := range c.Grid {
		sb.WriteString(string(cells))
		sb.WriteByte('\n')
	}
	return sb.String()
}
