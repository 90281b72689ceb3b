// Package tui renders the pendulum as plain ASCII frames with ANSI cursor
// control. It needs no terminal setup, so it works over pipes and from
// loops that only observe snapshots.
package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/san-kum/dpend/internal/pendulum"
	"github.com/san-kum/dpend/internal/sim"
	"github.com/san-kum/dpend/internal/viz"
)

const (
	cols = 70
	rows = 22

	trailLength = 50

	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"

	// Terminal cells are about twice as tall as they are wide.
	cellAspect = 2.0
)

type cellPos struct{ x, y int }

// LiveRenderer is a sim.Observer that redraws at most frameRate times per
// second, whatever rate the snapshots arrive at.
type LiveRenderer struct {
	out    io.Writer
	title  string
	period time.Duration
	now    func() time.Time
	last   time.Time

	grid  [rows][cols]byte
	trail []cellPos
}

func NewLiveRenderer(out io.Writer, title string, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{
		out:    out,
		title:  title,
		period: time.Second / time.Duration(frameRate),
		now:    time.Now,
		trail:  make([]cellPos, 0, trailLength+1),
	}
}

func (r *LiveRenderer) OnStep(s sim.Snapshot) {
	now := r.now()
	if !r.last.IsZero() && now.Sub(r.last) < r.period {
		return
	}
	r.last = now

	r.draw(s.State)
	io.WriteString(r.out, r.frame(s))
}

func (r *LiveRenderer) plot(p cellPos, c byte) {
	if p.x >= 0 && p.x < cols && p.y >= 0 && p.y < rows {
		r.grid[p.y][p.x] = c
	}
}

// draw lays the links out in row units and stretches x by the cell
// aspect so both arms keep the same visual length.
func (r *LiveRenderer) draw(x pendulum.State) {
	for y := range r.grid {
		for i := range r.grid[y] {
			r.grid[y][i] = ' '
		}
	}

	arm := float64(rows-2) / 4
	f := pendulum.Layout(x, pendulum.Point{Y: float64(rows)/2 - arm}, arm)
	toCell := func(p pendulum.Point) cellPos {
		return cellPos{cols/2 + int(math.Round(p.X*cellAspect)), int(math.Round(p.Y))}
	}
	pivot, bob1, bob2 := toCell(f.Pivot), toCell(f.Bob1), toCell(f.Bob2)

	r.trail = append(r.trail, bob2)
	if len(r.trail) > trailLength {
		r.trail = r.trail[1:]
	}
	for _, p := range r.trail {
		r.plot(p, '.')
	}

	link := func(a, b cellPos) {
		viz.Line(a.x, a.y, b.x, b.y, func(x, y int) { r.plot(cellPos{x, y}, '|') })
	}
	link(pivot, bob1)
	link(bob1, bob2)

	r.plot(pivot, '+')
	r.plot(bob1, 'o')
	r.plot(bob2, 'O')
}

func (r *LiveRenderer) frame(s sim.Snapshot) string {
	rule := "  " + strings.Repeat("-", cols) + "\n"

	var sb strings.Builder
	sb.WriteString(clearScreen)
	fmt.Fprintf(&sb, "  %s  t=%.2fs  step=%d\n", r.title, s.Time, s.Step)
	sb.WriteString(rule)
	for y := range r.grid {
		sb.WriteString("  ")
		sb.Write(r.grid[y][:])
		sb.WriteByte('\n')
	}
	sb.WriteString(rule)
	fmt.Fprintf(&sb, "  phi=%.3f psi=%.3f phi'=%.3f psi'=%.3f dt=%.4f\n",
		s.State.Phi, s.State.Psi, s.State.PhiDot, s.State.PsiDot, s.Dt)
	return sb.String()
}

func (r *LiveRenderer) Start() { io.WriteString(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { io.WriteString(r.out, showCursor) }
