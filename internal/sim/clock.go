package sim

import (
	"math"
	"time"
)

// Clock supplies the elapsed time for each tick. ok is false once the clock
// has nothing more to give.
type Clock interface {
	Next() (dt float64, ok bool)
}

type FixedClock struct {
	Dt float64
}

func (c *FixedClock) Next() (float64, bool) { return c.Dt, true }

// StepsFor returns how many ticks cover duration.
func (c *FixedClock) StepsFor(duration float64) int {
	if c.Dt <= 0 {
		return 0
	}
	return int(math.Round(duration / c.Dt))
}

// SequenceClock replays recorded tick lengths, for example the dt column of
// a stored live run.
type SequenceClock struct {
	dts []float64
	pos int
}

func NewSequenceClock(dts []float64) *SequenceClock {
	c := make([]float64, len(dts))
	copy(c, dts)
	return &SequenceClock{dts: c}
}

func (c *SequenceClock) Next() (float64, bool) {
	if c.pos >= len(c.dts) {
		return 0, false
	}
	dt := c.dts[c.pos]
	c.pos++
	return dt, true
}

func (c *SequenceClock) Remaining() int { return len(c.dts) - c.pos }

// WallClock measures real elapsed time between calls to Next, starting
// from its construction.
type WallClock struct {
	now  func() time.Time
	last time.Time
}

func NewWallClock() *WallClock {
	return newWallClock(time.Now)
}

func newWallClock(now func() time.Time) *WallClock {
	return &WallClock{now: now, last: now()}
}

func (c *WallClock) Next() (float64, bool) {
	t := c.now()
	dt := t.Sub(c.last).Seconds()
	c.last = t
	return dt, true
}

// Restart discards the time elapsed since the previous tick.
func (c *WallClock) Restart() {
	c.last = c.now()
}
