package sim

import (
	"context"
	"time"

	"github.com/san-kum/dpend/internal/pendulum"
)

// DefaultMinInterval caps the realtime loop at 1000 iterations per second.
const DefaultMinInterval = time.Second / 1000

// Loop drives the stepper in real time. Each iteration waits on a ticker,
// takes the elapsed time from the clock, steps once and publishes the new
// state.
type Loop struct {
	Stepper     *pendulum.Stepper
	Clock       Clock
	MinInterval time.Duration
	Latest      *Latest

	observers []Observer
}

func NewLoop(stepper *pendulum.Stepper) *Loop {
	return &Loop{
		Stepper:     stepper,
		MinInterval: DefaultMinInterval,
		Latest:      &Latest{},
	}
}

func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

// Run blocks until ctx is done or the clock is exhausted and returns the
// last state.
func (l *Loop) Run(ctx context.Context, x0 pendulum.State) (pendulum.State, error) {
	if l.Stepper == nil {
		return x0, ErrNotConfigured
	}
	clock := l.Clock
	if clock == nil {
		clock = NewWallClock()
	}
	interval := l.MinInterval
	if interval <= 0 {
		interval = DefaultMinInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	x := x0
	t := 0.0
	step := 0
	l.publish(Snapshot{State: x})

	for {
		select {
		case <-ctx.Done():
			return x, ctx.Err()
		case <-ticker.C:
		}

		dt, ok := clock.Next()
		if !ok {
			return x, nil
		}

		x = l.Stepper.Step(x, dt)
		t += dt
		step++
		l.publish(Snapshot{State: x, Time: t, Dt: dt, Step: step})
	}
}

func (l *Loop) publish(s Snapshot) {
	if l.Latest != nil {
		l.Latest.Store(s)
	}
	for _, obs := range l.observers {
		obs.OnStep(s)
	}
}
