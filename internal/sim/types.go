package sim

import (
	"errors"

	"github.com/san-kum/dpend/internal/pendulum"
)

var (
	ErrNegativeDuration = errors.New("sim: duration must not be negative")
	ErrNegativeSteps    = errors.New("sim: max steps must not be negative")
	ErrUnbounded        = errors.New("sim: run has no duration, step limit or finite clock")
	ErrNotConfigured    = errors.New("sim: no stepper configured")
)

// Snapshot is one published tick. It is passed by value so readers never
// see a half-written state.
type Snapshot struct {
	State pendulum.State `json:"state"`
	Time  float64        `json:"time"`
	Dt    float64        `json:"dt"`
	Step  int            `json:"step"`
}

type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Snapshot)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) OnStep(s Snapshot) { f(s) }

// Config bounds a run. With both fields zero the clock must be finite.
type Config struct {
	Duration float64
	MaxSteps int
}

func DefaultConfig() Config {
	return Config{Duration: 10.0}
}

type Result struct {
	States      []pendulum.State
	Times       []float64
	Dts         []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
}

// Final returns the last recorded state.
func (r *Result) Final() pendulum.State {
	if len(r.States) == 0 {
		return pendulum.State{}
	}
	return r.States[len(r.States)-1]
}
