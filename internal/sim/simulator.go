package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/dpend/internal/pendulum"
)

type finiteClock interface {
	Remaining() int
}

type stepCounter interface {
	StepsFor(duration float64) int
}

type Simulator struct {
	stepper   *pendulum.Stepper
	metrics   []Metric
	observers []Observer
}

func New(stepper *pendulum.Stepper) *Simulator {
	return &Simulator{
		stepper:   stepper,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Stepper() *pendulum.Stepper { return s.stepper }

// Run steps x0 with dt values drawn from clock until the clock runs out,
// MaxSteps ticks have been taken or Duration seconds have been simulated.
func (s *Simulator) Run(ctx context.Context, x0 pendulum.State, clock Clock, cfg Config) (*Result, error) {
	if err := s.validateConfig(clock, cfg); err != nil {
		return nil, err
	}

	limit := cfg.MaxSteps
	if limit == 0 {
		if sc, ok := clock.(stepCounter); ok && cfg.Duration > 0 {
			limit = sc.StepsFor(cfg.Duration)
		}
	}

	capacity := limit
	if capacity == 0 {
		if fc, ok := clock.(finiteClock); ok {
			capacity = fc.Remaining()
		}
	}

	result := &Result{
		States:  make([]pendulum.State, 0, capacity+1),
		Times:   make([]float64, 0, capacity+1),
		Dts:     make([]float64, 0, capacity),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0
	t := 0.0
	result.States = append(result.States, x)
	result.Times = append(result.Times, t)

	initialEnergy := pendulum.Energy(x, s.stepper.Constants)

	for {
		if limit > 0 && result.StepsTaken >= limit {
			break
		}
		if limit == 0 && cfg.Duration > 0 && t >= cfg.Duration {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		dt, ok := clock.Next()
		if !ok {
			break
		}

		snap := Snapshot{State: x, Time: t, Dt: dt, Step: result.StepsTaken}
		for _, m := range s.metrics {
			m.Observe(snap)
		}
		for _, obs := range s.observers {
			obs.OnStep(snap)
		}

		x = s.stepper.Step(x, dt)
		t += dt
		result.StepsTaken++

		result.States = append(result.States, x)
		result.Times = append(result.Times, t)
		result.Dts = append(result.Dts, dt)
	}

	// Metrics see every recorded state, the final one included.
	final := Snapshot{State: x, Time: t, Step: result.StepsTaken}
	if n := len(result.Dts); n > 0 {
		final.Dt = result.Dts[n-1]
	}
	for _, m := range s.metrics {
		m.Observe(final)
	}

	finalEnergy := pendulum.Energy(x, s.stepper.Constants)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) validateConfig(clock Clock, cfg Config) error {
	if s.stepper == nil {
		return ErrNotConfigured
	}
	if err := s.stepper.Constants.Validate(); err != nil {
		return fmt.Errorf("invalid constants: %w", err)
	}
	if err := pendulum.ValidateDamping(s.stepper.Damping); err != nil {
		return fmt.Errorf("invalid damping: %w", err)
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("duration %f: %w", cfg.Duration, ErrNegativeDuration)
	}
	if cfg.MaxSteps < 0 {
		return fmt.Errorf("max steps %d: %w", cfg.MaxSteps, ErrNegativeSteps)
	}
	if fc, ok := clock.(*FixedClock); ok && cfg.MaxSteps == 0 && !(fc.Dt > 0) {
		// Simulated time never advances, so Duration cannot end the run.
		return fmt.Errorf("dt %v needs a step limit: %w", fc.Dt, ErrUnbounded)
	}
	if cfg.Duration == 0 && cfg.MaxSteps == 0 {
		if _, ok := clock.(finiteClock); !ok {
			return ErrUnbounded
		}
	}
	return nil
}
