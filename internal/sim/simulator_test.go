package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dpend/internal/pendulum"
)

func newTestSimulator() *Simulator {
	return New(pendulum.NewStepper(pendulum.NewConstants(9.81, 3.7), pendulum.DefaultDamping))
}

func TestSimulatorRun(t *testing.T) {
	s := newTestSimulator()

	x0 := pendulum.State{Phi: 2.7, Psi: 2.2}
	result, err := s.Run(context.Background(), x0, &FixedClock{Dt: 0.1}, Config{Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}
	if len(result.Dts) != 10 {
		t.Errorf("expected 10 dts, got %d", len(result.Dts))
	}
	if result.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", result.StepsTaken)
	}
	if result.States[0] != x0 {
		t.Errorf("first state should be the initial state, got %+v", result.States[0])
	}
}

func TestSimulatorMatchesDirectStepping(t *testing.T) {
	s := newTestSimulator()
	x0 := pendulum.State{Phi: 2.7, Psi: 2.2}

	result, err := s.Run(context.Background(), x0, &FixedClock{Dt: 0.01}, Config{MaxSteps: 250})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	x := x0
	for i := 0; i < 250; i++ {
		x = s.Stepper().Step(x, 0.01)
	}
	if result.Final() != x {
		t.Errorf("final state %+v, want %+v", result.Final(), x)
	}
}

func TestSimulatorSequenceClock(t *testing.T) {
	s := newTestSimulator()
	dts := []float64{0.01, 0.02, 0, 0.015}

	result, err := s.Run(context.Background(), pendulum.State{Phi: 1}, NewSequenceClock(dts), Config{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != len(dts) {
		t.Fatalf("expected %d steps, got %d", len(dts), result.StepsTaken)
	}
	for i, dt := range dts {
		if result.Dts[i] != dt {
			t.Errorf("dt[%d] = %v, want %v", i, result.Dts[i], dt)
		}
	}
	if want := 0.01 + 0.02 + 0 + 0.015; math.Abs(result.Times[len(result.Times)-1]-want) > 1e-12 {
		t.Errorf("final time %v, want %v", result.Times[len(result.Times)-1], want)
	}
}

func TestSimulatorDeterministic(t *testing.T) {
	dts := make([]float64, 500)
	for i := range dts {
		dts[i] = 0.005 + 0.001*float64(i%7)
	}

	run := func() *Result {
		r, err := newTestSimulator().Run(context.Background(), pendulum.State{Phi: 2.7, Psi: 2.2}, NewSequenceClock(dts), Config{})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return r
	}

	a, b := run(), run()
	for i := range a.States {
		if a.States[i] != b.States[i] {
			t.Fatalf("state %d differs: %+v vs %+v", i, a.States[i], b.States[i])
		}
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		stepper *pendulum.Stepper
		clock   Clock
		cfg     Config
		want    error
	}{
		{"negative duration", pendulum.NewStepper(pendulum.DefaultConstants(), 1), &FixedClock{Dt: 0.1}, Config{Duration: -1}, ErrNegativeDuration},
		{"negative steps", pendulum.NewStepper(pendulum.DefaultConstants(), 1), &FixedClock{Dt: 0.1}, Config{MaxSteps: -1}, ErrNegativeSteps},
		{"unbounded", pendulum.NewStepper(pendulum.DefaultConstants(), 1), &FixedClock{Dt: 0.1}, Config{}, ErrUnbounded},
		{"zero damping", pendulum.NewStepper(pendulum.DefaultConstants(), 0), &FixedClock{Dt: 0.1}, Config{Duration: 1}, pendulum.ErrDampingRange},
		{"zero gravity", pendulum.NewStepper(pendulum.NewConstants(0, 1), 1), &FixedClock{Dt: 0.1}, Config{Duration: 1}, pendulum.ErrNonPositive},
		{"no stepper", nil, &FixedClock{Dt: 0.1}, Config{Duration: 1}, ErrNotConfigured},
		{"zero dt with duration", pendulum.NewStepper(pendulum.DefaultConstants(), 1), &FixedClock{Dt: 0}, Config{Duration: 10}, ErrUnbounded},
		{"negative dt with duration", pendulum.NewStepper(pendulum.DefaultConstants(), 1), &FixedClock{Dt: -0.01}, Config{Duration: 10}, ErrUnbounded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.stepper).Run(context.Background(), pendulum.State{}, tt.clock, tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSimulatorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newTestSimulator().Run(ctx, pendulum.State{Phi: 1}, &FixedClock{Dt: 0.01}, Config{Duration: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.StepsTaken != 0 {
		t.Errorf("expected partial result with no steps, got %+v", result)
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (m *testMetric) Name() string { return "test" }
func (m *testMetric) Observe(s Snapshot) {
	m.count++
	m.sum += s.State.Phi
}
func (m *testMetric) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}
func (m *testMetric) Reset() {
	m.count = 0
	m.sum = 0
}

func TestSimulatorMetricsAndObservers(t *testing.T) {
	s := newTestSimulator()

	metric := &testMetric{}
	s.AddMetric(metric)

	var steps []int
	s.AddObserver(ObserverFunc(func(snap Snapshot) { steps = append(steps, snap.Step) }))

	result, err := s.Run(context.Background(), pendulum.State{Phi: 1}, &FixedClock{Dt: 0.1}, Config{Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 11 {
		t.Errorf("expected 11 observations, got %d", metric.count)
	}
	if len(steps) != 10 || steps[0] != 0 || steps[9] != 9 {
		t.Errorf("unexpected observer steps: %v", steps)
	}
}

func TestEnsemble(t *testing.T) {
	s := newTestSimulator()
	e := NewEnsemble(s, 4, 1e-6, func() Clock { return &FixedClock{Dt: 0.01} })

	results, err := e.Run(context.Background(), pendulum.State{Phi: 2.7, Psi: 2.2}, Config{MaxSteps: 100})
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[0].States[0].Phi != 2.7 {
		t.Errorf("run 0 should start unperturbed, got phi %v", results[0].States[0].Phi)
	}
	if results[1].States[0].Phi == 2.7 {
		t.Error("run 1 should start perturbed")
	}
	for i, r := range results {
		if r.StepsTaken != 100 {
			t.Errorf("run %d took %d steps", i, r.StepsTaken)
		}
	}
}

func TestSimulatorZeroDtWithStepLimit(t *testing.T) {
	s := New(pendulum.NewStepper(pendulum.DefaultConstants(), pendulum.NoDamping))
	x0 := pendulum.State{Phi: 2.7, Psi: 2.2, PhiDot: 0.3, PsiDot: -0.1}

	result, err := s.Run(context.Background(), x0, &FixedClock{Dt: 0}, Config{Duration: 10, MaxSteps: 5})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 5 {
		t.Errorf("expected 5 steps, got %d", result.StepsTaken)
	}
	if result.Final() != x0 {
		t.Errorf("zero dt without damping should leave the state unchanged, got %+v", result.Final())
	}
}

type lastSnapshot struct{ snap Snapshot }

func (m *lastSnapshot) Name() string       { return "last" }
func (m *lastSnapshot) Observe(s Snapshot) { m.snap = s }
func (m *lastSnapshot) Value() float64     { return m.snap.State.Phi }
func (m *lastSnapshot) Reset()             { m.snap = Snapshot{} }

func TestSimulatorMetricsSeeFinalState(t *testing.T) {
	s := newTestSimulator()
	last := &lastSnapshot{}
	s.AddMetric(last)

	result, err := s.Run(context.Background(), pendulum.State{Phi: 1}, &FixedClock{Dt: 0.1}, Config{MaxSteps: 7})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if last.snap.State != result.Final() {
		t.Errorf("last observed %+v, final %+v", last.snap.State, result.Final())
	}
	if last.snap.Step != 7 || last.snap.Dt != 0.1 {
		t.Errorf("unexpected final snapshot %+v", last.snap)
	}
}

func TestEnsembleWithoutStepper(t *testing.T) {
	e := NewEnsemble(New(nil), 3, 1e-6, func() Clock { return &FixedClock{Dt: 0.01} })
	if _, err := e.Run(context.Background(), pendulum.State{}, Config{MaxSteps: 10}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
