package sim

import (
	"context"
	"sync"

	"github.com/san-kum/dpend/internal/pendulum"
)

// Ensemble runs copies of one configuration from slightly different
// starting angles, to show how quickly nearby trajectories separate.
type Ensemble struct {
	base     *Simulator
	numRuns  int
	epsilon  float64
	newClock func() Clock
}

func NewEnsemble(s *Simulator, numRuns int, epsilon float64, newClock func() Clock) *Ensemble {
	return &Ensemble{base: s, numRuns: numRuns, epsilon: epsilon, newClock: newClock}
}

// Run offsets phi of run i by i*epsilon.
func (e *Ensemble) Run(ctx context.Context, x0 pendulum.State, cfg Config) ([]*Result, error) {
	if e.base == nil || e.base.stepper == nil {
		return nil, ErrNotConfigured
	}
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			st := *e.base.stepper
			s := New(&st)

			x := x0
			x.Phi += float64(idx) * e.epsilon

			results[idx], errs[idx] = s.Run(ctx, x, e.newClock(), cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
