package metrics

import (
	"math"

	"github.com/san-kum/dpend/internal/sim"
)

// Stability is the fraction of ticks on which both angular velocities
// stayed within threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(snap sim.Snapshot) {
	s.samples++
	x := snap.State
	if math.Abs(x.PhiDot) > s.threshold || math.Abs(x.PsiDot) > s.threshold || !x.IsFinite() {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
