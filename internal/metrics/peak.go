package metrics

import (
	"math"

	"github.com/san-kum/dpend/internal/sim"
)

type PeakVelocity struct {
	name string
	peak float64
}

func NewPeakVelocity() *PeakVelocity {
	return &PeakVelocity{
		name: "peak_velocity",
	}
}

func (p *PeakVelocity) Name() string {
	return p.name
}

func (p *PeakVelocity) Observe(s sim.Snapshot) {
	p.peak = math.Max(p.peak, math.Max(math.Abs(s.State.PhiDot), math.Abs(s.State.PsiDot)))
}

func (p *PeakVelocity) Value() float64 {
	return p.peak
}

func (p *PeakVelocity) Reset() {
	p.peak = 0
}
