package analysis

import (
	"github.com/san-kum/dpend/internal/pendulum"
)

// SweepPoint holds the section values found for one starting angle.
type SweepPoint struct {
	Phi0   float64
	Values []float64
}

// EnergySweep releases the pendulum from rest at phiSteps angles between
// phiMin and phiMax (psi starting equal to phi) and records psi each time
// phi crosses zero going upward after the transient. Low angles give a
// few repeating values; above the chaotic threshold the values smear out.
func EnergySweep(
	st *pendulum.Stepper,
	phiMin, phiMax float64,
	phiSteps int,
	dt, transient, record float64,
) []SweepPoint {
	if phiSteps <= 0 {
		return nil
	}

	results := make([]SweepPoint, 0, phiSteps)
	for i := 0; i < phiSteps; i++ {
		phi0 := phiMin
		if phiSteps > 1 {
			phi0 = phiMin + (phiMax-phiMin)*float64(i)/float64(phiSteps-1)
		}

		x := pendulum.State{Phi: phi0, Psi: phi0}
		for j := 0; j < stepsFor(dt, transient); j++ {
			x = st.Step(x, dt)
		}

		section := GeneratePoincareSection(st, x, AxisPhi, 0, AxisPsi, AxisPsiDot, dt, record)
		values := make([]float64, len(section.Points))
		for k, p := range section.Points {
			values[k] = p.X
		}

		results = append(results, SweepPoint{Phi0: phi0, Values: values})
	}

	return results
}
