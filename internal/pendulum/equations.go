package pendulum

import "math"

// Denominator is shared by both accelerations. It lies in [-2, -1] for any
// pair of angles.
func Denominator(phi, psi float64) float64 {
	cd := math.Cos(phi - psi)
	return float64(cd*cd) - 2
}

// Accelerations evaluates the equations of motion for two equal links with
// ratio k = g/L.
//
// Every product is converted with float64 before it is summed so the
// compiler cannot fuse it into a multiply-add.
func Accelerations(s State, k float64) Accel {
	phi, psi := s.Phi, s.Psi
	phiDot2 := s.PhiDot * s.PhiDot
	psiDot2 := s.PsiDot * s.PsiDot

	d := phi - psi
	sinD, cosD := math.Sin(d), math.Cos(d)
	sinPhi, sinPsi := math.Sin(phi), math.Sin(psi)
	denom := float64(cosD*cosD) - 2

	phiDotDot := (float64(phiDot2*sinD*cosD) -
		float64(k*sinPsi*cosD) +
		float64(psiDot2*sinD) +
		float64(2*k*sinPhi)) / denom

	psiDotDot := (float64(-2*k*cosD*sinPhi) -
		float64(2*phiDot2*sinD) -
		float64(psiDot2*cosD*sinD) +
		float64(2*k*sinPsi)) / denom

	return Accel{Phi: phiDotDot, Psi: psiDotDot}
}

// Energy is the mechanical energy per unit mass and squared length, with
// potential measured from the hanging rest position.
func Energy(s State, c Constants) float64 {
	k := c.Ratio()
	ke := s.PhiDot*s.PhiDot + 0.5*s.PsiDot*s.PsiDot +
		s.PhiDot*s.PsiDot*math.Cos(s.Phi-s.Psi)
	pe := k * (2*(1-math.Cos(s.Phi)) + (1 - math.Cos(s.Psi)))
	return ke + pe
}
