package analysis

import (
	"math"

	"github.com/san-kum/dpend/internal/pendulum"
)

// LyapunovExponent estimates the largest Lyapunov exponent using the
// trajectory separation method. A positive value indicates chaos.
//
// Algorithm:
// 1. Run two nearby trajectories, the second offset in phi
// 2. Measure their divergence over time
// 3. λ ≈ (1/t) * ln(|δx(t)/δx(0)|)
func LyapunovExponent(
	st *pendulum.Stepper,
	x0 pendulum.State,
	dt, duration float64,
	perturbation float64,
) float64 {
	xp := x0
	xp.Phi += perturbation
	return lyapunovForPerturbation(st, x0, xp, dt, duration, perturbation)
}

// LyapunovByComponent repeats the estimate with the initial offset placed
// on each state component in turn (phi, psi, phiDot, psiDot). Renormalizing
// every step pulls each offset toward the fastest growing direction, so in
// a chaotic regime all four approach the largest exponent; a wide spread
// means the window is too short to settle.
func LyapunovByComponent(
	st *pendulum.Stepper,
	x0 pendulum.State,
	dt, duration float64,
	perturbation float64,
) []float64 {
	base := x0.Vector()
	spectrum := make([]float64, len(base))

	for i := range base {
		v := x0.Vector()
		v[i] += perturbation
		xp, _ := pendulum.FromVector(v)

		spectrum[i] = lyapunovForPerturbation(st, x0, xp, dt, duration, perturbation)
	}

	return spectrum
}

func lyapunovForPerturbation(
	st *pendulum.Stepper,
	x0, x0p pendulum.State,
	dt, duration, d0 float64,
) float64 {
	if dt <= 0 || d0 <= 0 {
		return 0
	}

	x, xp := x0, x0p
	steps := int(math.Round(duration / dt))

	sumLog := 0.0
	for i := 0; i < steps; i++ {
		x = st.Step(x, dt)
		xp = st.Step(xp, dt)

		sep := separation(x, xp)
		if sep == 0 || math.IsNaN(sep) || math.IsInf(sep, 0) {
			continue
		}

		// Renormalize every step so the pair stays in the linear regime.
		sumLog += math.Log(sep / d0)
		xp = rescale(x, xp, d0/sep)
	}

	if steps == 0 {
		return 0
	}
	return sumLog / (float64(steps) * dt)
}

func separation(a, b pendulum.State) float64 {
	dPhi := b.Phi - a.Phi
	dPsi := b.Psi - a.Psi
	dPhiDot := b.PhiDot - a.PhiDot
	dPsiDot := b.PsiDot - a.PsiDot
	return math.Sqrt(dPhi*dPhi + dPsi*dPsi + dPhiDot*dPhiDot + dPsiDot*dPsiDot)
}

func rescale(ref, x pendulum.State, scale float64) pendulum.State {
	return pendulum.State{
		Phi:    ref.Phi + (x.Phi-ref.Phi)*scale,
		Psi:    ref.Psi + (x.Psi-ref.Psi)*scale,
		PhiDot: ref.PhiDot + (x.PhiDot-ref.PhiDot)*scale,
		PsiDot: ref.PsiDot + (x.PsiDot-ref.PsiDot)*scale,
	}
}
