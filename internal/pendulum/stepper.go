package pendulum

// Step advances s by dt with one explicit Euler update. Angles move with the
// velocities at the start of the step, accelerations come from the pre-step
// state, and damping multiplies the updated velocities once per call.
//
// There is no clamping: a large dt yields a large update.
func Step(s State, c Constants, damping, dt float64) State {
	a := Accelerations(s, c.Ratio())

	// float64 conversions keep the products from being fused. Traces are
	// bit-identical on one architecture; math.Sin and math.Cos may round
	// differently on another.
	return State{
		Phi:    s.Phi + float64(s.PhiDot*dt),
		Psi:    s.Psi + float64(s.PsiDot*dt),
		PhiDot: (s.PhiDot + float64(a.Phi*dt)) * damping,
		PsiDot: (s.PsiDot + float64(a.Psi*dt)) * damping,
	}
}

type Stepper struct {
	Constants Constants
	Damping   float64
}

func NewStepper(c Constants, damping float64) *Stepper {
	return &Stepper{Constants: c, Damping: damping}
}

func (st *Stepper) Step(s State, dt float64) State {
	return Step(s, st.Constants, st.Damping, dt)
}
