package pendulum

import (
	"math"
	"testing"
)

func TestDenominatorBound(t *testing.T) {
	const n = 400
	span := 20 * math.Pi
	for i := 0; i <= n; i++ {
		phi := -10*math.Pi + span*float64(i)/n
		for j := 0; j <= n; j++ {
			psi := -10*math.Pi + span*float64(j)/n
			d := Denominator(phi, psi)
			if d < -2 || d > -1 {
				t.Fatalf("denominator(%.4f, %.4f) = %v, outside [-2, -1]", phi, psi, d)
			}
			a := Accelerations(State{Phi: phi, Psi: psi, PhiDot: 3, PsiDot: -3}, 2.65)
			if math.IsNaN(a.Phi) || math.IsInf(a.Phi, 0) || math.IsNaN(a.Psi) || math.IsInf(a.Psi, 0) {
				t.Fatalf("non-finite acceleration at (%.4f, %.4f): %+v", phi, psi, a)
			}
		}
	}
}

func TestAccelerationsAtRest(t *testing.T) {
	a := Accelerations(State{}, DefaultConstants().Ratio())
	if a.Phi != 0 || a.Psi != 0 {
		t.Errorf("expected zero accelerations hanging at rest, got %+v", a)
	}
}

func TestAccelerationsAlignedLinks(t *testing.T) {
	k := DefaultConstants().Ratio()
	tests := []float64{0.1, -0.4, 1.2, 3.0}

	for _, angle := range tests {
		a := Accelerations(State{Phi: angle, Psi: angle}, k)

		// d = 0: cos d = 1, sin d = 0, denominator = -1
		wantPhi := (-k*math.Sin(angle) + 2*k*math.Sin(angle)) / -1
		wantPsi := (-2*k*math.Sin(angle) + 2*k*math.Sin(angle)) / -1

		if math.Abs(a.Phi-wantPhi) > 1e-12 {
			t.Errorf("angle %.2f: phiDotDot = %v, want %v", angle, a.Phi, wantPhi)
		}
		if math.Abs(a.Psi-wantPsi) > 1e-12 {
			t.Errorf("angle %.2f: psiDotDot = %v, want %v", angle, a.Psi, wantPsi)
		}
	}
}

func TestAccelerationsSmallAngleMatchesLinearModel(t *testing.T) {
	k := 2.0
	phi, psi := 1e-4, -2e-4
	a := Accelerations(State{Phi: phi, Psi: psi}, k)

	wantPhi := -2*k*phi + k*psi
	wantPsi := 2*k*phi - 2*k*psi

	if math.Abs(a.Phi-wantPhi) > 1e-9 {
		t.Errorf("phiDotDot = %v, want ~%v", a.Phi, wantPhi)
	}
	if math.Abs(a.Psi-wantPsi) > 1e-9 {
		t.Errorf("psiDotDot = %v, want ~%v", a.Psi, wantPsi)
	}
}

func TestAccelerationsSymmetry(t *testing.T) {
	k := DefaultConstants().Ratio()
	x1 := State{Phi: 0.7, Psi: -0.3, PhiDot: 1.1, PsiDot: 0.4}
	x2 := State{Phi: -0.7, Psi: 0.3, PhiDot: -1.1, PsiDot: -0.4}

	a1 := Accelerations(x1, k)
	a2 := Accelerations(x2, k)

	if math.Abs(a1.Phi+a2.Phi) > 1e-12 || math.Abs(a1.Psi+a2.Psi) > 1e-12 {
		t.Errorf("mirror states should give opposite accelerations: %+v vs %+v", a1, a2)
	}
}

func TestAccelerationsDeterministic(t *testing.T) {
	x := State{Phi: 2.7, Psi: 2.2, PhiDot: -0.3, PsiDot: 1.9}
	first := Accelerations(x, 2.65)
	for i := 0; i < 100; i++ {
		if got := Accelerations(x, 2.65); got != first {
			t.Fatalf("call %d returned %+v, first call %+v", i, got, first)
		}
	}
}

func TestEnergyAtRest(t *testing.T) {
	if e := Energy(State{}, DefaultConstants()); e != 0 {
		t.Errorf("expected zero energy at rest, got %v", e)
	}

	c := FromRatio(1)
	// both links horizontal: 2*(1-0) + (1-0)
	if e := Energy(State{Phi: math.Pi / 2, Psi: math.Pi / 2}, c); math.Abs(e-3) > 1e-12 {
		t.Errorf("expected energy 3, got %v", e)
	}
}

// roundedTerms evaluates the equations one rounded product at a time.
func roundedTerms(s State, k float64) Accel {
	d := s.Phi - s.Psi
	sinD, cosD := math.Sin(d), math.Cos(d)
	sinPhi, sinPsi := math.Sin(s.Phi), math.Sin(s.Psi)
	phiDot2 := s.PhiDot * s.PhiDot
	psiDot2 := s.PsiDot * s.PsiDot

	cos2 := float64(cosD * cosD)
	denom := cos2 - 2

	p1 := float64(phiDot2 * sinD * cosD)
	p2 := float64(k * sinPsi * cosD)
	p3 := float64(psiDot2 * sinD)
	p4 := float64(2 * k * sinPhi)
	q1 := float64(-2 * k * cosD * sinPhi)
	q2 := float64(2 * phiDot2 * sinD)
	q3 := float64(psiDot2 * cosD * sinD)
	q4 := float64(2 * k * sinPsi)

	num1 := p1 - p2
	num1 += p3
	num1 += p4
	num2 := q1 - q2
	num2 -= q3
	num2 += q4

	return Accel{Phi: num1 / denom, Psi: num2 / denom}
}

func TestAccelerationsRoundEveryProduct(t *testing.T) {
	k := DefaultConstants().Ratio()
	states := []State{
		{Phi: 2.7, Psi: 2.2},
		{Phi: 0.3, Psi: -1.1, PhiDot: 2.5, PsiDot: -4.25},
		{Phi: -7.9, Psi: 12.4, PhiDot: -0.01, PsiDot: 9.3},
	}
	for _, s := range states {
		got := Accelerations(s, k)
		want := roundedTerms(s, k)
		if got != want {
			t.Errorf("state %+v: got %+v, want %+v", s, got, want)
		}
	}
}
