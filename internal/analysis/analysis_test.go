package analysis

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/san-kum/dpend/internal/pendulum"
)

func TestPowerSpectrumLength(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{100, 50},
		{1000, 500},
		{1024, 512},
	}

	for _, tt := range tests {
		data := make([]float64, tt.n)
		for i := range data {
			data[i] = math.Sin(float64(i))
		}
		if got := len(PowerSpectrum(data)); got != tt.want {
			t.Errorf("len(PowerSpectrum(%d samples)) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestDominantFrequency(t *testing.T) {
	const dt = 0.01
	for _, freq := range []float64{0.5, 2, 7} {
		data := make([]float64, 2000)
		for i := range data {
			data[i] = 3 + math.Sin(2*math.Pi*freq*float64(i)*dt)
		}

		got := DominantFrequency(data, dt)
		resolution := 1 / (float64(len(data)) * dt)
		if math.Abs(got-freq) > resolution {
			t.Errorf("freq %v: got %v (resolution %v)", freq, got, resolution)
		}
	}
}

func TestDominantFrequencySmallOscillation(t *testing.T) {
	st := pendulum.NewStepper(pendulum.FromRatio(1), pendulum.NoDamping)

	// Symmetric normal mode of the linear model: psi = sqrt(2) phi,
	// omega^2 = (2 - sqrt(2)) k.
	x := pendulum.State{Phi: 0.01, Psi: 0.01 * math.Sqrt2}
	const dt = 0.001
	series := make([]float64, 0, 60000)
	for i := 0; i < 60000; i++ {
		series = append(series, x.Phi)
		x = st.Step(x, dt)
	}

	want := math.Sqrt(2-math.Sqrt2) / (2 * math.Pi)
	got := DominantFrequency(series, dt)
	if math.Abs(got-want) > 0.02 {
		t.Errorf("expected normal mode near %v Hz, got %v", want, got)
	}
}

func TestDominantFrequencyDegenerate(t *testing.T) {
	if got := DominantFrequency(nil, 0.01); got != 0 {
		t.Errorf("empty series: got %v", got)
	}
	if got := DominantFrequency([]float64{1, 2, 3, 4}, 0); got != 0 {
		t.Errorf("zero dt: got %v", got)
	}
}

func TestLyapunovChaoticVersusRegular(t *testing.T) {
	st := pendulum.NewStepper(pendulum.DefaultConstants(), pendulum.NoDamping)

	regular := LyapunovExponent(st, pendulum.State{Phi: 0.05}, 0.001, 30, 1e-8)
	chaotic := LyapunovExponent(st, pendulum.State{Phi: 2.7, Psi: 2.2}, 0.001, 30, 1e-8)

	if math.Abs(regular) > 0.1 {
		t.Errorf("small oscillation should have exponent near zero, got %f", regular)
	}
	if chaotic <= regular {
		t.Errorf("expected chaotic exponent %f above regular %f", chaotic, regular)
	}
	if chaotic <= 0 {
		t.Errorf("expected positive exponent for release at (2.7, 2.2), got %f", chaotic)
	}
}

func TestLyapunovDegenerate(t *testing.T) {
	st := pendulum.NewStepper(pendulum.DefaultConstants(), pendulum.DefaultDamping)
	x0 := pendulum.State{Phi: 1}

	if got := LyapunovExponent(st, x0, 0, 10, 1e-8); got != 0 {
		t.Errorf("zero dt: got %v", got)
	}
	if got := LyapunovExponent(st, x0, 0.01, 0, 1e-8); got != 0 {
		t.Errorf("zero duration: got %v", got)
	}
	if got := LyapunovByComponent(st, x0, 0.01, 1, 1e-8); len(got) != 4 {
		t.Errorf("expected 4 exponents, got %d", len(got))
	}
}

func TestLyapunovByComponentPhiMatchesExponent(t *testing.T) {
	st := pendulum.NewStepper(pendulum.DefaultConstants(), pendulum.NoDamping)
	x0 := pendulum.State{Phi: 2.5, Psi: 2.5}

	got := LyapunovByComponent(st, x0, 0.01, 5, 1e-8)
	if want := LyapunovExponent(st, x0, 0.01, 5, 1e-8); got[0] != want {
		t.Errorf("phi offset: got %v, want %v", got[0], want)
	}
	for i, v := range got {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("component %d: non-finite exponent %v", i, v)
		}
	}
}

func TestParseAxis(t *testing.T) {
	for _, name := range []string{"phi", "psi", "phi_dot", "psi_dot"} {
		a, err := ParseAxis(name)
		if err != nil {
			t.Fatalf("ParseAxis(%q): %v", name, err)
		}
		if a.String() != name {
			t.Errorf("round trip %q gave %q", name, a.String())
		}
	}

	if _, err := ParseAxis("theta"); err == nil {
		t.Error("expected error for unknown axis")
	}

	s := pendulum.State{Phi: 1, Psi: 2, PhiDot: 3, PsiDot: 4}
	if AxisPhi.Of(s) != 1 || AxisPsi.Of(s) != 2 || AxisPhiDot.Of(s) != 3 || AxisPsiDot.Of(s) != 4 {
		t.Error("axis selection mismatch")
	}
}

func TestPhasePortraitASCII(t *testing.T) {
	states := make([]pendulum.State, 200)
	for i := range states {
		a := 2 * math.Pi * float64(i) / 200
		states[i] = pendulum.State{Phi: math.Cos(a), PhiDot: math.Sin(a)}
	}

	portrait := PhasePortraitFromStates(states, AxisPhi, AxisPhiDot)
	if len(portrait.Points) != 200 {
		t.Fatalf("expected 200 points, got %d", len(portrait.Points))
	}

	out := PhasePortraitToASCII(portrait, 40, 20)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for i, l := range lines {
		if n := utf8.RuneCountInString(l); n != 40 {
			t.Errorf("line %d has %d runes", i, n)
		}
	}
	if !strings.Contains(out, "•") {
		t.Error("expected plotted points")
	}

	if PhasePortraitToASCII(nil, 40, 20) != "" {
		t.Error("nil portrait should render empty")
	}
}

func TestPoincareSection(t *testing.T) {
	st := pendulum.NewStepper(pendulum.DefaultConstants(), pendulum.NoDamping)
	section := GeneratePoincareSection(st, pendulum.State{Phi: 0.2}, AxisPhi, 0, AxisPsi, AxisPsiDot, 0.001, 30)

	if len(section.Points) == 0 {
		t.Fatal("expected crossings of phi = 0")
	}
	if PoincareSectionToASCII(&PoincareSection{}, 10, 5) != "No crossings detected" {
		t.Error("empty section message mismatch")
	}
}

func TestEnergySweep(t *testing.T) {
	st := pendulum.NewStepper(pendulum.DefaultConstants(), pendulum.NoDamping)
	points := EnergySweep(st, 0.1, 1.5, 5, 0.005, 1, 10)

	if len(points) != 5 {
		t.Fatalf("expected 5 sweep points, got %d", len(points))
	}
	if points[0].Phi0 != 0.1 || math.Abs(points[4].Phi0-1.5) > 1e-12 {
		t.Errorf("unexpected sweep range %v..%v", points[0].Phi0, points[4].Phi0)
	}
	if EnergySweep(st, 0, 1, 0, 0.01, 1, 1) != nil {
		t.Error("zero steps should return nil")
	}
}
