package pendulum

import (
	"errors"
	"math"
	"testing"
)

func TestConstantsRatio(t *testing.T) {
	c := NewConstants(9.81, 3.7)
	if c.Ratio() != 9.81/3.7 {
		t.Errorf("Ratio() = %v, want %v", c.Ratio(), 9.81/3.7)
	}
	if FromRatio(2.5).Ratio() != 2.5 {
		t.Errorf("FromRatio(2.5).Ratio() = %v", FromRatio(2.5).Ratio())
	}
	if DefaultArmLength != 3.7 {
		t.Errorf("DefaultArmLength = %v, want 3.7", DefaultArmLength)
	}
}

func TestConstantsValidate(t *testing.T) {
	tests := []struct {
		name string
		c    Constants
		ok   bool
	}{
		{"default", DefaultConstants(), true},
		{"zero gravity", NewConstants(0, 1), false},
		{"negative length", NewConstants(9.81, -1), false},
		{"infinite gravity", NewConstants(math.Inf(1), 1), false},
		{"nan length", NewConstants(9.81, math.NaN()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrNonPositive) {
				t.Errorf("expected ErrNonPositive, got %v", err)
			}
		})
	}
}

func TestValidateDamping(t *testing.T) {
	tests := []struct {
		f  float64
		ok bool
	}{
		{DefaultDamping, true},
		{NoDamping, true},
		{1e-9, true},
		{0, false},
		{-0.5, false},
		{1.0001, false},
		{math.NaN(), false},
	}

	for _, tt := range tests {
		err := ValidateDamping(tt.f)
		if tt.ok != (err == nil) {
			t.Errorf("ValidateDamping(%v) = %v", tt.f, err)
		}
		if err != nil && !errors.Is(err, ErrDampingRange) {
			t.Errorf("ValidateDamping(%v) should wrap ErrDampingRange", tt.f)
		}
	}
}

func TestStateVectorRoundTrip(t *testing.T) {
	s := State{Phi: 1, Psi: 2, PhiDot: 3, PsiDot: 4}
	got, err := FromVector(s.Vector())
	if err != nil {
		t.Fatalf("FromVector failed: %v", err)
	}
	if got != s {
		t.Errorf("got %+v, want %+v", got, s)
	}

	if _, err := FromVector([]float64{1, 2}); err == nil {
		t.Error("expected error for short vector")
	}
}

func TestStateIsFinite(t *testing.T) {
	if !(State{Phi: 1e300}).IsFinite() {
		t.Error("large finite state reported non-finite")
	}
	if (State{PsiDot: math.Inf(-1)}).IsFinite() {
		t.Error("infinite velocity reported finite")
	}
	if (State{Psi: math.NaN()}).IsFinite() {
		t.Error("NaN angle reported finite")
	}
}
