package pendulum

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultGravity = 9.81
	// DefaultArmLength is the on-screen arm of 185 px at 50 px per metre.
	DefaultArmLength = 185.0 / 50.0

	// DefaultDamping is empirical; it holds Euler's energy gain in check at
	// typical frame rates.
	DefaultDamping = 0.9995
	NoDamping      = 1.0
)

var (
	ErrNonPositive  = errors.New("pendulum: constant must be positive and finite")
	ErrDampingRange = errors.New("pendulum: damping factor must be in (0, 1]")
)

// Constants are fixed for the lifetime of a simulation run.
type Constants struct {
	Gravity   float64
	ArmLength float64
}

func NewConstants(gravity, armLength float64) Constants {
	return Constants{Gravity: gravity, ArmLength: armLength}
}

// FromRatio builds constants whose Ratio is exactly k.
func FromRatio(k float64) Constants {
	return Constants{Gravity: k, ArmLength: 1}
}

func DefaultConstants() Constants {
	return NewConstants(DefaultGravity, DefaultArmLength)
}

func (c Constants) Ratio() float64 {
	return c.Gravity / c.ArmLength
}

func (c Constants) Validate() error {
	if !positiveFinite(c.Gravity) {
		return fmt.Errorf("gravity %v: %w", c.Gravity, ErrNonPositive)
	}
	if !positiveFinite(c.ArmLength) {
		return fmt.Errorf("arm length %v: %w", c.ArmLength, ErrNonPositive)
	}
	return nil
}

func ValidateDamping(f float64) error {
	if math.IsNaN(f) || f <= 0 || f > 1 {
		return fmt.Errorf("damping %v: %w", f, ErrDampingRange)
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// State is the full configuration of the pendulum. Angles are measured from
// the vertical in radians and are never wrapped.
type State struct {
	Phi    float64 `json:"phi"`
	Psi    float64 `json:"psi"`
	PhiDot float64 `json:"phi_dot"`
	PsiDot float64 `json:"psi_dot"`
}

func (s State) IsFinite() bool {
	for _, v := range [...]float64{s.Phi, s.Psi, s.PhiDot, s.PsiDot} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Vector returns the state in (phi, psi, phiDot, psiDot) order.
func (s State) Vector() []float64 {
	return []float64{s.Phi, s.Psi, s.PhiDot, s.PsiDot}
}

func FromVector(v []float64) (State, error) {
	if len(v) != 4 {
		return State{}, fmt.Errorf("pendulum: state needs 4 components, got %d", len(v))
	}
	return State{Phi: v[0], Psi: v[1], PhiDot: v[2], PsiDot: v[3]}, nil
}

// Accel holds the angular accelerations of both links.
type Accel struct {
	Phi float64
	Psi float64
}
