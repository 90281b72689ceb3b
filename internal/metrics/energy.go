package metrics

import (
	"math"

	"github.com/san-kum/dpend/internal/pendulum"
	"github.com/san-kum/dpend/internal/sim"
)

// Energy reports the mean mechanical energy over the observed ticks.
type Energy struct {
	name        string
	constants   pendulum.Constants
	samples     int
	totalEnergy float64
}

func NewEnergy(c pendulum.Constants) *Energy {
	return &Energy{
		name:      "energy",
		constants: c,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s sim.Snapshot) {
	e.totalEnergy += pendulum.Energy(s.State, e.constants)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation from the energy of the
// first observed tick. With damping below one it grows toward 1 as the
// pendulum settles.
type EnergyDrift struct {
	name          string
	constants     pendulum.Constants
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(c pendulum.Constants) *EnergyDrift {
	return &EnergyDrift{
		name:      "energy_drift",
		constants: c,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s sim.Snapshot) {
	energy := pendulum.Energy(s.State, e.constants)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
