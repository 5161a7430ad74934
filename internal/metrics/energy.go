package metrics

import (
	"math"

	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/engine"
)

// Energetic is implemented by simulations that can report total
// mechanical energy.
type Energetic interface {
	Energy() float64
}

// EnergyDrift tracks the largest relative deviation from the first
// observed energy. Simulations without an energy report are ignored.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(sim engine.Simulation, _ *buffers.View) {
	ec, ok := sim.(Energetic)
	if !ok {
		return
	}

	energy := ec.Energy()
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return
	}

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

// Current is the last observed energy.
func (e *EnergyDrift) Current() float64 { return e.currentEnergy }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
