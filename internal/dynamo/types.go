package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Control is the actuator input vector handed to a System.
type Control []float64

// System computes the time derivative of a state.
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Integrator advances a System by one fixed step.
type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Normalizer is implemented by systems whose state carries constrained
// coordinates (unit quaternions) that must be projected back after a step.
type Normalizer interface {
	Normalize(x State)
}

// Validate checks a state against a system's declared dimension.
func Validate(dyn System, x State) error {
	if len(x) != dyn.StateDim() {
		return fmt.Errorf("%w: state has %d entries, system expects %d", ErrDimensionMismatch, len(x), dyn.StateDim())
	}
	if !x.IsValid() {
		return ErrInvalidState
	}
	return nil
}
