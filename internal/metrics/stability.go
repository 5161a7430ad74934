package metrics

import (
	"math"

	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/engine"
)

// Stability is the fraction of samples whose velocities all stay below
// threshold and are finite.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(_ engine.Simulation, v *buffers.View) {
	s.samples++
	for i := 0; i < v.Qvel.Len(); i++ {
		val, _ := v.Qvel.At(i)
		if math.IsNaN(val) || math.Abs(val) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Resetter is implemented by simulations that reset themselves when the
// state diverges.
type Resetter interface {
	Unstable() int
}

// Unstable counts divergence resets since the first observation.
type Unstable struct {
	base, last int
	seen       bool
}

func NewUnstable() *Unstable { return &Unstable{} }

func (u *Unstable) Name() string { return "unstable_resets" }

func (u *Unstable) Observe(sim engine.Simulation, _ *buffers.View) {
	r, ok := sim.(Resetter)
	if !ok {
		return
	}
	n := r.Unstable()
	if !u.seen || n < u.last {
		u.base = n
		u.seen = true
	}
	u.last = n
}

func (u *Unstable) Value() float64 { return float64(u.last - u.base) }

func (u *Unstable) Reset() {
	u.base, u.last, u.seen = 0, 0, false
}
