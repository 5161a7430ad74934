// Package noise perturbs actuator controls with exponentially correlated
// (Ornstein-Uhlenbeck style) gaussian noise.
package noise

import (
	"math"
	"math/rand"

	"github.com/san-kum/simbridge/internal/buffers"
)

// minRate guards the correlation-time divisor.
const minRate = 1e-10

// Params are the user-facing noise controls.
type Params struct {
	// Rate is the correlation time constant in seconds.
	Rate float64
	// Std is the stationary standard deviation.
	Std float64
	// Clamp restricts perturbed controls to each limited actuator's range.
	Clamp bool
}

// Enabled reports whether Perturb would change anything.
func (p Params) Enabled() bool { return p.Std > 0 }

// Injector owns the random source so runs are reproducible from a seed.
type Injector struct {
	rng *rand.Rand
}

func NewInjector(seed int64) *Injector {
	return &Injector{rng: rand.New(rand.NewSource(seed))}
}

// Coefficients returns the decay and drive terms for one step of length dt.
func Coefficients(dt float64, p Params) (rate, scale float64) {
	rate = math.Exp(-dt / math.Max(minRate, p.Rate))
	scale = p.Std * math.Sqrt(1-rate*rate)
	return rate, scale
}

// Perturb advances the noise process by dt on every control channel in
// ctrl. limits is consulted only when p.Clamp is set.
func (n *Injector) Perturb(ctrl buffers.Scalars, limits []buffers.Limit, dt float64, p Params) {
	if !p.Enabled() {
		return
	}
	rate, scale := Coefficients(dt, p)
	for i := 0; i < ctrl.Len(); i++ {
		u, _ := ctrl.At(i)
		u = rate*u + scale*n.rng.NormFloat64()
		if p.Clamp && i < len(limits) {
			u = limits[i].Clamp(u)
		}
		ctrl.Set(i, u)
	}
}
