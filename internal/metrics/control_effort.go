package metrics

import (
	"math"

	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/engine"
)

// ControlEffort is the mean absolute control per actuator per sample.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(_ engine.Simulation, v *buffers.View) {
	n := v.Ctrl.Len()
	if n == 0 {
		return
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		u, _ := v.Ctrl.At(i)
		sum += math.Abs(u)
	}
	c.sum += sum / float64(n)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
