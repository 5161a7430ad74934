// Package metrics accumulates scalar summaries of a running simulation.
package metrics

import (
	"github.com/elliotchance/orderedmap/v2"
	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/engine"
)

type Metric interface {
	Name() string
	Observe(sim engine.Simulation, v *buffers.View)
	Value() float64
	Reset()
}

// Set fans observations out to a fixed list of metrics.
type Set struct {
	metrics []Metric
}

func NewSet(ms ...Metric) *Set {
	return &Set{metrics: ms}
}

// Default is the set recorded for every run.
func Default() *Set {
	return NewSet(NewControlEffort(), NewEnergyDrift(), NewStability(100), NewUnstable())
}

func (s *Set) Observe(sim engine.Simulation, v *buffers.View) {
	if sim == nil || v == nil {
		return
	}
	for _, m := range s.metrics {
		m.Observe(sim, v)
	}
}

func (s *Set) Reset() {
	for _, m := range s.metrics {
		m.Reset()
	}
}

// Values returns the current values in registration order.
func (s *Set) Values() *orderedmap.OrderedMap[string, float64] {
	out := orderedmap.NewOrderedMap[string, float64]()
	for _, m := range s.metrics {
		out.Set(m.Name(), m.Value())
	}
	return out
}

// Map is Values as a plain map, for serialization.
func (s *Set) Map() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}
