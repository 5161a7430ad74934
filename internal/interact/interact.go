// Package interact turns a pointer drag into engine input: a spring-like
// force while the simulation runs, or a direct position offset while it is
// paused.
//
// Drag points are expressed in the render frame; the mapper converts to the
// engine frame before touching any buffer.
package interact

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/coords"
	"github.com/san-kum/simbridge/internal/engine"
)

// ErrNoBody is returned when a drag targets the world body or an index the
// loaded model does not declare.
var ErrNoBody = errors.New("interact: no draggable body")

// Gains scale the pointer displacement.
type Gains struct {
	// Force multiplies displacement and body mass while running.
	Force float64
	// Offset multiplies displacement while paused.
	Offset float64
}

// DefaultGains give a firm pull on bodies of a few kilograms.
var DefaultGains = Gains{Force: 250, Offset: 0.3}

// Drag is an active pointer gesture.
type Drag struct {
	BodyID   int
	WorldHit mgl64.Vec3
	Current  mgl64.Vec3

	// hit point in the body's local frame, so WorldHit follows the body
	local mgl64.Vec3
}

// Mapper owns the optional drag state.
type Mapper struct {
	drag  *Drag
	gains Gains
}

func New(g Gains) *Mapper {
	return &Mapper{gains: g}
}

func (m *Mapper) Gains() Gains     { return m.gains }
func (m *Mapper) SetGains(g Gains) { m.gains = g }

// Begin grabs body at the render-frame point hit. The pointer target starts
// at the hit point, so the first frame applies no force.
func (m *Mapper) Begin(v *buffers.View, body int, hit mgl64.Vec3) error {
	if v == nil || body <= 0 {
		return fmt.Errorf("%w: %d", ErrNoBody, body)
	}
	pos, ok := v.Xpos.At(body)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoBody, body)
	}
	quat, _ := v.Xquat.At(body)
	q := coords.QuatToRender(quat)

	m.drag = &Drag{
		BodyID:   body,
		WorldHit: hit,
		Current:  hit,
		local:    q.Inverse().Rotate(hit.Sub(coords.ToRender(pos))),
	}
	return nil
}

// Move updates the pointer target. It is ignored when no drag is active.
func (m *Mapper) Move(current mgl64.Vec3) {
	if m.drag != nil {
		m.drag.Current = current
	}
}

// Nudge shifts the pointer target by d.
func (m *Mapper) Nudge(d mgl64.Vec3) {
	if m.drag != nil {
		m.drag.Current = m.drag.Current.Add(d)
	}
}

func (m *Mapper) End() { m.drag = nil }

// Active returns a copy of the current drag.
func (m *Mapper) Active() (Drag, bool) {
	if m.drag == nil {
		return Drag{}, false
	}
	return *m.drag, true
}

// track re-derives the world hit point from the body's current pose.
func (m *Mapper) track(v *buffers.View) bool {
	pos, ok := v.Xpos.At(m.drag.BodyID)
	if !ok {
		return false
	}
	quat, _ := v.Xquat.At(m.drag.BodyID)
	q := coords.QuatToRender(quat)
	m.drag.WorldHit = coords.ToRender(pos).Add(q.Rotate(m.drag.local))
	return true
}

// ApplyForce pulls the grabbed point toward the pointer with a force scaled
// by the body's mass. It reports whether a force was applied.
func (m *Mapper) ApplyForce(sim engine.Simulation, v *buffers.View) bool {
	if m.drag == nil || sim == nil || v == nil || !m.track(v) {
		return false
	}
	mass, ok := v.BodyMass.At(m.drag.BodyID)
	if !ok {
		return false
	}
	force := coords.ToEngine(m.drag.Current.Sub(m.drag.WorldHit)).Mul(mass * m.gains.Force)
	point := coords.ToEngine(m.drag.WorldHit)
	sim.ApplyForce(force, mgl64.Vec3{}, point, m.drag.BodyID)
	return true
}

// ApplyOffset moves the grabbed body directly: its mocap slot when it has
// one, otherwise the translational coordinates of its root's free joint.
func (m *Mapper) ApplyOffset(v *buffers.View) bool {
	if m.drag == nil || v == nil || !m.track(v) {
		return false
	}
	offset := coords.ToEngine(m.drag.Current.Sub(m.drag.WorldHit)).Mul(m.gains.Offset)
	body := m.drag.BodyID

	if mocap, ok := v.BodyMocapID.At(body); ok && mocap >= 0 {
		return v.MocapPos.Add(mocap, offset)
	}

	root, ok := v.BodyRootID.At(body)
	if !ok {
		return false
	}
	jnt, ok := v.BodyJntAdr.At(root)
	if !ok || jnt < 0 {
		return false
	}
	if typ, _ := v.JntType.At(jnt); typ != engine.JointFree {
		return false
	}
	adr, ok := v.JntQposAdr.At(jnt)
	if !ok {
		return false
	}
	pos, ok := v.Qpos.Slice(adr, 3)
	if !ok {
		return false
	}
	for i := 0; i < 3; i++ {
		pos.Add(i, offset[i])
	}
	return true
}
