package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/dynamo"
	"github.com/san-kum/simbridge/internal/engine"
)

// frames holds world-frame kinematics for one configuration.
type frames struct {
	xpos   []mgl64.Vec3
	xquat  []mgl64.Quat
	com    []mgl64.Vec3
	anchor []mgl64.Vec3
	axis   []mgl64.Vec3
}

func newFrames(nbody, njnt int) *frames {
	return &frames{
		xpos:   make([]mgl64.Vec3, nbody),
		xquat:  make([]mgl64.Quat, nbody),
		com:    make([]mgl64.Vec3, nbody),
		anchor: make([]mgl64.Vec3, njnt),
		axis:   make([]mgl64.Vec3, njnt),
	}
}

var basis = [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// kinematics walks the tree root to leaf. Parents precede children.
func (s *Sim) kinematics(qpos []float64, f *frames) {
	d := s.data
	f.xpos[0], f.xquat[0], f.com[0] = mgl64.Vec3{}, mgl64.QuatIdent(), mgl64.Vec3{}

	for b := 1; b < len(s.bodies); b++ {
		bd := &s.bodies[b]
		var pos mgl64.Vec3
		var rot mgl64.Quat

		switch {
		case bd.mocap >= 0:
			i := bd.mocap
			pos = mgl64.Vec3{d.MocapPos[3*i], d.MocapPos[3*i+1], d.MocapPos[3*i+2]}
			rot = mgl64.Quat{W: d.MocapQuat[4*i], V: mgl64.Vec3{d.MocapQuat[4*i+1], d.MocapQuat[4*i+2], d.MocapQuat[4*i+3]}}
		case bd.joint >= 0 && s.joints[bd.joint].typ == engine.JointFree:
			a := s.joints[bd.joint].qadr
			pos = mgl64.Vec3{qpos[a], qpos[a+1], qpos[a+2]}
			rot = mgl64.Quat{W: qpos[a+3], V: mgl64.Vec3{qpos[a+4], qpos[a+5], qpos[a+6]}}
			f.anchor[bd.joint] = pos
		default:
			pp, pq := f.xpos[bd.parent], f.xquat[bd.parent]
			pos = pp.Add(pq.Rotate(bd.pos))
			rot = pq.Mul(bd.quat)
			if bd.joint >= 0 {
				j := &s.joints[bd.joint]
				f.anchor[bd.joint] = pos
				f.axis[bd.joint] = rot.Rotate(j.axis)
				v := qpos[j.qadr]
				if j.typ == engine.JointHinge {
					rot = rot.Mul(mgl64.QuatRotate(v, j.axis))
				} else {
					pos = pos.Add(f.axis[bd.joint].Mul(v))
				}
			}
		}
		if l := rot.Len(); l > 0 {
			rot = rot.Scale(1 / l)
		} else {
			rot = mgl64.QuatIdent()
		}
		f.xpos[b], f.xquat[b] = pos, rot
		f.com[b] = pos.Add(rot.Rotate(bd.com))
	}
}

// eachDof visits every dof that moves point p rigidly attached to body b,
// passing the linear and angular velocity the point picks up per unit of
// that dof's velocity. Summing lin*qvel gives the point velocity; summing
// lin.f + ang.tau gives the generalized force of a wrench.
func (s *Sim) eachDof(f *frames, b int, p mgl64.Vec3, fn func(dof int, lin, ang mgl64.Vec3)) {
	for c := b; c > 0; c = s.bodies[c].parent {
		ji := s.bodies[c].joint
		if ji < 0 {
			continue
		}
		j := &s.joints[ji]
		r := p.Sub(f.anchor[ji])
		switch j.typ {
		case engine.JointFree:
			for k, e := range basis {
				fn(j.dadr+k, e, mgl64.Vec3{})
			}
			for k, e := range basis {
				fn(j.dadr+3+k, e.Cross(r), e)
			}
		case engine.JointHinge:
			a := f.axis[ji]
			fn(j.dadr, a.Cross(r), a)
		case engine.JointSlide:
			fn(j.dadr, f.axis[ji], mgl64.Vec3{})
		}
	}
}

func (s *Sim) pointVelocity(f *frames, qvel []float64, b int, p mgl64.Vec3) mgl64.Vec3 {
	var v mgl64.Vec3
	s.eachDof(f, b, p, func(dof int, lin, _ mgl64.Vec3) {
		v = v.Add(lin.Mul(qvel[dof]))
	})
	return v
}

// massDiag is the diagonal of J^T M J summed over bodies.
func (s *Sim) massDiag(f *frames) []float64 {
	mass := make([]float64, s.model.NV)
	for b := 1; b < len(s.bodies); b++ {
		bd := &s.bodies[b]
		s.eachDof(f, b, f.com[b], func(dof int, lin, ang mgl64.Vec3) {
			mass[dof] += bd.mass*lin.Dot(lin) + bd.rot*ang.Dot(ang)
		})
	}
	for i := range mass {
		mass[i] += armature
	}
	return mass
}

// Derive returns d/dt of [qpos, qvel]. QfrcApplied and mocap poses are
// read from Data and treated as constant over the step.
func (s *Sim) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	m := s.model
	qpos, qvel := x[:m.NQ], x[m.NQ:]
	f := s.scratchFrames
	s.kinematics(qpos, f)

	qfrc := make([]float64, m.NV)
	copy(qfrc, s.data.QfrcApplied)
	for i, a := range s.actuators {
		if i < len(u) {
			qfrc[a.dof] += u[i] * a.gear
		}
	}

	for b := 1; b < len(s.bodies); b++ {
		bd := &s.bodies[b]
		force := s.gravity.Mul(bd.mass)
		if s.floor.Enabled {
			force = force.Add(s.contact(f, qvel, b))
		}
		s.eachDof(f, b, f.com[b], func(dof int, lin, _ mgl64.Vec3) {
			qfrc[dof] += lin.Dot(force)
		})
	}

	for _, j := range s.joints {
		switch j.typ {
		case engine.JointFree:
			for k := 0; k < 3; k++ {
				qfrc[j.dadr+k] -= s.damping.Linear * qvel[j.dadr+k]
				qfrc[j.dadr+3+k] -= s.damping.Angular * qvel[j.dadr+3+k]
			}
		default:
			q := qpos[j.qadr]
			qfrc[j.dadr] -= j.stiffness*(q-j.springref) + j.damping*qvel[j.dadr]
		}
	}

	dx := make(dynamo.State, len(x))
	mass := s.massDiag(f)
	for i := range qvel {
		dx[m.NQ+i] = qfrc[i] / mass[i]
	}

	for _, j := range s.joints {
		if j.typ != engine.JointFree {
			dx[j.qadr] = qvel[j.dadr]
			continue
		}
		v := qvel[j.dadr : j.dadr+3]
		copy(dx[j.qadr:j.qadr+3], v)
		q := mgl64.Quat{W: qpos[j.qadr+3], V: mgl64.Vec3{qpos[j.qadr+4], qpos[j.qadr+5], qpos[j.qadr+6]}}
		w := mgl64.Quat{V: mgl64.Vec3{qvel[j.dadr+3], qvel[j.dadr+4], qvel[j.dadr+5]}}
		qd := w.Mul(q).Scale(0.5)
		dx[j.qadr+3] = qd.W
		copy(dx[j.qadr+4:j.qadr+7], qd.V[:])
	}
	return dx
}

// contact is the penalty force of the z=0 floor on a body's com sphere.
func (s *Sim) contact(f *frames, qvel []float64, b int) mgl64.Vec3 {
	r := s.model.BodySize[b]
	pen := r - f.com[b].Z()
	if r <= 0 || pen <= 0 {
		return mgl64.Vec3{}
	}
	v := s.pointVelocity(f, qvel, b, f.com[b])
	fz := s.floor.Stiffness*pen - s.floor.Damping*v.Z()
	if fz <= 0 {
		return mgl64.Vec3{}
	}
	slip := math.Hypot(v.X(), v.Y())
	scale := -s.floor.Friction * fz / (slip + 0.01)
	return mgl64.Vec3{scale * v.X(), scale * v.Y(), fz}
}
