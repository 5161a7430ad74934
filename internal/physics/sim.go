package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/dynamo"
	"github.com/san-kum/simbridge/internal/engine"
)

// Sim is a small rigid-body engine: a tree of point-mass bodies with free,
// hinge and slide joints, a lumped (diagonal) mass matrix, gravity, joint
// springs and dampers, and a penalty floor. It exists so the bridge has
// something real to drive and is not a general articulated solver.
type Sim struct {
	scene *Scene
	model *engine.Model
	data  *engine.Data
	integ dynamo.Integrator

	bodies    []body
	joints    []joint
	actuators []actuator
	sensors   []sensor
	sites     []site
	wrapAdr   []int
	wrapNum   []int
	lights    []light

	gravity mgl64.Vec3
	damping DampingDef
	floor   FloorDef

	qpos0      []float64
	mocapPos0  []mgl64.Vec3
	mocapQuat0 []mgl64.Quat

	frames        *frames
	scratchFrames *frames
	x             dynamo.State
	u             dynamo.Control

	unstable int
}

var (
	_ engine.Simulation = (*Sim)(nil)
	_ dynamo.System     = (*Sim)(nil)
	_ dynamo.Normalizer = (*Sim)(nil)
)

// New compiles a scene and steps it with integ.
func New(sc *Scene, integ dynamo.Integrator) (*Sim, error) {
	s := &Sim{
		scene:   sc,
		integ:   integ,
		gravity: vec3(sc.Gravity, mgl64.Vec3{0, 0, -9.81}),
		damping: sc.Damping,
		floor:   sc.Floor,
	}
	if err := s.compile(sc); err != nil {
		return nil, err
	}
	s.allocate()
	for _, b := range s.bodies {
		if b.mocap >= 0 {
			s.mocapPos0 = append(s.mocapPos0, b.pos)
			s.mocapQuat0 = append(s.mocapQuat0, b.quat)
		}
	}
	s.ResetData()
	s.Forward()
	return s, nil
}

func (s *Sim) Model() *engine.Model { return s.model }
func (s *Sim) Data() *engine.Data   { return s.data }
func (s *Sim) Scene() *Scene        { return s.scene }

// Unstable counts automatic resets after the state diverged.
func (s *Sim) Unstable() int { return s.unstable }

func (s *Sim) StateDim() int   { return s.model.NQ + s.model.NV }
func (s *Sim) ControlDim() int { return s.model.NU }

// ResetData restores qpos0, zero velocity, zero controls and the initial
// mocap poses. Derived quantities are stale until Forward.
func (s *Sim) ResetData() {
	d := s.data
	d.Time = 0
	copy(d.Qpos, s.qpos0)
	zero(d.Qvel)
	zero(d.Ctrl)
	zero(d.QfrcApplied)
	zero(d.SensorData)
	for i, p := range s.mocapPos0 {
		q := s.mocapQuat0[i]
		copy(d.MocapPos[3*i:], p[:])
		d.MocapQuat[4*i] = q.W
		copy(d.MocapQuat[4*i+1:4*i+4], q.V[:])
	}
}

// Step integrates one timestep with QfrcApplied and Ctrl held constant.
func (s *Sim) Step() {
	m, d := s.model, s.data
	copy(s.x, d.Qpos)
	copy(s.x[m.NQ:], d.Qvel)
	for i := range s.u {
		s.u[i] = s.ctrl(i)
	}

	next := s.integ.Step(s, s.x, s.u, d.Time, m.Timestep)
	s.Normalize(next)
	if dynamo.Validate(s, next) != nil {
		s.unstable++
		s.ResetData()
		s.Forward()
		return
	}
	copy(d.Qpos, next[:m.NQ])
	copy(d.Qvel, next[m.NQ:])
	d.Time += m.Timestep
	s.Forward()
}

// ctrl returns the range-clamped control of actuator i.
func (s *Sim) ctrl(i int) float64 {
	c := s.data.Ctrl[i]
	if s.model.ActuatorCtrlLimited[i] {
		lo, hi := s.model.ActuatorCtrlRange[2*i], s.model.ActuatorCtrlRange[2*i+1]
		c = math.Max(lo, math.Min(hi, c))
	}
	return c
}

// Normalize projects free-joint quaternions back onto the unit sphere.
func (s *Sim) Normalize(x dynamo.State) {
	for _, j := range s.joints {
		if j.typ != engine.JointFree {
			continue
		}
		q := x[j.qadr+3 : j.qadr+7]
		n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
		if n == 0 {
			q[0] = 1
			continue
		}
		for i := range q {
			q[i] /= n
		}
	}
}

// Forward recomputes body poses, lights, tendon paths and sensors from
// the current qpos and qvel.
func (s *Sim) Forward() {
	d := s.data
	f := s.frames
	s.kinematics(d.Qpos, f)

	for b := range s.bodies {
		p, q := f.xpos[b], f.xquat[b]
		copy(d.Xpos[3*b:], p[:])
		d.Xquat[4*b] = q.W
		copy(d.Xquat[4*b+1:4*b+4], q.V[:])
	}
	for i, l := range s.lights {
		q := f.xquat[l.body]
		p := f.xpos[l.body].Add(q.Rotate(l.pos))
		dir := q.Rotate(l.dir)
		copy(d.LightXpos[3*i:], p[:])
		copy(d.LightXdir[3*i:], dir[:])
	}
	for i, st := range s.sites {
		p := f.xpos[st.body].Add(f.xquat[st.body].Rotate(st.pos))
		copy(d.WrapXpos[3*i:], p[:])
	}
	s.readSensors(f)
}

func (s *Sim) readSensors(f *frames) {
	d := s.data
	for i, sn := range s.sensors {
		adr := s.model.SensorAdr[i]
		switch sn.typ {
		case "framepos":
			copy(d.SensorData[adr:adr+3], f.xpos[sn.obj][:])
		case "framelinvel":
			v := s.pointVelocity(f, d.Qvel, sn.obj, f.xpos[sn.obj])
			copy(d.SensorData[adr:adr+3], v[:])
		case "jointpos":
			d.SensorData[adr] = d.Qpos[s.joints[sn.obj].qadr]
		case "actuatorfrc":
			d.SensorData[adr] = s.ctrl(sn.obj) * s.actuators[sn.obj].gear
		}
	}
}

// ApplyForce maps a world-frame wrench at point on body into generalized
// forces and accumulates them into QfrcApplied.
func (s *Sim) ApplyForce(force, torque, point mgl64.Vec3, b int) {
	if b <= 0 || b >= len(s.bodies) {
		return
	}
	qfrc := s.data.QfrcApplied
	s.eachDof(s.frames, b, point, func(dof int, lin, ang mgl64.Vec3) {
		qfrc[dof] += lin.Dot(force) + ang.Dot(torque)
	})
}

// Energy is kinetic energy under the lumped mass matrix plus
// gravitational potential energy.
func (s *Sim) Energy() float64 {
	f := s.scratchFrames
	s.kinematics(s.data.Qpos, f)
	mass := s.massDiag(f)
	e := 0.0
	for i, v := range s.data.Qvel {
		e += 0.5 * mass[i] * v * v
	}
	for b := 1; b < len(s.bodies); b++ {
		e -= s.bodies[b].mass * s.gravity.Dot(f.com[b])
	}
	return e
}

func zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}
