package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/engine"
)

type body struct {
	parent int
	joint  int
	mocap  int
	pos    mgl64.Vec3
	quat   mgl64.Quat
	com    mgl64.Vec3
	mass   float64
	rot    float64 // rotational inertia about the com
}

type joint struct {
	body      int
	typ       int
	axis      mgl64.Vec3
	qadr      int
	dadr      int
	stiffness float64
	damping   float64
	springref float64
}

type actuator struct {
	dof  int
	gear float64
}

type sensor struct {
	typ string
	obj int
}

type site struct {
	body int
	pos  mgl64.Vec3
}

type light struct {
	body int
	pos  mgl64.Vec3
	dir  mgl64.Vec3
}

const armature = 1e-3

func vec3(v []float64, def mgl64.Vec3) mgl64.Vec3 {
	if len(v) < 3 {
		return def
	}
	return mgl64.Vec3{v[0], v[1], v[2]}
}

func quat(v []float64) mgl64.Quat {
	if len(v) < 4 {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: v[0], V: mgl64.Vec3{v[1], v[2], v[3]}}.Normalize()
}

// compile resolves names into indices and lays out the Model and Data
// arrays. Bodies must be declared after their parents.
func (s *Sim) compile(sc *Scene) error {
	m := &engine.Model{Name: sc.Name, Timestep: sc.Timestep}
	bodyID := map[string]int{"world": 0, "": 0}

	s.bodies = []body{{parent: -1, joint: -1, mocap: -1, quat: mgl64.QuatIdent()}}
	m.BodyNames = []string{"world"}
	m.BodyParentID = []int{-1}
	m.BodyRootID = []int{0}
	m.BodyJntAdr = []int{-1}
	m.BodyMocapID = []int{-1}
	m.BodyMass = []float64{0}
	m.BodySize = []float64{0}

	var qpos0 []float64
	for i, bd := range sc.Bodies {
		if bd.Name == "" {
			bd.Name = fmt.Sprintf("body_%d", i+1)
		}
		if _, dup := bodyID[bd.Name]; dup {
			return fmt.Errorf("%w: duplicate body %q", ErrBadScene, bd.Name)
		}
		parent, ok := bodyID[bd.Parent]
		if !ok {
			return fmt.Errorf("%w: body %q has unknown parent %q", ErrBadScene, bd.Name, bd.Parent)
		}
		id := len(s.bodies)
		b := body{
			parent: parent,
			joint:  -1,
			mocap:  -1,
			pos:    vec3(bd.Pos, mgl64.Vec3{}),
			quat:   quat(bd.Quat),
			com:    vec3(bd.COM, mgl64.Vec3{}),
			mass:   bd.Mass,
			rot:    0.4*bd.Mass*bd.Size*bd.Size + armature,
		}

		switch bd.Joint {
		case "", "weld":
		case "mocap":
			if parent != 0 {
				return fmt.Errorf("%w: mocap body %q must be a child of world", ErrBadScene, bd.Name)
			}
			b.mocap = m.NMocap
			m.NMocap++
		case "free":
			if parent != 0 {
				return fmt.Errorf("%w: free body %q must be a child of world", ErrBadScene, bd.Name)
			}
			b.com = mgl64.Vec3{}
			b.joint = len(s.joints)
			s.joints = append(s.joints, joint{body: id, typ: engine.JointFree, qadr: m.NQ, dadr: m.NV})
			qpos0 = append(qpos0, b.pos[0], b.pos[1], b.pos[2], b.quat.W, b.quat.V[0], b.quat.V[1], b.quat.V[2])
			m.NQ += 7
			m.NV += 6
		case "hinge", "slide":
			typ := engine.JointHinge
			if bd.Joint == "slide" {
				typ = engine.JointSlide
			}
			axis := vec3(bd.Axis, mgl64.Vec3{0, 0, 1})
			if axis.Len() == 0 {
				return fmt.Errorf("%w: body %q has a zero joint axis", ErrBadScene, bd.Name)
			}
			b.joint = len(s.joints)
			s.joints = append(s.joints, joint{
				body:      id,
				typ:       typ,
				axis:      axis.Normalize(),
				qadr:      m.NQ,
				dadr:      m.NV,
				stiffness: bd.Stiffness,
				damping:   bd.Damping,
				springref: bd.SpringRef,
			})
			qpos0 = append(qpos0, 0)
			m.NQ++
			m.NV++
		default:
			return fmt.Errorf("%w: body %q has unknown joint %q", ErrBadScene, bd.Name, bd.Joint)
		}

		root := id
		if parent != 0 {
			root = m.BodyRootID[parent]
		}
		bodyID[bd.Name] = id
		s.bodies = append(s.bodies, b)
		m.BodyNames = append(m.BodyNames, bd.Name)
		m.BodyParentID = append(m.BodyParentID, parent)
		m.BodyRootID = append(m.BodyRootID, root)
		m.BodyJntAdr = append(m.BodyJntAdr, b.joint)
		m.BodyMocapID = append(m.BodyMocapID, b.mocap)
		m.BodyMass = append(m.BodyMass, bd.Mass)
		m.BodySize = append(m.BodySize, bd.Size)
		if b.joint >= 0 {
			m.JointNames = append(m.JointNames, bd.Name)
		}
	}
	m.NBody = len(s.bodies)
	m.NJnt = len(s.joints)
	for _, j := range s.joints {
		m.JntType = append(m.JntType, j.typ)
		m.JntQposAdr = append(m.JntQposAdr, j.qadr)
		m.JntDofAdr = append(m.JntDofAdr, j.dadr)
	}
	s.qpos0 = qpos0

	if err := s.compileActuators(sc, m, bodyID); err != nil {
		return err
	}
	if err := s.compileTendons(sc, m, bodyID); err != nil {
		return err
	}
	if err := s.compileSensors(sc, m, bodyID); err != nil {
		return err
	}
	for _, c := range sc.Cameras {
		pos := vec3(c.Pos, mgl64.Vec3{2, -2, 1.5})
		target := vec3(c.Target, mgl64.Vec3{0, 0, 0.5})
		m.CamPos = append(m.CamPos, pos[:]...)
		m.CamTarget = append(m.CamTarget, target[:]...)
		m.CameraNames = append(m.CameraNames, c.Name)
	}
	m.NCam = len(sc.Cameras)
	for _, l := range sc.Lights {
		id, ok := bodyID[l.Body]
		if !ok {
			return fmt.Errorf("%w: light %q on unknown body %q", ErrBadScene, l.Name, l.Body)
		}
		s.lights = append(s.lights, light{
			body: id,
			pos:  vec3(l.Pos, mgl64.Vec3{0, 0, 3}),
			dir:  vec3(l.Dir, mgl64.Vec3{0, 0, -1}).Normalize(),
		})
		m.LightNames = append(m.LightNames, l.Name)
	}
	m.NLight = len(s.lights)

	s.model = m
	return nil
}

func (s *Sim) compileActuators(sc *Scene, m *engine.Model, bodyID map[string]int) error {
	for _, a := range sc.Actuators {
		id, ok := bodyID[a.Body]
		if !ok || s.bodies[id].joint < 0 {
			return fmt.Errorf("%w: actuator %q needs a jointed body, got %q", ErrBadScene, a.Name, a.Body)
		}
		j := s.joints[s.bodies[id].joint]
		dof := j.dadr
		if j.typ == engine.JointFree {
			if a.Dof < 0 || a.Dof > 5 {
				return fmt.Errorf("%w: actuator %q dof %d out of range", ErrBadScene, a.Name, a.Dof)
			}
			dof += a.Dof
		}
		gear := a.Gear
		if gear == 0 {
			gear = 1
		}
		s.actuators = append(s.actuators, actuator{dof: dof, gear: gear})
		m.ActuatorNames = append(m.ActuatorNames, a.Name)
		limited := len(a.CtrlRange) == 2 && a.CtrlRange[0] < a.CtrlRange[1]
		m.ActuatorCtrlLimited = append(m.ActuatorCtrlLimited, limited)
		if limited {
			m.ActuatorCtrlRange = append(m.ActuatorCtrlRange, a.CtrlRange[0], a.CtrlRange[1])
		} else {
			m.ActuatorCtrlRange = append(m.ActuatorCtrlRange, 0, 0)
		}
	}
	m.NU = len(s.actuators)
	return nil
}

func (s *Sim) compileTendons(sc *Scene, m *engine.Model, bodyID map[string]int) error {
	for _, t := range sc.Tendons {
		m.TendonNames = append(m.TendonNames, t.Name)
		m.TendonWidth = append(m.TendonWidth, t.Width)
		adr := len(s.sites)
		for _, p := range t.Points {
			id, ok := bodyID[p.Body]
			if !ok {
				return fmt.Errorf("%w: tendon %q passes unknown body %q", ErrBadScene, t.Name, p.Body)
			}
			s.sites = append(s.sites, site{body: id, pos: vec3(p.Pos, mgl64.Vec3{})})
		}
		s.wrapAdr = append(s.wrapAdr, adr)
		s.wrapNum = append(s.wrapNum, len(t.Points))
	}
	m.NTendon = len(sc.Tendons)
	return nil
}

func (s *Sim) compileSensors(sc *Scene, m *engine.Model, bodyID map[string]int) error {
	actID := make(map[string]int, len(m.ActuatorNames))
	for i, n := range m.ActuatorNames {
		actID[n] = i
	}
	for _, sd := range sc.Sensors {
		var obj, dim int
		switch sd.Type {
		case "framepos", "framelinvel":
			id, ok := bodyID[sd.Body]
			if !ok {
				return fmt.Errorf("%w: sensor %q on unknown body %q", ErrBadScene, sd.Name, sd.Body)
			}
			obj, dim = id, 3
		case "jointpos":
			id, ok := bodyID[sd.Body]
			if !ok || s.bodies[id].joint < 0 || s.joints[s.bodies[id].joint].typ == engine.JointFree {
				return fmt.Errorf("%w: sensor %q needs a hinge or slide body", ErrBadScene, sd.Name)
			}
			obj, dim = s.bodies[id].joint, 1
		case "actuatorfrc":
			id, ok := actID[sd.Actuator]
			if !ok {
				return fmt.Errorf("%w: sensor %q on unknown actuator %q", ErrBadScene, sd.Name, sd.Actuator)
			}
			obj, dim = id, 1
		default:
			return fmt.Errorf("%w: sensor %q has unknown type %q", ErrBadScene, sd.Name, sd.Type)
		}
		s.sensors = append(s.sensors, sensor{typ: sd.Type, obj: obj})
		m.SensorNames = append(m.SensorNames, sd.Name)
		m.SensorAdr = append(m.SensorAdr, m.NSensorData)
		m.SensorDim = append(m.SensorDim, dim)
		m.NSensorData += dim
	}
	m.NSensor = len(s.sensors)
	return nil
}

// allocate sizes every Data array once.
func (s *Sim) allocate() {
	m := s.model
	s.data = &engine.Data{
		Qpos:        make([]float64, m.NQ),
		Qvel:        make([]float64, m.NV),
		Ctrl:        make([]float64, m.NU),
		QfrcApplied: make([]float64, m.NV),
		Xpos:        make([]float64, 3*m.NBody),
		Xquat:       make([]float64, 4*m.NBody),
		LightXpos:   make([]float64, 3*m.NLight),
		LightXdir:   make([]float64, 3*m.NLight),
		MocapPos:    make([]float64, 3*m.NMocap),
		MocapQuat:   make([]float64, 4*m.NMocap),
		TenWrapAdr:  append([]int(nil), s.wrapAdr...),
		TenWrapNum:  append([]int(nil), s.wrapNum...),
		WrapXpos:    make([]float64, 3*len(s.sites)),
		SensorData:  make([]float64, m.NSensorData),
	}
	s.frames = newFrames(m.NBody, m.NJnt)
	s.scratchFrames = newFrames(m.NBody, m.NJnt)
	s.x = make([]float64, m.NQ+m.NV)
	s.u = make([]float64, m.NU)
}
