package buffers

import "github.com/san-kum/simbridge/internal/engine"

// Limit is an actuator control range.
type Limit struct {
	Lo, Hi  float64
	Limited bool
}

// Clamp returns v restricted to the range when the actuator is limited.
func (l Limit) Clamp(v float64) float64 {
	if !l.Limited {
		return v
	}
	if v < l.Lo {
		return l.Lo
	}
	if v > l.Hi {
		return l.Hi
	}
	return v
}

// View bundles every array the orchestration layer touches, each sized by
// the Model that owns it.
type View struct {
	Qpos        Scalars
	Qvel        Scalars
	Ctrl        Scalars
	QfrcApplied Scalars
	SensorData  Scalars

	Xpos      Vec3s
	Xquat     Quats
	LightXpos Vec3s
	LightXdir Vec3s
	MocapPos  Vec3s
	MocapQuat Quats
	WrapXpos  Vec3s

	TenWrapAdr Ints
	TenWrapNum Ints

	BodyMass    Scalars
	BodyMocapID Ints
	BodyRootID  Ints
	BodyJntAdr  Ints
	JntType     Ints
	JntQposAdr  Ints
	TendonWidth Scalars

	Limits []Limit
}

// New builds a View. It returns nil when either side is missing.
func New(m *engine.Model, d *engine.Data) *View {
	if m == nil || d == nil {
		return nil
	}
	v := &View{
		Qpos:        NewScalars(d.Qpos, m.NQ),
		Qvel:        NewScalars(d.Qvel, m.NV),
		Ctrl:        NewScalars(d.Ctrl, m.NU),
		QfrcApplied: NewScalars(d.QfrcApplied, m.NV),
		SensorData:  NewScalars(d.SensorData, m.NSensorData),

		Xpos:      NewVec3s(d.Xpos, m.NBody),
		Xquat:     NewQuats(d.Xquat, m.NBody),
		LightXpos: NewVec3s(d.LightXpos, m.NLight),
		LightXdir: NewVec3s(d.LightXdir, m.NLight),
		MocapPos:  NewVec3s(d.MocapPos, m.NMocap),
		MocapQuat: NewQuats(d.MocapQuat, m.NMocap),
		WrapXpos:  NewVec3s(d.WrapXpos, len(d.WrapXpos)/3),

		TenWrapAdr: NewInts(d.TenWrapAdr, m.NTendon),
		TenWrapNum: NewInts(d.TenWrapNum, m.NTendon),

		BodyMass:    NewScalars(m.BodyMass, m.NBody),
		BodyMocapID: NewInts(m.BodyMocapID, m.NBody),
		BodyRootID:  NewInts(m.BodyRootID, m.NBody),
		BodyJntAdr:  NewInts(m.BodyJntAdr, m.NBody),
		JntType:     NewInts(m.JntType, m.NJnt),
		JntQposAdr:  NewInts(m.JntQposAdr, m.NJnt),
		TendonWidth: NewScalars(m.TendonWidth, m.NTendon),
	}

	v.Limits = make([]Limit, v.Ctrl.Len())
	for i := range v.Limits {
		if i < len(m.ActuatorCtrlLimited) && m.ActuatorCtrlLimited[i] && 2*i+1 < len(m.ActuatorCtrlRange) {
			v.Limits[i] = Limit{Lo: m.ActuatorCtrlRange[2*i], Hi: m.ActuatorCtrlRange[2*i+1], Limited: true}
		}
	}
	return v
}

// Range returns the control range of actuator i, defaulting to [-1, 1]
// for unlimited actuators.
func (v *View) Range(i int) (lo, hi float64, ok bool) {
	if i < 0 || i >= len(v.Limits) {
		return 0, 0, false
	}
	if l := v.Limits[i]; l.Limited {
		return l.Lo, l.Hi, true
	}
	return -1, 1, true
}
