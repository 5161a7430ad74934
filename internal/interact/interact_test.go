package interact

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/coords"
	"github.com/san-kum/simbridge/internal/engine"
)

type applied struct {
	force, torque, point mgl64.Vec3
	body                 int
}

type fakeSim struct {
	m     *engine.Model
	d     *engine.Data
	calls []applied
}

func (f *fakeSim) Model() *engine.Model { return f.m }
func (f *fakeSim) Data() *engine.Data   { return f.d }
func (f *fakeSim) Step()                {}
func (f *fakeSim) Forward()             {}
func (f *fakeSim) ResetData()           {}
func (f *fakeSim) ApplyForce(force, torque, point mgl64.Vec3, body int) {
	f.calls = append(f.calls, applied{force, torque, point, body})
}

// world, a free body at (1,2,3) and a mocap body at (0,0,1)
func fixture() (*fakeSim, *buffers.View) {
	m := &engine.Model{
		NBody: 3, NJnt: 1, NQ: 7, NV: 6, NMocap: 1,
		BodyMocapID: []int{-1, -1, 0},
		BodyRootID:  []int{0, 1, 2},
		BodyJntAdr:  []int{-1, 0, -1},
		BodyMass:    []float64{0, 2, 1},
		JntType:     []int{engine.JointFree},
		JntQposAdr:  []int{0},
	}
	d := &engine.Data{
		Qpos:        []float64{1, 2, 3, 1, 0, 0, 0},
		Qvel:        make([]float64, 6),
		QfrcApplied: make([]float64, 6),
		Xpos:        []float64{0, 0, 0, 1, 2, 3, 0, 0, 1},
		Xquat:       []float64{1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0},
		MocapPos:    []float64{0, 0, 1},
		MocapQuat:   []float64{1, 0, 0, 0},
	}
	sim := &fakeSim{m: m, d: d}
	return sim, buffers.New(m, d)
}

func TestNoDragIsNoop(t *testing.T) {
	sim, v := fixture()
	qpos := append([]float64(nil), sim.d.Qpos...)
	mocap := append([]float64(nil), sim.d.MocapPos...)
	m := New(DefaultGains)

	if m.ApplyForce(sim, v) {
		t.Error("ApplyForce reported work without a drag")
	}
	if m.ApplyOffset(v) {
		t.Error("ApplyOffset reported work without a drag")
	}
	m.Move(mgl64.Vec3{5, 5, 5})
	m.Nudge(mgl64.Vec3{1, 0, 0})

	if len(sim.calls) != 0 {
		t.Errorf("engine received %d forces", len(sim.calls))
	}
	for i := range qpos {
		if sim.d.Qpos[i] != qpos[i] {
			t.Fatalf("qpos mutated: %v", sim.d.Qpos)
		}
	}
	for i := range mocap {
		if sim.d.MocapPos[i] != mocap[i] {
			t.Fatalf("mocap_pos mutated: %v", sim.d.MocapPos)
		}
	}
	for _, f := range sim.d.QfrcApplied {
		if f != 0 {
			t.Fatalf("qfrc_applied mutated: %v", sim.d.QfrcApplied)
		}
	}
}

func TestApplyForce_SpringTowardPointer(t *testing.T) {
	sim, v := fixture()
	m := New(DefaultGains)

	hit := coords.ToRender(mgl64.Vec3{1, 2, 3})
	if err := m.Begin(v, 1, hit); err != nil {
		t.Fatal(err)
	}
	// one unit up in the render frame is +z in the engine frame
	m.Move(hit.Add(mgl64.Vec3{0, 1, 0}))

	if !m.ApplyForce(sim, v) {
		t.Fatal("expected a force")
	}
	if len(sim.calls) != 1 {
		t.Fatalf("got %d calls", len(sim.calls))
	}
	c := sim.calls[0]
	if c.body != 1 {
		t.Errorf("body = %d", c.body)
	}
	want := mgl64.Vec3{0, 0, 2 * DefaultGains.Force}
	if !c.force.ApproxEqual(want) {
		t.Errorf("force = %v, want %v", c.force, want)
	}
	if c.torque != (mgl64.Vec3{}) {
		t.Errorf("torque = %v, want zero", c.torque)
	}
	if !c.point.ApproxEqual(mgl64.Vec3{1, 2, 3}) {
		t.Errorf("point = %v", c.point)
	}
}

func TestApplyOffset_FreeJointRoot(t *testing.T) {
	sim, v := fixture()
	m := New(DefaultGains)

	hit := coords.ToRender(mgl64.Vec3{1, 2, 3})
	if err := m.Begin(v, 1, hit); err != nil {
		t.Fatal(err)
	}
	m.Move(hit.Add(mgl64.Vec3{1, 0, 0}))

	if !m.ApplyOffset(v) {
		t.Fatal("expected an offset")
	}
	if got := sim.d.Qpos[0]; !mgl64.FloatEqual(got, 1+DefaultGains.Offset) {
		t.Errorf("qpos[0] = %v", got)
	}
	if sim.d.Qpos[3] != 1 {
		t.Error("offset leaked into the quaternion")
	}
	if sim.d.MocapPos[0] != 0 {
		t.Error("mocap_pos touched for a non-mocap body")
	}
}

func TestApplyOffset_MocapBody(t *testing.T) {
	sim, v := fixture()
	m := New(DefaultGains)

	hit := coords.ToRender(mgl64.Vec3{0, 0, 1})
	if err := m.Begin(v, 2, hit); err != nil {
		t.Fatal(err)
	}
	m.Move(hit.Add(mgl64.Vec3{0, 1, 0}))

	if !m.ApplyOffset(v) {
		t.Fatal("expected an offset")
	}
	if got := sim.d.MocapPos[2]; !mgl64.FloatEqual(got, 1+DefaultGains.Offset) {
		t.Errorf("mocap z = %v", got)
	}
	if sim.d.Qpos[2] != 3 {
		t.Error("qpos touched for a mocap body")
	}
}

func TestBegin_RejectsInvalidBodies(t *testing.T) {
	_, v := fixture()
	m := New(DefaultGains)

	for _, body := range []int{0, -1, 3, 100} {
		if err := m.Begin(v, body, mgl64.Vec3{}); !errors.Is(err, ErrNoBody) {
			t.Errorf("Begin(%d) err = %v", body, err)
		}
	}
	if _, ok := m.Active(); ok {
		t.Error("rejected Begin left a drag behind")
	}
	if err := m.Begin(nil, 1, mgl64.Vec3{}); !errors.Is(err, ErrNoBody) {
		t.Errorf("Begin with nil view err = %v", err)
	}
}

func TestWorldHitFollowsBody(t *testing.T) {
	sim, v := fixture()
	m := New(DefaultGains)

	hit := coords.ToRender(mgl64.Vec3{1, 2, 3.5})
	if err := m.Begin(v, 1, hit); err != nil {
		t.Fatal(err)
	}
	sim.d.Xpos[3] += 1 // body moves +x in the engine frame

	m.ApplyForce(sim, v)
	d, _ := m.Active()
	want := coords.ToRender(mgl64.Vec3{2, 2, 3.5})
	if !d.WorldHit.ApproxEqual(want) {
		t.Errorf("WorldHit = %v, want %v", d.WorldHit, want)
	}
}

func TestEnd(t *testing.T) {
	_, v := fixture()
	m := New(DefaultGains)
	_ = m.Begin(v, 1, mgl64.Vec3{})
	m.End()
	if _, ok := m.Active(); ok {
		t.Error("drag still active after End")
	}
}
