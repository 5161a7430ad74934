package bridge_test

import (
	"bytes"
	"errors"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/simbridge/internal/bridge"
	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/engine"
	"github.com/san-kum/simbridge/internal/mirror"
)

type wrench struct {
	force, torque, point mgl64.Vec3
	body                 int
}

type fakeSim struct {
	model    *engine.Model
	data     *engine.Data
	steps    int
	resets   int
	forwards int
	forces   []wrench
}

func (f *fakeSim) Model() *engine.Model { return f.model }
func (f *fakeSim) Data() *engine.Data   { return f.data }
func (f *fakeSim) Step() {
	f.steps++
	f.data.Time += f.model.Timestep
}
func (f *fakeSim) Forward()   { f.forwards++ }
func (f *fakeSim) ResetData() { f.resets++; f.data.Time = 0 }
func (f *fakeSim) ApplyForce(force, torque, point mgl64.Vec3, body int) {
	f.forces = append(f.forces, wrench{force, torque, point, body})
}

func newFakeSim(nu int) *fakeSim {
	m := &engine.Model{
		Name:                "fake",
		Timestep:            0.01,
		NBody:               3,
		NJnt:                1,
		NQ:                  7,
		NV:                  6,
		NU:                  nu,
		NSensor:             1,
		NSensorData:         3,
		NCam:                1,
		BodyNames:           []string{"world", "torso", ""},
		BodyMass:            []float64{0, 1, 1},
		CamPos:              []float64{1, 2, 3},
		CamTarget:           []float64{0, 0, 1},
		CameraNames:         []string{"front"},
		SensorNames:         []string{"pos"},
		ActuatorCtrlLimited: make([]bool, nu),
		ActuatorCtrlRange:   make([]float64, 2*nu),
	}
	for i := 0; i < nu; i++ {
		m.ActuatorNames = append(m.ActuatorNames, "")
	}
	if nu > 0 {
		m.ActuatorNames[0] = "hip"
		m.ActuatorCtrlLimited[0] = true
		m.ActuatorCtrlRange[0], m.ActuatorCtrlRange[1] = -2, 2
	}
	d := &engine.Data{
		Qpos:        []float64{0, 0, 1, 1, 0, 0, 0},
		Qvel:        make([]float64, 6),
		Ctrl:        make([]float64, nu),
		QfrcApplied: make([]float64, 6),
		Xpos:        []float64{0, 0, 0, 0, 0, 1, 0.5, 0, 1},
		Xquat:       make([]float64, 12),
		SensorData:  []float64{0, 0, 1},
	}
	return &fakeSim{model: m, data: d}
}

type fakeHost struct {
	mu     sync.Mutex
	target *bridge.Target
}

func (h *fakeHost) Do(fn func(*bridge.Target)) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.target == nil {
		return false
	}
	fn(h.target)
	return true
}

func (h *fakeHost) load(sim *fakeSim) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cam := mirror.DefaultCamera
	h.target = &bridge.Target{Sim: sim, View: buffers.New(sim.model, sim.data), Camera: &cam}
}

type recorder map[string]any

func (r recorder) Set(name string, v any) error {
	if name == "reset" {
		return errors.New("reserved")
	}
	r[name] = v
	return nil
}

var _ = Describe("Table", func() {
	var (
		host  *fakeHost
		sim   *fakeSim
		table *bridge.Table
		out   *bytes.Buffer
	)

	BeforeEach(func() {
		host = &fakeHost{}
		sim = newFakeSim(3)
		host.load(sim)
		out = &bytes.Buffer{}
		table = bridge.New(host, out, nil)
	})

	Describe("set_control", func() {
		It("truncates to the actuator count", func() {
			Expect(table.SetControl([]any{1.0, 2.0, 3.0, 4.0, 5.0})).To(Succeed())
			Expect(sim.data.Ctrl).To(Equal([]float64{1, 2, 3}))
		})

		It("leaves the tail untouched on short input", func() {
			copy(sim.data.Ctrl, []float64{7, 8, 9})
			Expect(table.SetControl([]any{int64(1)})).To(Succeed())
			Expect(sim.data.Ctrl).To(Equal([]float64{1, 8, 9}))
		})

		It("round-trips through get_control", func() {
			Expect(table.SetControl([]float64{0.1, -0.2, 0.3})).To(Succeed())
			Expect(table.Control()).To(Equal([]float64{0.1, -0.2, 0.3}))
		})

		It("accepts a JSON array string", func() {
			Expect(table.SetControl("[0.5, 0.25]")).To(Succeed())
			Expect(sim.data.Ctrl).To(Equal([]float64{0.5, 0.25, 0}))
		})

		It("rejects a nil payload", func() {
			Expect(table.SetControl(nil)).To(MatchError(bridge.ErrPayload))
		})

		DescribeTable("rejects malformed payloads without writing",
			func(payload any) {
				copy(sim.data.Ctrl, []float64{7, 8, 9})
				Expect(table.SetControl(payload)).To(MatchError(bridge.ErrPayload))
				Expect(sim.data.Ctrl).To(Equal([]float64{7, 8, 9}))
			},
			Entry("bad json", "[1, 2"),
			Entry("mixed element", []any{1.0, "two", 3.0}),
			Entry("object", map[string]any{"a": 1}),
			Entry("json object", `{"a": 1}`),
		)
	})

	It("returns copies on read", func() {
		q := table.Qpos()
		q[0] = 99
		Expect(sim.data.Qpos[0]).To(Equal(0.0))
		c := table.Control()
		c[0] = 99
		Expect(sim.data.Ctrl[0]).To(Equal(0.0))
	})

	It("names unnamed entries by index", func() {
		Expect(table.ActuatorNames()).To(Equal([]string{"hip", "actuator_1", "actuator_2"}))
		Expect(table.BodyNames()).To(Equal([]string{"world", "torso", "body_2"}))
	})

	It("reports ranges with a [-1, 1] default", func() {
		Expect(table.ActuatorRanges()).To(Equal([][]float64{{-2, 2}, {-1, 1}, {-1, 1}}))
	})

	It("tracks a reload", func() {
		host.load(newFakeSim(5))
		Expect(table.NumActuators()).To(Equal(5))
		Expect(table.ActuatorNames()).To(HaveLen(table.NumActuators()))
		Expect(table.Control()).To(HaveLen(5))
	})

	Describe("apply_force", func() {
		It("pads the wrench and defaults the point to the body position", func() {
			Expect(table.ApplyForce(1, []any{0.0, 0.0, 10.0})).To(Succeed())
			Expect(sim.forces).To(HaveLen(1))
			Expect(sim.forces[0].force).To(Equal(mgl64.Vec3{0, 0, 10}))
			Expect(sim.forces[0].torque).To(Equal(mgl64.Vec3{}))
			Expect(sim.forces[0].point).To(Equal(mgl64.Vec3{0, 0, 1}))
		})

		It("uses an explicit point", func() {
			Expect(table.ApplyForce(2, []float64{1, 0, 0, 0, 0, 1}, []any{1.0, 1.0, 1.0})).To(Succeed())
			Expect(sim.forces[0].point).To(Equal(mgl64.Vec3{1, 1, 1}))
			Expect(sim.forces[0].torque).To(Equal(mgl64.Vec3{0, 0, 1}))
		})

		It("rejects the world and out-of-range bodies", func() {
			Expect(table.ApplyForce(0, []float64{1})).To(MatchError(bridge.ErrIndexRange))
			Expect(table.ApplyForce(3, []float64{1})).To(MatchError(bridge.ErrIndexRange))
			Expect(table.ApplyForce(-1, []float64{1})).To(MatchError(bridge.ErrIndexRange))
			Expect(sim.forces).To(BeEmpty())
		})

		Context("when the host queues forces", func() {
			var queue []bridge.Wrench

			BeforeEach(func() {
				queue = nil
				host.target.Forces = &queue
			})

			It("defers the wrench until the next step", func() {
				Expect(table.ApplyForce(1, []float64{0, 0, 10})).To(Succeed())
				Expect(sim.forces).To(BeEmpty())
				Expect(queue).To(HaveLen(1))
				Expect(queue[0].Body).To(Equal(1))
				Expect(queue[0].Point).To(Equal(mgl64.Vec3{0, 0, 1}))
			})

			It("spends the queue on the first scripted step", func() {
				Expect(table.ApplyForce(1, []float64{0, 0, 10})).To(Succeed())
				sim.data.QfrcApplied[2] = 7
				Expect(table.Step(3)).To(Equal(3))
				Expect(sim.forces).To(HaveLen(1))
				Expect(queue).To(BeEmpty())
				Expect(sim.data.QfrcApplied).To(Equal(make([]float64, 6)))
			})
		})
	})

	It("steps without a count and with one", func() {
		Expect(table.Step()).To(Equal(1))
		Expect(table.Step(4)).To(Equal(4))
		Expect(sim.steps).To(Equal(5))
		Expect(sim.data.Time).To(BeNumerically("~", 0.05, 1e-12))
	})

	It("reads time from the host clock, not the engine", func() {
		host.target.Clock = 1.25
		table.Step(4)
		Expect(table.Time()).To(Equal(1.25))
	})

	It("resets and recomputes", func() {
		table.Step(3)
		Expect(table.Reset()).To(Succeed())
		Expect(sim.resets).To(Equal(1))
		Expect(sim.forwards).To(Equal(1))
		Expect(table.Time()).To(Equal(0.0))
	})

	Describe("cameras", func() {
		It("moves the viewer to a model camera in the render frame", func() {
			Expect(table.UseCamera(0)).To(Succeed())
			pose := table.CameraPose()
			Expect(pose["position"]).To(Equal([]float64{1, 3, -2}))
			Expect(pose["target"]).To(Equal([]float64{0, 1, 0}))
		})

		It("rejects unknown cameras", func() {
			Expect(table.UseCamera(1)).To(MatchError(bridge.ErrIndexRange))
		})

		It("sets the pose directly", func() {
			Expect(table.SetCameraPose([]any{1.0, 2.0, 3.0}, "[0, 0, 0]")).To(Succeed())
			Expect(table.CameraPose()["position"]).To(Equal([]float64{1, 2, 3}))
			Expect(table.SetCameraPose([]any{1.0}, []any{0.0, 0.0, 0.0})).To(MatchError(bridge.ErrPayload))
		})
	})

	It("prints model info", func() {
		s := table.PrintInfo()
		Expect(s).To(ContainSubstring("model: fake"))
		Expect(s).To(ContainSubstring("hip"))
		Expect(out.String()).To(Equal(s))
	})

	Describe("registration", func() {
		It("binds every name in a stable order", func() {
			r := recorder{}
			err := table.Register(r)
			Expect(err).To(MatchError(ContainSubstring("register reset")))

			names := table.Names()
			Expect(names[0]).To(Equal("get_control"))
			Expect(names[len(names)-1]).To(Equal("print_info"))
			Expect(r).To(HaveKey("set_control"))
			Expect(r).NotTo(HaveKey("apply_force"))
		})

		It("exposes script-facing wrappers", func() {
			fn, ok := table.Func("set_control")
			Expect(ok).To(BeTrue())
			Expect(fn.(func(any) bool)([]any{1.0})).To(BeTrue())
			Expect(fn.(func(any) bool)("oops")).To(BeFalse())
		})
	})

	Context("with nothing loaded", func() {
		BeforeEach(func() {
			host = &fakeHost{}
			table = bridge.New(host, out, nil)
		})

		It("returns benign defaults", func() {
			Expect(table.Control()).To(BeEmpty())
			Expect(table.Qpos()).To(BeEmpty())
			Expect(table.Time()).To(Equal(0.0))
			Expect(table.NumActuators()).To(Equal(0))
			Expect(table.ActuatorNames()).To(BeEmpty())
			Expect(table.ActuatorRanges()).To(BeEmpty())
			Expect(table.CameraPose()).To(BeNil())
			Expect(table.Step()).To(Equal(0))
			Expect(table.Info()).To(Equal("no model loaded\n"))
		})

		It("reports the missing session to Go callers", func() {
			Expect(table.SetControl([]float64{1})).To(MatchError(bridge.ErrNoSession))
			Expect(table.Reset()).To(MatchError(bridge.ErrNoSession))
			Expect(table.ApplyForce(1, []float64{1})).To(MatchError(bridge.ErrNoSession))
			Expect(table.UseCamera(0)).To(MatchError(bridge.ErrNoSession))
		})
	})
})
