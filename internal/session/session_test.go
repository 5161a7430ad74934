package session_test

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/simbridge/internal/bridge"
	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/engine"
	"github.com/san-kum/simbridge/internal/integrators"
	"github.com/san-kum/simbridge/internal/mirror"
	"github.com/san-kum/simbridge/internal/noise"
	"github.com/san-kum/simbridge/internal/physics"
	"github.com/san-kum/simbridge/internal/session"
)

var scenes = map[string]string{
	"float": `
name: float
timestep: 0.002
gravity: [0, 0, 0]
bodies:
  - {name: box, parent: world, joint: free, pos: [0, 0, 1], mass: 2, size: 0.1}
  - {name: arm, parent: box, joint: hinge, axis: [0, 1, 0], pos: [0.2, 0, 0], com: [0.1, 0, 0], mass: 0.5}
actuators:
  - {name: elbow, body: arm, gear: 1, ctrlrange: [-1, 1]}
  - {name: push, body: box, dof: 0, gear: 1}
`,
	"pair": `
name: pair
timestep: 0.002
bodies:
  - {name: a, parent: world, joint: slide, axis: [1, 0, 0], mass: 1}
  - {name: b, parent: world, joint: slide, axis: [0, 1, 0], mass: 1}
  - {name: c, parent: world, joint: slide, axis: [0, 0, 1], mass: 1}
actuators:
  - {name: ax, body: a}
  - {name: by, body: b}
  - {name: cz, body: c}
`,
}

func load(name string) (engine.Simulation, error) {
	sc, err := physics.ParseScene([]byte(scenes[name]))
	if err != nil {
		return nil, err
	}
	return physics.New(sc, integrators.NewRK4())
}

type node struct{ pos mgl64.Vec3 }

func (n *node) SetPosition(p mgl64.Vec3) { n.pos = p }
func (n *node) SetQuaternion(mgl64.Quat) {}
func (n *node) MarkDirty()               {}

var _ = Describe("Session", func() {
	var (
		s     *session.Session
		nodes map[int]*node
	)

	BeforeEach(func() {
		nodes = map[int]*node{}
		s = session.New(session.Options{
			Load: load,
			Proxies: func(m *engine.Model) *mirror.ProxySet {
				p := &mirror.ProxySet{Bodies: map[int]mirror.Node{}}
				for b := 1; b < m.NBody; b++ {
					n := &node{}
					nodes[b] = n
					p.Bodies[b] = n
				}
				return p
			},
			Seed: 7,
		})
	})

	It("does nothing before a scene is loaded", func() {
		f := s.Frame(100)
		Expect(f.Steps).To(BeZero())
		Expect(s.Do(func(*bridge.Target) {})).To(BeFalse())
		Expect(s.Status().Loaded).To(BeFalse())
	})

	It("applies a queued reload on the next frame", func() {
		s.Send(session.Reload{Scene: "float"})
		Expect(s.Status().Loaded).To(BeFalse())
		s.Frame(0)
		Expect(s.Status().Scene).To(Equal("float"))
	})

	It("reports load failures", func() {
		bad := session.New(session.Options{})
		Expect(bad.Load("float")).To(MatchError(session.ErrNotLoaded))
	})

	Context("with a scene loaded", func() {
		BeforeEach(func() {
			Expect(s.Load("float")).To(Succeed())
		})

		It("steps until the sim clock reaches the frame time", func() {
			f := s.Frame(10)
			Expect(f.Steps).To(Equal(5))
			Expect(f.Time).To(BeNumerically("~", 0.010, 1e-12))
		})

		It("snaps instead of bursting after a stall", func() {
			s.Frame(10)
			f := s.Frame(1000)
			Expect(f.Snapped).To(BeTrue())
			Expect(f.Steps).To(BeZero())
			Expect(s.Frame(1004).Steps).To(Equal(2))
		})

		It("mirrors body poses after each frame", func() {
			s.Frame(2)
			Expect(nodes[1].pos).To(Equal(mgl64.Vec3{0, 1, 0}))
		})

		It("holds the clock while paused", func() {
			s.Send(session.SetPaused{Paused: true})
			f := s.Frame(10)
			Expect(f.Paused).To(BeTrue())
			Expect(f.Steps).To(BeZero())
			Expect(f.Time).To(BeZero())

			s.Send(session.TogglePause{})
			Expect(s.Frame(20).Steps).To(Equal(10))
		})

		It("offsets a free body while paused", func() {
			s.Send(
				session.SetPaused{Paused: true},
				session.BeginDrag{Body: 1, Hit: mgl64.Vec3{0, 1, 0}},
				session.MoveDrag{Current: mgl64.Vec3{1, 1, 0}},
			)
			s.Frame(10)
			s.Do(func(t *bridge.Target) {
				x, _ := t.View.Qpos.At(0)
				Expect(x).To(BeNumerically("~", 0.3, 1e-12))
			})
			Expect(nodes[1].pos[0]).To(BeNumerically("~", 0.3, 1e-12))
		})

		It("pulls a dragged body while running", func() {
			s.Send(
				session.BeginDrag{Body: 1, Hit: mgl64.Vec3{0, 1, 0}},
				session.NudgeDrag{Delta: mgl64.Vec3{0.1, 0, 0}},
			)
			f := s.Frame(10)
			Expect(f.Dragged).To(BeTrue())
			s.Do(func(t *bridge.Target) {
				v, _ := t.View.Qvel.At(0)
				Expect(v).To(BeNumerically(">", 0))
			})

			s.Send(session.EndDrag{})
			s.Frame(12)
			Expect(s.Status().Dragged).To(BeFalse())
		})

		It("rejects dragging the world", func() {
			s.Send(session.BeginDrag{Body: 0})
			s.Frame(2)
			Expect(s.Status().Dragged).To(BeFalse())
		})

		It("leaves controls alone with zero noise", func() {
			s.Do(func(t *bridge.Target) { t.View.Ctrl.Assign([]float64{0.2, 0.4}) })
			s.Frame(50)
			s.Do(func(t *bridge.Target) {
				Expect(t.View.Ctrl.Snapshot()).To(Equal([]float64{0.2, 0.4}))
			})
		})

		It("perturbs controls once noise is enabled", func() {
			s.Send(session.SetNoiseRate{Rate: 0.1}, session.SetNoiseStd{Std: 0.5})
			s.Frame(50)
			Expect(s.Status().Noise).To(Equal(noise.Params{Rate: 0.1, Std: 0.5}))
			s.Do(func(t *bridge.Target) {
				Expect(t.View.Ctrl.Snapshot()).NotTo(Equal([]float64{0, 0}))
			})
		})

		It("ignores negative noise settings", func() {
			s.Send(session.SetNoiseStd{Std: -1}, session.SetNoiseRate{Rate: -1})
			s.Frame(2)
			Expect(s.Status().Noise).To(Equal(noise.Params{}))
		})

		It("resets on command", func() {
			s.Frame(20)
			s.Send(session.Reset{})
			f := s.Frame(22)
			Expect(f.Time).To(BeNumerically("~", 0.002, 1e-12))
		})

		It("rebuilds everything on reload", func() {
			var seen []session.Reloaded
			s.OnReload(func(r session.Reloaded) { seen = append(seen, r) })

			table := bridge.New(s, nil, nil)
			Expect(table.NumActuators()).To(Equal(2))

			s.SetCamera(mirror.Camera{Position: mgl64.Vec3{9, 9, 9}})
			s.Send(session.BeginDrag{Body: 1, Hit: mgl64.Vec3{0, 1, 0}}, session.Reload{Scene: "pair"})
			s.Frame(4)

			Expect(seen).To(HaveLen(1))
			Expect(seen[0].Model.NU).To(Equal(3))
			Expect(table.ActuatorNames()).To(HaveLen(table.NumActuators()))
			Expect(table.ActuatorNames()).To(Equal([]string{"ax", "by", "cz"}))
			Expect(s.Status().Dragged).To(BeFalse())
			Expect(s.Status().Camera).To(Equal(mirror.DefaultCamera))
			Expect(nodes).To(HaveLen(3))
		})

		It("applies a scripted force to the next render-driven step only", func() {
			Expect(s.Load("pair")).To(Succeed())
			table := bridge.New(s, nil, nil)
			s.Frame(0)

			Expect(table.ApplyForce(1, []float64{100, 0, 0})).To(Succeed())
			Expect(s.Frame(16).Steps).To(Equal(8))
			Expect(table.Qvel()[0]).To(BeNumerically("~", 100*0.002, 1e-9))

			s.Frame(32)
			Expect(table.Qvel()[0]).To(BeNumerically("~", 100*0.002, 1e-9))
		})

		It("drops queued forces on reload", func() {
			Expect(s.Load("pair")).To(Succeed())
			table := bridge.New(s, nil, nil)
			Expect(table.ApplyForce(1, []float64{100, 0, 0})).To(Succeed())

			Expect(s.Load("pair")).To(Succeed())
			s.Frame(16)
			Expect(table.Qvel()[0]).To(BeZero())
		})

		It("reports the render clock through get_time, across a snap", func() {
			table := bridge.New(s, nil, nil)
			s.Frame(0)
			s.Frame(16)
			s.Frame(30)
			Expect(table.Time()).To(BeNumerically("~", 0.030, 1e-9))

			f := s.Frame(1000)
			Expect(f.Snapped).To(BeTrue())
			Expect(f.Time).To(BeNumerically("~", 0.030, 1e-9))
			Expect(table.Time()).To(BeNumerically("~", 1.0, 1e-9))

			Expect(table.Reset()).To(Succeed())
			Expect(table.Time()).To(BeNumerically("~", 1.0, 1e-9))
		})

		It("runs observers after each frame", func() {
			var steps []int
			s.Observe(func(f session.Frame, _ engine.Simulation, v *buffers.View) {
				Expect(v).NotTo(BeNil())
				steps = append(steps, f.Steps)
			})
			s.Frame(4)
			s.Frame(10)
			Expect(steps).To(Equal([]int{2, 3}))
		})

		It("serializes bridge calls against frames", func() {
			table := bridge.New(s, nil, nil)
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					table.SetControl([]float64{0.1, 0.2})
					table.Qpos()
				}
			}()
			for i := 1; i <= 200; i++ {
				s.Frame(float64(2 * i))
			}
			wg.Wait()
			Expect(table.Control()).To(Equal([]float64{0.1, 0.2}))
		})
	})
})
