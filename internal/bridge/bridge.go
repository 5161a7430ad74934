package bridge

import (
	"errors"
	"fmt"
	"io"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/coords"
	"github.com/san-kum/simbridge/internal/engine"
	"github.com/san-kum/simbridge/internal/logging"
	"github.com/san-kum/simbridge/internal/mirror"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoSession  = errors.New("bridge: no simulation loaded")
	ErrIndexRange = errors.New("bridge: index out of range")
	ErrPayload    = errors.New("bridge: malformed payload")
)

// maxSteps bounds a single step(n) call.
const maxSteps = 10000

// Target is what a bridge call sees while it holds the host's lock.
type Target struct {
	Sim    engine.Simulation
	View   *buffers.View
	Camera *mirror.Camera
	// Clock is the render-driven simulation time in seconds.
	Clock float64
	// Forces queues wrenches for the next step. When nil they go straight
	// into the engine.
	Forces *[]Wrench
}

// Wrench is a world-frame force and torque acting at Point on Body.
type Wrench struct {
	Body          int
	Force, Torque mgl64.Vec3
	Point         mgl64.Vec3
}

// ApplyQueued hands every queued wrench to the engine and empties the
// queue. It reports whether anything was applied.
func (tg *Target) ApplyQueued() bool {
	if tg.Forces == nil || len(*tg.Forces) == 0 {
		return false
	}
	for _, w := range *tg.Forces {
		tg.Sim.ApplyForce(w.Force, w.Torque, w.Point, w.Body)
	}
	*tg.Forces = (*tg.Forces)[:0]
	return true
}

// Host runs fn with exclusive access to the loaded simulation and reports
// whether one was loaded.
type Host interface {
	Do(fn func(t *Target)) bool
}

// Registrar binds a value to a global name in an interpreter.
type Registrar interface {
	Set(name string, value any) error
}

// Table is the fixed set of script-visible functions.
type Table struct {
	host Host
	out  io.Writer
	log  logrus.FieldLogger
	fns  *orderedmap.OrderedMap[string, any]
}

// New builds the table. print_info writes to out.
func New(host Host, out io.Writer, log logrus.FieldLogger) *Table {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = logging.Discard()
	}
	t := &Table{host: host, out: out, log: log, fns: orderedmap.NewOrderedMap[string, any]()}

	t.fns.Set("get_control", t.Control)
	t.fns.Set("set_control", func(v any) bool { return t.SetControl(v) == nil })
	t.fns.Set("get_qpos", t.Qpos)
	t.fns.Set("get_qvel", t.Qvel)
	t.fns.Set("get_time", t.Time)
	t.fns.Set("get_num_actuators", t.NumActuators)
	t.fns.Set("get_actuator_names", t.ActuatorNames)
	t.fns.Set("get_actuator_ranges", t.ActuatorRanges)
	t.fns.Set("get_num_bodies", t.NumBodies)
	t.fns.Set("get_body_names", t.BodyNames)
	t.fns.Set("get_num_sensors", t.NumSensors)
	t.fns.Set("get_sensor_names", t.SensorNames)
	t.fns.Set("get_sensor_data", t.SensorData)
	t.fns.Set("get_num_cameras", t.NumCameras)
	t.fns.Set("get_camera_names", t.CameraNames)
	t.fns.Set("get_camera_pose", func() any {
		if pose := t.CameraPose(); pose != nil {
			return pose
		}
		return nil
	})
	t.fns.Set("set_camera_pose", func(pos, target any) bool { return t.SetCameraPose(pos, target) == nil })
	t.fns.Set("use_camera", func(i int) bool { return t.UseCamera(i) == nil })
	t.fns.Set("step", func(n ...int) int { return t.Step(n...) })
	t.fns.Set("reset", func() bool { return t.Reset() == nil })
	t.fns.Set("apply_force", func(body int, wrench any, point ...any) bool {
		return t.ApplyForce(body, wrench, point...) == nil
	})
	t.fns.Set("print_info", t.PrintInfo)
	return t
}

// Names lists the script-visible names in registration order.
func (t *Table) Names() []string { return t.fns.Keys() }

// Func returns the script-facing function bound to name.
func (t *Table) Func(name string) (any, bool) { return t.fns.Get(name) }

// Register binds every function into r.
func (t *Table) Register(r Registrar) error {
	for _, name := range t.fns.Keys() {
		fn, _ := t.fns.Get(name)
		if err := r.Set(name, fn); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

func (t *Table) Control() []float64 {
	out := []float64{}
	t.host.Do(func(tg *Target) { out = tg.View.Ctrl.Snapshot() })
	return out
}

// SetControl copies min(len(v), nu) values into ctrl and leaves the tail
// untouched.
func (t *Table) SetControl(v any) error {
	vals, ok := toFloats(v)
	if !ok {
		t.log.WithField("payload", fmt.Sprintf("%T", v)).Debug("set_control ignored malformed payload")
		return ErrPayload
	}
	if !t.host.Do(func(tg *Target) { tg.View.Ctrl.Assign(vals) }) {
		return ErrNoSession
	}
	return nil
}

func (t *Table) Qpos() []float64 {
	out := []float64{}
	t.host.Do(func(tg *Target) { out = tg.View.Qpos.Snapshot() })
	return out
}

func (t *Table) Qvel() []float64 {
	out := []float64{}
	t.host.Do(func(tg *Target) { out = tg.View.Qvel.Snapshot() })
	return out
}

func (t *Table) Time() float64 {
	var now float64
	t.host.Do(func(tg *Target) { now = tg.Clock })
	return now
}

func (t *Table) NumActuators() int {
	n := 0
	t.host.Do(func(tg *Target) { n = tg.View.Ctrl.Len() })
	return n
}

func (t *Table) ActuatorNames() []string {
	out := []string{}
	t.host.Do(func(tg *Target) {
		out = names(tg.Sim.Model().ActuatorNames, tg.View.Ctrl.Len(), "actuator")
	})
	return out
}

// ActuatorRanges returns [lo, hi] per actuator, [-1, 1] when unlimited.
func (t *Table) ActuatorRanges() [][]float64 {
	out := [][]float64{}
	t.host.Do(func(tg *Target) {
		for i := range tg.View.Limits {
			lo, hi, _ := tg.View.Range(i)
			out = append(out, []float64{lo, hi})
		}
	})
	return out
}

func (t *Table) NumBodies() int {
	n := 0
	t.host.Do(func(tg *Target) { n = tg.View.Xpos.Len() })
	return n
}

func (t *Table) BodyNames() []string {
	out := []string{}
	t.host.Do(func(tg *Target) {
		out = names(tg.Sim.Model().BodyNames, tg.View.Xpos.Len(), "body")
	})
	return out
}

func (t *Table) NumSensors() int {
	n := 0
	t.host.Do(func(tg *Target) { n = tg.Sim.Model().NSensor })
	return n
}

func (t *Table) SensorNames() []string {
	out := []string{}
	t.host.Do(func(tg *Target) {
		out = names(tg.Sim.Model().SensorNames, tg.Sim.Model().NSensor, "sensor")
	})
	return out
}

func (t *Table) SensorData() []float64 {
	out := []float64{}
	t.host.Do(func(tg *Target) { out = tg.View.SensorData.Snapshot() })
	return out
}

func (t *Table) NumCameras() int {
	n := 0
	t.host.Do(func(tg *Target) { n = tg.Sim.Model().NCam })
	return n
}

func (t *Table) CameraNames() []string {
	out := []string{}
	t.host.Do(func(tg *Target) {
		out = names(tg.Sim.Model().CameraNames, tg.Sim.Model().NCam, "camera")
	})
	return out
}

// CameraPose returns the viewer camera in the render frame.
func (t *Table) CameraPose() map[string][]float64 {
	var pose map[string][]float64
	t.host.Do(func(tg *Target) {
		if tg.Camera == nil {
			return
		}
		p, g := tg.Camera.Position, tg.Camera.Target
		pose = map[string][]float64{
			"position": {p[0], p[1], p[2]},
			"target":   {g[0], g[1], g[2]},
		}
	})
	return pose
}

func (t *Table) SetCameraPose(pos, target any) error {
	p, ok := toFloats(pos)
	if !ok || len(p) < 3 {
		return ErrPayload
	}
	g, ok := toFloats(target)
	if !ok || len(g) < 3 {
		return ErrPayload
	}
	if !t.host.Do(func(tg *Target) {
		if tg.Camera != nil {
			tg.Camera.Position = mgl64.Vec3{p[0], p[1], p[2]}
			tg.Camera.Target = mgl64.Vec3{g[0], g[1], g[2]}
		}
	}) {
		return ErrNoSession
	}
	return nil
}

// UseCamera moves the viewer to model camera i.
func (t *Table) UseCamera(i int) error {
	err := ErrNoSession
	t.host.Do(func(tg *Target) {
		m := tg.Sim.Model()
		if i < 0 || i >= m.NCam || 3*i+3 > len(m.CamPos) || 3*i+3 > len(m.CamTarget) {
			err = fmt.Errorf("%w: camera %d of %d", ErrIndexRange, i, m.NCam)
			return
		}
		err = nil
		if tg.Camera == nil {
			return
		}
		pos := mgl64.Vec3{m.CamPos[3*i], m.CamPos[3*i+1], m.CamPos[3*i+2]}
		tgt := mgl64.Vec3{m.CamTarget[3*i], m.CamTarget[3*i+1], m.CamTarget[3*i+2]}
		tg.Camera.Position = coords.ToRender(pos)
		tg.Camera.Target = coords.ToRender(tgt)
	})
	return err
}

// Step advances the engine n times (once by default) without touching the
// frame clock and returns the number of steps taken. Queued forces act on
// the first of those steps only.
func (t *Table) Step(n ...int) int {
	count := 1
	if len(n) > 0 {
		count = n[0]
	}
	if count < 0 {
		count = 0
	}
	if count > maxSteps {
		count = maxSteps
	}
	done := 0
	t.host.Do(func(tg *Target) {
		for ; done < count; done++ {
			queued := tg.ApplyQueued()
			tg.Sim.Step()
			if queued {
				tg.View.QfrcApplied.Fill(0)
			}
		}
	})
	return done
}

func (t *Table) Reset() error {
	if !t.host.Do(func(tg *Target) {
		tg.Sim.ResetData()
		tg.Sim.Forward()
	}) {
		return ErrNoSession
	}
	return nil
}

// ApplyForce queues a world-frame wrench (force then torque, missing
// entries zero) on body, at point or the body origin. It acts on the next
// step only.
func (t *Table) ApplyForce(body int, wrench any, point ...any) error {
	w, ok := toFloats(wrench)
	if !ok {
		return ErrPayload
	}
	w = fixed(w, 6)
	var at []float64
	if len(point) > 0 && point[0] != nil {
		p, ok := toFloats(point[0])
		if !ok || len(p) < 3 {
			return ErrPayload
		}
		at = p
	}

	err := ErrNoSession
	t.host.Do(func(tg *Target) {
		pos, ok := tg.View.Xpos.At(body)
		if !ok || body <= 0 {
			err = fmt.Errorf("%w: body %d of %d", ErrIndexRange, body, tg.View.Xpos.Len())
			return
		}
		if at != nil {
			pos = mgl64.Vec3{at[0], at[1], at[2]}
		}
		wr := Wrench{Body: body, Force: mgl64.Vec3{w[0], w[1], w[2]}, Torque: mgl64.Vec3{w[3], w[4], w[5]}, Point: pos}
		if tg.Forces != nil {
			*tg.Forces = append(*tg.Forces, wr)
		} else {
			tg.Sim.ApplyForce(wr.Force, wr.Torque, wr.Point, wr.Body)
		}
		err = nil
	})
	return err
}

func names(src []string, n int, kind string) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(src) && src[i] != "" {
			out[i] = src[i]
		} else {
			out[i] = fmt.Sprintf("%s_%d", kind, i)
		}
	}
	return out
}
