// Package session owns the loaded simulation and drives it from a render
// clock. All access to engine state goes through one mutex: the frame
// callback holds it for a whole frame and each bridge call for one call.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/simbridge/internal/bridge"
	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/engine"
	"github.com/san-kum/simbridge/internal/interact"
	"github.com/san-kum/simbridge/internal/logging"
	"github.com/san-kum/simbridge/internal/mirror"
	"github.com/san-kum/simbridge/internal/noise"
	"github.com/san-kum/simbridge/internal/scheduler"
	"github.com/sirupsen/logrus"
)

var ErrNotLoaded = errors.New("session: no scene loaded")

// Loader builds a simulation for a scene name.
type Loader func(scene string) (engine.Simulation, error)

// ProxyBuilder creates render proxies for a freshly loaded model. It may
// return nil when nothing is rendered.
type ProxyBuilder func(m *engine.Model) *mirror.ProxySet

// Options configure a Session. Zero values select defaults.
type Options struct {
	Load    Loader
	Proxies ProxyBuilder
	Noise   noise.Params
	Gains   interact.Gains
	DriftMs float64
	Seed    int64
	Paused  bool
	Log     logrus.FieldLogger
}

// Frame summarizes one render callback.
type Frame struct {
	Steps   int
	Snapped bool
	Paused  bool
	Dragged bool
	Time    float64
	Stats   mirror.Stats
}

// Observer sees the simulation after every frame, under the session lock.
// It must not call back into the session.
type Observer func(f Frame, sim engine.Simulation, v *buffers.View)

// Reloaded describes a newly loaded scene.
type Reloaded struct {
	Scene string
	Model *engine.Model
}

type Session struct {
	mu sync.Mutex

	opts     Options
	log      logrus.FieldLogger
	scene    string
	sim      engine.Simulation
	view     *buffers.View
	proxies  *mirror.ProxySet
	camera   mirror.Camera
	clock    *scheduler.Accumulator
	injector *noise.Injector
	drag     *interact.Mapper
	params   noise.Params
	paused   bool
	forces   []bridge.Wrench

	cmdMu   sync.Mutex
	pending []Command

	observers []Observer
	reloaded  []func(Reloaded)
}

var _ bridge.Host = (*Session)(nil)

func New(opts Options) *Session {
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	gains := opts.Gains
	if gains == (interact.Gains{}) {
		gains = interact.DefaultGains
	}
	return &Session{
		opts:     opts,
		log:      log,
		camera:   mirror.DefaultCamera,
		clock:    scheduler.New(opts.DriftMs),
		injector: noise.NewInjector(opts.Seed),
		drag:     interact.New(gains),
		params:   opts.Noise,
		paused:   opts.Paused,
	}
}

// Load replaces the simulation with scene.
func (s *Session) Load(scene string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(scene)
}

func (s *Session) load(scene string) error {
	if s.opts.Load == nil {
		return fmt.Errorf("%w: no loader configured", ErrNotLoaded)
	}
	sim, err := s.opts.Load(scene)
	if err != nil {
		return fmt.Errorf("load %s: %w", scene, err)
	}
	sim.Forward()

	s.drag.End()
	s.forces = s.forces[:0]
	s.scene = scene
	s.sim = sim
	s.view = buffers.New(sim.Model(), sim.Data())
	s.proxies = nil
	if s.opts.Proxies != nil {
		s.proxies = s.opts.Proxies(sim.Model())
	}
	s.camera = mirror.DefaultCamera
	mirror.Sync(s.proxies, s.view)

	m := sim.Model()
	s.log.WithFields(logrus.Fields{
		"scene":     scene,
		"bodies":    m.NBody,
		"joints":    m.NJnt,
		"actuators": m.NU,
	}).Info("scene loaded")

	ev := Reloaded{Scene: scene, Model: m}
	for _, fn := range s.reloaded {
		fn(ev)
	}
	return nil
}

// Send queues a command for the next frame. It never blocks on the frame.
func (s *Session) Send(cmds ...Command) {
	s.cmdMu.Lock()
	s.pending = append(s.pending, cmds...)
	s.cmdMu.Unlock()
}

func (s *Session) drain() {
	s.cmdMu.Lock()
	cmds := s.pending
	s.pending = nil
	s.cmdMu.Unlock()
	for _, c := range cmds {
		c.apply(s)
	}
}

// Frame is the render callback. tNowMs is the host clock in milliseconds.
func (s *Session) Frame(tNowMs float64) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drain()
	f := Frame{Paused: s.paused}
	if s.sim == nil {
		return f
	}
	_, f.Dragged = s.drag.Active()

	if !s.paused {
		snaps := s.clock.Snaps()
		f.Steps = s.clock.Advance(tNowMs, s.sim.Model().Timestep, s.step)
		f.Snapped = s.clock.Snaps() > snaps
	} else {
		s.drag.ApplyOffset(s.view)
		s.sim.Forward()
	}

	f.Time = s.sim.Data().Time
	f.Stats = mirror.Sync(s.proxies, s.view)
	for _, obs := range s.observers {
		obs(f, s.sim, s.view)
	}
	return f
}

// step is one fixed integration step with noise, drag and any queued
// script wrenches applied. The queue is spent by a single step.
func (s *Session) step() {
	v := s.view
	s.injector.Perturb(v.Ctrl, v.Limits, s.sim.Model().Timestep, s.params)
	v.QfrcApplied.Fill(0)
	s.drag.ApplyForce(s.sim, v)
	for _, w := range s.forces {
		s.sim.ApplyForce(w.Force, w.Torque, w.Point, w.Body)
	}
	s.forces = s.forces[:0]
	s.sim.Step()
}

// Do runs fn with the session locked. It reports false when nothing is
// loaded.
func (s *Session) Do(fn func(t *bridge.Target)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim == nil {
		return false
	}
	fn(&bridge.Target{Sim: s.sim, View: s.view, Camera: &s.camera, Clock: s.clock.Seconds(), Forces: &s.forces})
	return true
}

// Observe registers fn to run after every frame.
func (s *Session) Observe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// OnReload registers fn to run after every successful load, under the
// session lock.
func (s *Session) OnReload(fn func(Reloaded)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloaded = append(s.reloaded, fn)
}

// Status is a point-in-time copy of the user-facing settings.
type Status struct {
	Scene   string
	Loaded  bool
	Paused  bool
	Noise   noise.Params
	Drag    interact.Drag
	Dragged bool
	Camera  mirror.Camera
	Time    float64
	Snaps   int
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Scene:  s.scene,
		Loaded: s.sim != nil,
		Paused: s.paused,
		Noise:  s.params,
		Camera: s.camera,
		Snaps:  s.clock.Snaps(),
	}
	st.Drag, st.Dragged = s.drag.Active()
	if s.sim != nil {
		st.Time = s.sim.Data().Time
	}
	return st
}

// SetCamera moves the viewer.
func (s *Session) SetCamera(c mirror.Camera) {
	s.mu.Lock()
	s.camera = c
	s.mu.Unlock()
}
