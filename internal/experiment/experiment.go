// Package experiment wires a session with its script bridge, metrics and
// trace recorder, and drives it headless from a virtual or wall clock.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/san-kum/simbridge/internal/bridge"
	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/config"
	"github.com/san-kum/simbridge/internal/engine"
	"github.com/san-kum/simbridge/internal/interact"
	"github.com/san-kum/simbridge/internal/logging"
	"github.com/san-kum/simbridge/internal/metrics"
	"github.com/san-kum/simbridge/internal/noise"
	"github.com/san-kum/simbridge/internal/script"
	"github.com/san-kum/simbridge/internal/session"
	"github.com/san-kum/simbridge/internal/storage"
	"github.com/sirupsen/logrus"
)

var ErrNothingToRun = errors.New("experiment: need a duration or a script")

type Options struct {
	// Proxies receives the render graph for every loaded scene.
	Proxies session.ProxyBuilder
	// Tee mirrors script output, e.g. to stdout.
	Tee io.Writer
	Log logrus.FieldLogger
	// Record keeps a per-frame trace.
	Record   bool
	Registry *Registry
}

type Experiment struct {
	cfg      *config.Config
	log      logrus.FieldLogger
	registry *Registry

	sess    *session.Session
	table   *bridge.Table
	runner  *script.Runner
	out     *script.Output
	metrics *metrics.Set
	trace   *storage.Trace
	record  bool
}

// New builds the stack for cfg and loads cfg.Scene.
func New(cfg *config.Config, opts Options) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	if _, err := reg.GetIntegrator(cfg.Integrator); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}

	e := &Experiment{
		cfg:      cfg,
		log:      log,
		registry: reg,
		metrics:  metrics.Default(),
		trace:    &storage.Trace{},
		record:   opts.Record,
	}
	e.sess = session.New(session.Options{
		Load:    reg.Loader(cfg.Integrator),
		Proxies: opts.Proxies,
		Noise: noise.Params{
			Rate:  cfg.Noise.Rate,
			Std:   cfg.Noise.Std,
			Clamp: cfg.Noise.ClampToRange,
		},
		Gains:   interact.Gains{Force: cfg.Drag.ForceGain, Offset: cfg.Drag.OffsetGain},
		DriftMs: cfg.Scheduler.DriftMs,
		Seed:    cfg.Seed,
		Paused:  cfg.Paused,
		Log:     log,
	})
	e.out = script.NewOutput(script.DefaultOutputLines, opts.Tee)
	e.table = bridge.New(e.sess, e.out, log)
	e.runner = script.NewRunner(e.table, e.out, log)

	e.sess.Observe(e.observe)
	e.sess.OnReload(func(session.Reloaded) {
		e.metrics.Reset()
		if e.record {
			*e.trace = storage.Trace{}
		}
	})
	if err := e.sess.Load(cfg.Scene); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) observe(f session.Frame, sim engine.Simulation, v *buffers.View) {
	e.metrics.Observe(sim, v)
	if e.record {
		e.trace.Record(f.Time, f.Steps, f.Snapped, v)
	}
}

func (e *Experiment) Config() *config.Config    { return e.cfg }
func (e *Experiment) Session() *session.Session { return e.sess }
func (e *Experiment) Table() *bridge.Table      { return e.table }
func (e *Experiment) Runner() *script.Runner    { return e.runner }
func (e *Experiment) Output() *script.Output    { return e.out }
func (e *Experiment) Metrics() *metrics.Set     { return e.metrics }
func (e *Experiment) Trace() *storage.Trace     { return e.trace }
func (e *Experiment) Registry() *Registry       { return e.registry }

// RunConfig describes one headless run.
type RunConfig struct {
	// Duration is the length in seconds of render clock to drive. Zero runs
	// until the script ends.
	Duration float64
	Script   string
	Code     string
	// Realtime paces frames on the wall clock instead of a virtual one.
	Realtime bool
}

type Result struct {
	Frames  int
	Steps   int
	Snaps   int
	Time    float64
	Metrics map[string]float64
	// Fault is the script's error, if it failed.
	Fault error
}

// Run drives frames until the duration elapses or the script ends. A
// script still running at the end is stopped.
func (e *Experiment) Run(ctx context.Context, rc RunConfig) (*Result, error) {
	if rc.Duration <= 0 && rc.Code == "" {
		return nil, ErrNothingToRun
	}
	if rc.Code != "" {
		if err := e.runner.Start(ctx, rc.Script, rc.Code); err != nil {
			return nil, err
		}
	}

	interval := e.cfg.FrameInterval()
	var ticks <-chan time.Time
	if rc.Realtime {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	// the last frame lands on the deadline within half a frame
	deadline := time.Duration(rc.Duration*float64(time.Second)) - interval/2

	res := &Result{}
	start := time.Now()
	var runErr error
	for i := 0; ; i++ {
		var now time.Duration
		if ticks != nil {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
			case t := <-ticks:
				now = t.Sub(start)
			}
		} else {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
			default:
			}
			now = time.Duration(i) * interval
		}
		if runErr != nil {
			break
		}

		f := e.sess.Frame(float64(now) / float64(time.Millisecond))
		res.Frames++
		res.Steps += f.Steps
		if f.Snapped {
			res.Snaps++
		}
		res.Time = f.Time

		if rc.Duration > 0 && now >= deadline {
			break
		}
		if rc.Duration <= 0 && !e.runner.Running() {
			break
		}
	}

	if rc.Code != "" {
		e.runner.Stop()
		if err := e.runner.Wait(); err != nil && !errors.Is(err, script.ErrStopped) {
			res.Fault = err
		}
	}
	res.Metrics = e.metrics.Map()

	e.log.WithFields(logrus.Fields{
		"scene":  e.cfg.Scene,
		"frames": res.Frames,
		"steps":  res.Steps,
		"snaps":  res.Snaps,
	}).Info("run finished")
	return res, runErr
}

// Metadata describes the experiment for the run store.
func (e *Experiment) Metadata(scriptName string) storage.RunMetadata {
	st := e.sess.Status()
	meta := storage.RunMetadata{
		Scene:      st.Scene,
		SceneHash:  e.registry.Hash(st.Scene),
		Seed:       e.cfg.Seed,
		Integrator: e.cfg.Integrator,
		Script:     scriptName,
		NoiseRate:  st.Noise.Rate,
		NoiseStd:   st.Noise.Std,
		Metrics:    e.metrics.Map(),
	}
	e.sess.Do(func(t *bridge.Target) {
		meta.Timestep = t.Sim.Model().Timestep
	})
	return meta
}

// Save stores the recorded trace. It must not overlap a running frame.
func (e *Experiment) Save(st *storage.Store, scriptName string) (string, error) {
	if !e.record {
		return "", fmt.Errorf("experiment was not recording")
	}
	return st.Save(e.Metadata(scriptName), e.trace)
}
