package experiment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/simbridge/internal/config"
	"github.com/san-kum/simbridge/internal/dynamo"
	"github.com/san-kum/simbridge/internal/physics"
	"github.com/san-kum/simbridge/internal/script"
	"github.com/san-kum/simbridge/internal/storage"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scene = "ur5e"
	cfg.Seed = 7
	return cfg
}

func TestRegistryLoad(t *testing.T) {
	r := NewRegistry()
	sim, err := r.Load("ur5e", "rk4")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sim.Model().NU != 6 {
		t.Errorf("nu = %d, want 6", sim.Model().NU)
	}
	if h := r.Hash("ur5e"); len(h) != 16 {
		t.Errorf("hash = %q", h)
	}
	if r.Hash("spot") != "" {
		t.Error("hash recorded for a scene never loaded")
	}

	if _, err := r.Load("ur5e", "leapfrog"); !errors.Is(err, dynamo.ErrUnknownIntegrator) {
		t.Errorf("err = %v, want ErrUnknownIntegrator", err)
	}
	if _, err := r.Load("missing", "rk4"); !errors.Is(err, physics.ErrSceneNotFound) {
		t.Errorf("err = %v, want ErrSceneNotFound", err)
	}
	if len(r.Scenes()) != 5 || len(r.Integrators()) != 2 {
		t.Errorf("scenes = %v integrators = %v", r.Scenes(), r.Integrators())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Integrator = "nope"
	if _, err := New(cfg, Options{}); !errors.Is(err, dynamo.ErrUnknownIntegrator) {
		t.Errorf("err = %v", err)
	}
	cfg = testConfig()
	cfg.FPS = 0
	if _, err := New(cfg, Options{}); err == nil {
		t.Error("expected validation error")
	}
	cfg = testConfig()
	cfg.Scene = "missing"
	if _, err := New(cfg, Options{}); !errors.Is(err, physics.ErrSceneNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestRunVirtualClock(t *testing.T) {
	exp, err := New(testConfig(), Options{Record: true})
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background(), RunConfig{Duration: 0.5})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// frames at 0, 1/60, ..., 30/60
	if res.Frames != 31 {
		t.Errorf("frames = %d, want 31", res.Frames)
	}
	if res.Snaps != 0 {
		t.Errorf("snaps = %d on a steady clock", res.Snaps)
	}
	if res.Steps < 249 || res.Steps > 251 {
		t.Errorf("steps = %d, want about 250", res.Steps)
	}
	if res.Time < 0.499 || res.Time > 0.503 {
		t.Errorf("time = %v", res.Time)
	}
	for _, name := range []string{"control_effort", "energy_drift", "stability", "unstable_resets"} {
		if _, ok := res.Metrics[name]; !ok {
			t.Errorf("metric %s missing", name)
		}
	}
	if exp.Trace().Len() != 31 || exp.Trace().Steps != res.Steps {
		t.Errorf("trace len = %d steps = %d", exp.Trace().Len(), exp.Trace().Steps)
	}
}

func TestRunNeedsWork(t *testing.T) {
	exp, err := New(testConfig(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exp.Run(context.Background(), RunConfig{}); !errors.Is(err, ErrNothingToRun) {
		t.Errorf("err = %v", err)
	}
}

func TestRunScriptUntilDone(t *testing.T) {
	exp, err := New(testConfig(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background(), RunConfig{
		Script:   "set",
		Code:     `set_control([0.5, -0.5]); print("ctrl " + get_control().slice(0, 2).join(" "));`,
		Realtime: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Fault != nil {
		t.Fatalf("fault: %v", res.Fault)
	}
	if res.Frames < 1 {
		t.Errorf("frames = %d", res.Frames)
	}
	if got := strings.Join(exp.Output().Lines(), "\n"); !strings.Contains(got, "ctrl 0.5 -0.5") {
		t.Errorf("output = %q", got)
	}
}

func TestRunReportsScriptFault(t *testing.T) {
	exp, err := New(testConfig(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background(), RunConfig{
		Script:   "bad",
		Code:     `throw new Error("boom")`,
		Realtime: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var fault *script.Fault
	if !errors.As(res.Fault, &fault) || !strings.Contains(fault.Message, "boom") {
		t.Errorf("fault = %v", res.Fault)
	}
}

func TestRunStopsLongScript(t *testing.T) {
	exp, err := New(testConfig(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background(), RunConfig{
		Duration: 0.1,
		Script:   "spin",
		Code:     `while (true) { sleep(5); }`,
		Realtime: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Fault != nil {
		t.Errorf("stopped script reported %v", res.Fault)
	}
	if exp.Runner().Running() {
		t.Error("script still running")
	}
}

func TestRunContextCancel(t *testing.T) {
	exp, err := New(testConfig(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = exp.Run(ctx, RunConfig{Duration: 60, Realtime: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestSaveAndMetadata(t *testing.T) {
	exp, err := New(testConfig(), Options{Record: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exp.Run(context.Background(), RunConfig{Duration: 0.1}); err != nil {
		t.Fatal(err)
	}
	st := storage.New(t.TempDir())
	id, err := exp.Save(st, "none")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	meta, err := st.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Scene != "ur5e" || meta.Seed != 7 || meta.Timestep != 0.002 || meta.SceneHash == "" {
		t.Errorf("meta = %+v", meta)
	}
	// 6 hinge qpos, 6 qvel, 6 ctrl
	if len(meta.Columns) != 18 {
		t.Errorf("columns = %v", meta.Columns)
	}

	plain, err := New(testConfig(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := plain.Save(st, ""); err == nil {
		t.Error("saving a non-recording experiment should fail")
	}
}

func TestEnsembleSeeds(t *testing.T) {
	cfg := testConfig()
	cfg.Noise.Std = 0.2
	cfg.Noise.Rate = 0.1
	exps, results, err := NewEnsemble(cfg, Options{Registry: NewRegistry()}, 3).Run(context.Background(), RunConfig{Duration: 0.1})
	if err != nil {
		t.Fatalf("ensemble: %v", err)
	}
	if len(exps) != 3 || len(results) != 3 {
		t.Fatalf("got %d experiments, %d results", len(exps), len(results))
	}
	for i, exp := range exps {
		if exp.Config().Seed != 7+int64(i) {
			t.Errorf("member %d seed = %d", i, exp.Config().Seed)
		}
		if results[i].Frames != 7 {
			t.Errorf("member %d frames = %d, want 7", i, results[i].Frames)
		}
	}
	if cfg.Seed != 7 {
		t.Error("ensemble mutated the base config")
	}
}
