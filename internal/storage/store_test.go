package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/engine"
)

func sampleTrace() *Trace {
	tr := &Trace{Frames: 2, Steps: 10, Snaps: 1}
	tr.Add(0.0, []float64{1.0, 0.0}, []float64{0.5}, []float64{0.0})
	tr.Add(0.01, []float64{0.9, -0.1}, []float64{0.25}, []float64{0.2})
	return tr
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{
		Scene:      "test",
		SceneHash:  "00000000deadbeef",
		Seed:       42,
		Timestep:   0.002,
		Integrator: "rk4",
		Metrics:    map[string]float64{"stability": 1},
	}
	runID, err := st.Save(meta, sampleTrace())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "test_") {
		t.Errorf("run id = %q", runID)
	}

	got, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Scene != "test" || got.Seed != 42 || got.SceneHash != "00000000deadbeef" {
		t.Errorf("metadata = %+v", got)
	}
	if got.Frames != 2 || got.Steps != 10 || got.Snaps != 1 {
		t.Errorf("counts = %d/%d/%d", got.Frames, got.Steps, got.Snaps)
	}
	if got.Duration != 0.01 {
		t.Errorf("duration = %v", got.Duration)
	}
	wantCols := []string{"q0", "q1", "v0", "u0"}
	if strings.Join(got.Columns, ",") != strings.Join(wantCols, ",") {
		t.Errorf("columns = %v", got.Columns)
	}
	if got.Metrics["stability"] != 1 {
		t.Errorf("metrics = %v", got.Metrics)
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	if len(states) != 2 || len(times) != 2 {
		t.Fatalf("got %d states, %d times", len(states), len(times))
	}
	if states[1][0] != 0.9 || states[1][3] != 0.2 {
		t.Errorf("row = %v", states[1])
	}
}

func TestStoreSaveTwiceSameSecond(t *testing.T) {
	st := New(t.TempDir())
	a, err := st.Save(RunMetadata{Scene: "s"}, sampleTrace())
	if err != nil {
		t.Fatal(err)
	}
	b, err := st.Save(RunMetadata{Scene: "s"}, sampleTrace())
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("both runs got id %s", a)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save(RunMetadata{Scene: "a"}, sampleTrace()); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Scene != "a" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope"))
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("runs = %v, err = %v", runs, err)
	}
}

func TestStoreColumn(t *testing.T) {
	st := New(t.TempDir())
	id, err := st.Save(RunMetadata{Scene: "c"}, sampleTrace())
	if err != nil {
		t.Fatal(err)
	}
	vals, times, err := st.Column(id, "v0")
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 2 || vals[0] != 0.5 || vals[1] != 0.25 || times[1] != 0.01 {
		t.Errorf("v0 = %v at %v", vals, times)
	}
	if _, _, err := st.Column(id, "q9"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	id, err := st.Save(RunMetadata{Scene: "e"}, sampleTrace())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(id, &buf); err != nil {
		t.Fatalf("export json: %v", err)
	}
	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Scene != "e" || len(data.States) != 2 || len(data.Times) != 2 {
		t.Errorf("export = %+v", data)
	}

	buf.Reset()
	if err := st.ExportCSV(id, &buf); err != nil {
		t.Fatalf("export csv: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "time,q0,q1,v0,u0\n") {
		t.Errorf("csv header = %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}
}

func TestTraceRecord(t *testing.T) {
	m := &engine.Model{NQ: 1, NV: 1, NU: 1}
	d := &engine.Data{Qpos: []float64{1}, Qvel: []float64{2}, Ctrl: []float64{3}}
	v := buffers.New(m, d)

	var tr Trace
	tr.Record(0.1, 5, false, v)
	d.Qpos[0] = 7
	tr.Record(0.2, 4, true, v)
	tr.Record(0.2, 0, false, nil)

	if tr.Frames != 3 || tr.Steps != 9 || tr.Snaps != 1 {
		t.Errorf("counts = %d/%d/%d", tr.Frames, tr.Steps, tr.Snaps)
	}
	if tr.Len() != 2 {
		t.Fatalf("len = %d", tr.Len())
	}
	if tr.Qpos[0][0] != 1 || tr.Qpos[1][0] != 7 {
		t.Errorf("qpos rows = %v", tr.Qpos)
	}
	if r := tr.Row(1); len(r) != 3 || r[2] != 3 {
		t.Errorf("row = %v", r)
	}
}
