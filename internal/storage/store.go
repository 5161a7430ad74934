package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	SceneHash  string             `json:"scene_hash"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Timestep   float64            `json:"timestep"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Script     string             `json:"script,omitempty"`
	NoiseRate  float64            `json:"noise_rate"`
	NoiseStd   float64            `json:"noise_std"`
	Frames     int                `json:"frames"`
	Steps      int                `json:"steps"`
	Snaps      int                `json:"snaps"`
	Columns    []string           `json:"columns"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes meta and trace under a fresh run directory and returns the
// run id. Columns and Duration are filled from the trace.
func (s *Store) Save(meta RunMetadata, trace *Trace) (string, error) {
	runID, runDir, err := s.newRunDir(meta.Scene)
	if err != nil {
		return "", err
	}

	meta.ID = runID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Frames = trace.Frames
	meta.Steps = trace.Steps
	meta.Snaps = trace.Snaps
	meta.Duration = trace.Duration()
	meta.Columns = columns(trace)

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "states.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(append([]string{"time"}, meta.Columns...)); err != nil {
		return "", err
	}
	for i := 0; i < trace.Len(); i++ {
		row := []string{strconv.FormatFloat(trace.Times[i], 'f', 6, 64)}
		for _, val := range trace.Row(i) {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return runID, w.Error()
}

func (s *Store) newRunDir(scene string) (string, string, error) {
	base := fmt.Sprintf("%s_%d", scene, time.Now().Unix())
	runID := base
	for n := 2; ; n++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			if os.IsNotExist(err) {
				if err := s.Init(); err != nil {
					return "", "", err
				}
				continue
			}
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, n)
	}
}

func columns(t *Trace) []string {
	if t.Len() == 0 {
		return nil
	}
	var cols []string
	for i := range t.Qpos[0] {
		cols = append(cols, fmt.Sprintf("q%d", i))
	}
	for i := range t.Qvel[0] {
		cols = append(cols, fmt.Sprintf("v%d", i))
	}
	for i := range t.Ctrl[0] {
		cols = append(cols, fmt.Sprintf("u%d", i))
	}
	return cols
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadStates returns the recorded rows (without time) and their times.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)

		state := make([]float64, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			state = append(state, val)
		}
		states = append(states, state)
	}

	return states, times, nil
}

// Column extracts one named column from a run.
func (s *Store) Column(runID, name string) ([]float64, []float64, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	idx := -1
	for i, c := range meta.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, fmt.Errorf("run %s has no column %q", runID, name)
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	out := make([]float64, len(states))
	for i, row := range states {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, times, nil
}
