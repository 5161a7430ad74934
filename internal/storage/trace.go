package storage

import "github.com/san-kum/simbridge/internal/buffers"

// Trace is a per-frame recording of a session.
type Trace struct {
	Times []float64
	Qpos  [][]float64
	Qvel  [][]float64
	Ctrl  [][]float64

	Frames int
	Steps  int
	Snaps  int
}

// Add appends one sample. Slices are copied.
func (t *Trace) Add(time float64, qpos, qvel, ctrl []float64) {
	t.Times = append(t.Times, time)
	t.Qpos = append(t.Qpos, append([]float64(nil), qpos...))
	t.Qvel = append(t.Qvel, append([]float64(nil), qvel...))
	t.Ctrl = append(t.Ctrl, append([]float64(nil), ctrl...))
}

func (t *Trace) Len() int { return len(t.Times) }

// Duration is the simulated time covered by the trace.
func (t *Trace) Duration() float64 {
	if len(t.Times) < 2 {
		return 0
	}
	return t.Times[len(t.Times)-1] - t.Times[0]
}

// Row flattens sample i as qpos, qvel, ctrl.
func (t *Trace) Row(i int) []float64 {
	row := make([]float64, 0, len(t.Qpos[i])+len(t.Qvel[i])+len(t.Ctrl[i]))
	row = append(row, t.Qpos[i]...)
	row = append(row, t.Qvel[i]...)
	return append(row, t.Ctrl[i]...)
}

// Record appends the frame's state and counts it.
func (t *Trace) Record(time float64, steps int, snapped bool, v *buffers.View) {
	t.Frames++
	t.Steps += steps
	if snapped {
		t.Snaps++
	}
	if v == nil {
		return
	}
	t.Add(time, v.Qpos.Snapshot(), v.Qvel.Snapshot(), v.Ctrl.Snapshot())
}
