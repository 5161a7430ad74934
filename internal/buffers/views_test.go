package buffers

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/engine"
)

func TestScalars_ClipsToDeclaredCount(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	s := NewScalars(data, 2)

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if _, ok := s.At(2); ok {
		t.Error("At(2) should be out of range")
	}
	if s.Set(3, 9) {
		t.Error("Set(3) should be rejected")
	}
	if data[3] != 4 {
		t.Error("write leaked past declared count")
	}
}

func TestScalars_DeclaredLargerThanBacking(t *testing.T) {
	s := NewScalars([]float64{1}, 10)
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestScalars_AssignTruncatesAndKeepsTail(t *testing.T) {
	tests := []struct {
		name  string
		src   []float64
		want  []float64
		wrote int
	}{
		{"longer", []float64{7, 8, 9, 10}, []float64{7, 8, 9}, 3},
		{"shorter", []float64{7}, []float64{7, 2, 3}, 1},
		{"empty", nil, []float64{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScalars([]float64{1, 2, 3}, 3)
			if n := s.Assign(tt.src); n != tt.wrote {
				t.Errorf("wrote %d, want %d", n, tt.wrote)
			}
			got := s.Snapshot()
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestScalars_SnapshotIsDetached(t *testing.T) {
	data := []float64{1, 2}
	snap := NewScalars(data, 2).Snapshot()
	snap[0] = 42
	if data[0] != 1 {
		t.Error("snapshot aliases the backing buffer")
	}
}

func TestScalars_Slice(t *testing.T) {
	s := NewScalars([]float64{0, 1, 2, 3, 4}, 5)
	sub, ok := s.Slice(3, 2)
	if !ok || sub.Len() != 2 {
		t.Fatalf("Slice(3,2) = %v, %v", sub.Len(), ok)
	}
	if _, ok := s.Slice(4, 2); ok {
		t.Error("Slice(4,2) should fail")
	}
	if _, ok := s.Slice(-1, 1); ok {
		t.Error("negative offset should fail")
	}
}

func TestVec3s(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7}
	v := NewVec3s(data, 5)

	if v.Len() != 2 {
		t.Fatalf("Len = %d, want 2", v.Len())
	}
	p, ok := v.At(1)
	if !ok || p != (mgl64.Vec3{4, 5, 6}) {
		t.Errorf("At(1) = %v, %v", p, ok)
	}
	v.Add(0, mgl64.Vec3{1, 1, 1})
	if data[0] != 2 || data[2] != 4 {
		t.Errorf("Add wrote %v", data[:3])
	}
	if v.Add(2, mgl64.Vec3{1, 1, 1}) || data[6] != 7 {
		t.Error("Add past the end must be dropped")
	}
}

func TestQuats(t *testing.T) {
	q := NewQuats([]float64{1, 0, 0, 0}, 1)
	got, ok := q.At(0)
	if !ok || got.W != 1 {
		t.Errorf("At(0) = %v, %v", got, ok)
	}
	if _, ok := q.At(1); ok {
		t.Error("At(1) should be out of range")
	}
}

func TestNew_NilInputs(t *testing.T) {
	if New(nil, &engine.Data{}) != nil {
		t.Error("expected nil view without model")
	}
	if New(&engine.Model{}, nil) != nil {
		t.Error("expected nil view without data")
	}
}

func TestView_Range(t *testing.T) {
	m := &engine.Model{
		NU:                  2,
		ActuatorCtrlLimited: []bool{true, false},
		ActuatorCtrlRange:   []float64{-2, 3, 0, 0},
	}
	d := &engine.Data{Ctrl: make([]float64, 2)}
	v := New(m, d)

	lo, hi, ok := v.Range(0)
	if !ok || lo != -2 || hi != 3 {
		t.Errorf("Range(0) = %v %v %v", lo, hi, ok)
	}
	lo, hi, ok = v.Range(1)
	if !ok || lo != -1 || hi != 1 {
		t.Errorf("Range(1) = %v %v %v", lo, hi, ok)
	}
	if _, _, ok := v.Range(2); ok {
		t.Error("Range(2) should be out of range")
	}
	if got := v.Limits[0].Clamp(10); got != 3 {
		t.Errorf("Clamp = %v, want 3", got)
	}
}
