package buffers

import "github.com/go-gl/mathgl/mgl64"

func clip(declared, available int) int {
	if declared < 0 {
		return 0
	}
	if declared > available {
		return available
	}
	return declared
}

// Scalars is a view over n float64 entries.
type Scalars struct {
	data []float64
}

func NewScalars(data []float64, declared int) Scalars {
	return Scalars{data: data[:clip(declared, len(data))]}
}

func (s Scalars) Len() int { return len(s.data) }

func (s Scalars) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.data) {
		return 0, false
	}
	return s.data[i], true
}

func (s Scalars) Set(i int, v float64) bool {
	if i < 0 || i >= len(s.data) {
		return false
	}
	s.data[i] = v
	return true
}

func (s Scalars) Add(i int, v float64) bool {
	if i < 0 || i >= len(s.data) {
		return false
	}
	s.data[i] += v
	return true
}

func (s Scalars) Fill(v float64) {
	for i := range s.data {
		s.data[i] = v
	}
}

// Snapshot returns a copy detached from the engine buffer.
func (s Scalars) Snapshot() []float64 {
	out := make([]float64, len(s.data))
	copy(out, s.data)
	return out
}

// Assign copies min(len(src), Len()) leading entries and leaves the tail
// untouched. It returns the number of entries written.
func (s Scalars) Assign(src []float64) int {
	return copy(s.data, src)
}

// Slice returns the sub-view [off, off+n) when it lies fully inside s.
func (s Scalars) Slice(off, n int) (Scalars, bool) {
	if off < 0 || n < 0 || off+n > len(s.data) {
		return Scalars{}, false
	}
	return Scalars{data: s.data[off : off+n]}, true
}

// Ints is a read-only view over n int entries.
type Ints struct {
	data []int
}

func NewInts(data []int, declared int) Ints {
	return Ints{data: data[:clip(declared, len(data))]}
}

func (s Ints) Len() int { return len(s.data) }

func (s Ints) At(i int) (int, bool) {
	if i < 0 || i >= len(s.data) {
		return 0, false
	}
	return s.data[i], true
}

// Vec3s is a view over n packed xyz triples.
type Vec3s struct {
	data []float64
}

func NewVec3s(data []float64, declared int) Vec3s {
	return Vec3s{data: data[:3*clip(declared, len(data)/3)]}
}

func (v Vec3s) Len() int { return len(v.data) / 3 }

func (v Vec3s) At(i int) (mgl64.Vec3, bool) {
	if i < 0 || i >= v.Len() {
		return mgl64.Vec3{}, false
	}
	return mgl64.Vec3{v.data[3*i], v.data[3*i+1], v.data[3*i+2]}, true
}

func (v Vec3s) Set(i int, p mgl64.Vec3) bool {
	if i < 0 || i >= v.Len() {
		return false
	}
	v.data[3*i], v.data[3*i+1], v.data[3*i+2] = p[0], p[1], p[2]
	return true
}

func (v Vec3s) Add(i int, d mgl64.Vec3) bool {
	if i < 0 || i >= v.Len() {
		return false
	}
	v.data[3*i] += d[0]
	v.data[3*i+1] += d[1]
	v.data[3*i+2] += d[2]
	return true
}

// Quats is a view over n packed w,x,y,z quaternions.
type Quats struct {
	data []float64
}

func NewQuats(data []float64, declared int) Quats {
	return Quats{data: data[:4*clip(declared, len(data)/4)]}
}

func (q Quats) Len() int { return len(q.data) / 4 }

func (q Quats) At(i int) (mgl64.Quat, bool) {
	if i < 0 || i >= q.Len() {
		return mgl64.QuatIdent(), false
	}
	d := q.data[4*i : 4*i+4]
	return mgl64.Quat{W: d[0], V: mgl64.Vec3{d[1], d[2], d[3]}}, true
}

func (q Quats) Set(i int, r mgl64.Quat) bool {
	if i < 0 || i >= q.Len() {
		return false
	}
	d := q.data[4*i : 4*i+4]
	d[0], d[1], d[2], d[3] = r.W, r.V[0], r.V[1], r.V[2]
	return true
}
