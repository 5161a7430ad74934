// Package engine declares the contract between the orchestration layer and
// a dynamics engine: a Model describing the physical system, a Data block
// holding the mutable simulation state, and the Simulation that steps them.
//
// Array layouts follow the usual rigid-body engine conventions: per-body
// vectors are packed xyz triples, orientations are packed w,x,y,z
// quaternions, and actuator ranges are packed lo,hi pairs. Callers should
// not index these arrays directly; internal/buffers wraps them in views that
// are bounds-checked against the Model's declared counts.
package engine

import "github.com/go-gl/mathgl/mgl64"

// Joint types.
const (
	JointFree  = 0
	JointSlide = 2
	JointHinge = 3
)

// Model is immutable for the lifetime of a loaded scene.
type Model struct {
	Name     string
	Timestep float64

	NBody       int
	NJnt        int
	NQ          int
	NV          int
	NU          int
	NTendon     int
	NSensor     int
	NSensorData int
	NCam        int
	NLight      int
	NMocap      int

	BodyParentID []int
	BodyRootID   []int
	BodyJntAdr   []int // -1 when the body has no joint
	BodyMocapID  []int // -1 when the body is not motion-captured
	BodyMass     []float64
	BodySize     []float64 // visual radius, 0 means no geometry

	JntType    []int
	JntQposAdr []int
	JntDofAdr  []int

	ActuatorCtrlLimited []bool
	ActuatorCtrlRange   []float64 // lo,hi pairs

	TendonWidth []float64

	SensorAdr []int
	SensorDim []int

	CamPos    []float64 // xyz triples, engine frame
	CamTarget []float64

	BodyNames     []string
	JointNames    []string
	ActuatorNames []string
	TendonNames   []string
	SensorNames   []string
	CameraNames   []string
	LightNames    []string
}

// Data is the mutable simulation state. Slices are allocated once per
// scene and never reallocated, so views over them stay valid until reload.
type Data struct {
	Time float64

	Qpos        []float64
	Qvel        []float64
	Ctrl        []float64
	QfrcApplied []float64

	Xpos  []float64
	Xquat []float64

	LightXpos []float64
	LightXdir []float64

	MocapPos  []float64
	MocapQuat []float64

	TenWrapAdr []int
	TenWrapNum []int
	WrapXpos   []float64

	SensorData []float64
}

// Simulation is the engine surface the orchestration layer consumes.
type Simulation interface {
	Model() *Model
	Data() *Data
	// Step integrates one fixed timestep.
	Step()
	// Forward recomputes derived quantities without advancing time.
	Forward()
	// ResetData restores the initial state.
	ResetData()
	// ApplyForce accumulates a world-frame wrench acting at point on body
	// into QfrcApplied.
	ApplyForce(force, torque, point mgl64.Vec3, body int)
}
