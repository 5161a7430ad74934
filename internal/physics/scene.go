package physics

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"
)

//go:embed scenes/*.yaml
var builtin embed.FS

var (
	ErrSceneNotFound = errors.New("physics: scene not found")
	ErrBadScene      = errors.New("physics: invalid scene")
)

// Scene is the on-disk description of a model. Positions are in the
// engine frame (z up), relative to the parent body.
type Scene struct {
	Name     string     `yaml:"name"`
	Timestep float64    `yaml:"timestep"`
	Gravity  []float64  `yaml:"gravity"`
	Damping  DampingDef `yaml:"damping"`
	Floor    FloorDef   `yaml:"floor"`

	Bodies    []BodyDef     `yaml:"bodies"`
	Actuators []ActuatorDef `yaml:"actuators"`
	Tendons   []TendonDef   `yaml:"tendons"`
	Sensors   []SensorDef   `yaml:"sensors"`
	Cameras   []CameraDef   `yaml:"cameras"`
	Lights    []LightDef    `yaml:"lights"`

	raw []byte
}

type DampingDef struct {
	Linear  float64 `yaml:"linear"`
	Angular float64 `yaml:"angular"`
}

type FloorDef struct {
	Enabled   bool    `yaml:"enabled"`
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping"`
	Friction  float64 `yaml:"friction"`
}

// BodyDef joint is one of free, hinge, slide, weld or mocap. An empty
// joint welds the body to its parent. COM offsets are ignored for free
// bodies, whose origin is their centre of mass.
type BodyDef struct {
	Name      string    `yaml:"name"`
	Parent    string    `yaml:"parent"`
	Joint     string    `yaml:"joint"`
	Axis      []float64 `yaml:"axis"`
	Pos       []float64 `yaml:"pos"`
	Quat      []float64 `yaml:"quat"`
	COM       []float64 `yaml:"com"`
	Mass      float64   `yaml:"mass"`
	Size      float64   `yaml:"size"`
	Stiffness float64   `yaml:"stiffness"`
	Damping   float64   `yaml:"damping"`
	SpringRef float64   `yaml:"springref"`
}

// ActuatorDef drives one dof of a body's joint. Dof indexes the six free
// dofs and is ignored for hinge and slide joints.
type ActuatorDef struct {
	Name      string    `yaml:"name"`
	Body      string    `yaml:"body"`
	Dof       int       `yaml:"dof"`
	Gear      float64   `yaml:"gear"`
	CtrlRange []float64 `yaml:"ctrlrange"`
}

type TendonDef struct {
	Name   string        `yaml:"name"`
	Width  float64       `yaml:"width"`
	Points []TendonPoint `yaml:"points"`
}

type TendonPoint struct {
	Body string    `yaml:"body"`
	Pos  []float64 `yaml:"pos"`
}

// SensorDef type is framepos, framelinvel, jointpos or actuatorfrc.
type SensorDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Body     string `yaml:"body"`
	Actuator string `yaml:"actuator"`
}

type CameraDef struct {
	Name   string    `yaml:"name"`
	Pos    []float64 `yaml:"pos"`
	Target []float64 `yaml:"target"`
}

type LightDef struct {
	Name string    `yaml:"name"`
	Body string    `yaml:"body"`
	Pos  []float64 `yaml:"pos"`
	Dir  []float64 `yaml:"dir"`
}

// ParseScene decodes a YAML scene.
func ParseScene(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadScene, err)
	}
	if s.Timestep <= 0 {
		s.Timestep = 0.002
	}
	if s.Gravity == nil {
		s.Gravity = []float64{0, 0, -9.81}
	}
	s.raw = append([]byte(nil), data...)
	return &s, nil
}

// LoadScene resolves a built-in scene name first, then a file path.
func LoadScene(name string) (*Scene, error) {
	if data, err := builtin.ReadFile(path.Join("scenes", name+".yaml")); err == nil {
		return ParseScene(data)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, name)
		}
		return nil, err
	}
	return ParseScene(data)
}

// Builtin lists the embedded scene names.
func Builtin() []string {
	entries, _ := builtin.ReadDir("scenes")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Hash fingerprints the scene source so recorded traces can be matched to
// the model that produced them.
func (s *Scene) Hash() string {
	return fmt.Sprintf("%016x", xxh3.Hash(s.raw))
}
