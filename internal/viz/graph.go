package viz

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/engine"
	"github.com/san-kum/simbridge/internal/mirror"
)

// Node is a body proxy in the terminal scene graph.
type Node struct {
	Name     string
	Parent   int
	Radius   float64
	Position mgl64.Vec3
	Rotation mgl64.Quat
	// Version counts MarkDirty calls.
	Version int
}

func (n *Node) SetPosition(p mgl64.Vec3)   { n.Position = p }
func (n *Node) SetQuaternion(q mgl64.Quat) { n.Rotation = q }
func (n *Node) MarkDirty()                 { n.Version++ }

// Lamp is a light proxy.
type Lamp struct {
	Node
	Direction mgl64.Vec3
}

func (l *Lamp) LookAt(target mgl64.Vec3) {
	d := target.Sub(l.Position)
	if d.Len() > 0 {
		l.Direction = d.Normalize()
	}
}

// Instances is an instanced draw list.
type Instances struct {
	mats  []mgl64.Mat4
	count int
}

func (in *Instances) SetMatrixAt(i int, m mgl64.Mat4) {
	if i < 0 {
		return
	}
	for len(in.mats) <= i {
		in.mats = append(in.mats, mgl64.Ident4())
	}
	in.mats[i] = m
}

func (in *Instances) SetCount(n int) { in.count = n }

// Matrices returns the live instances.
func (in *Instances) Matrices() []mgl64.Mat4 {
	n := in.count
	if n > len(in.mats) {
		n = len(in.mats)
	}
	return in.mats[:n]
}

// Graph is the scene drawn by the live view. Body 0, the world, has no
// node.
type Graph struct {
	Bodies   map[int]*Node
	Lights   map[int]*Lamp
	Capsules *Instances
	Spheres  *Instances
	Floor    bool
}

func NewGraph() *Graph {
	return &Graph{
		Bodies:   map[int]*Node{},
		Lights:   map[int]*Lamp{},
		Capsules: &Instances{},
		Spheres:  &Instances{},
		Floor:    true,
	}
}

// Proxies rebuilds the graph for m and returns it as a proxy set.
func (g *Graph) Proxies(m *engine.Model) *mirror.ProxySet {
	g.Bodies = map[int]*Node{}
	g.Lights = map[int]*Lamp{}
	g.Capsules = &Instances{}
	g.Spheres = &Instances{}

	ps := &mirror.ProxySet{
		Bodies:   map[int]mirror.Node{},
		Lights:   map[int]mirror.Light{},
		Capsules: g.Capsules,
		Spheres:  g.Spheres,
	}
	if m == nil {
		return ps
	}
	for b := 1; b < m.NBody; b++ {
		n := &Node{Parent: -1, Rotation: mgl64.QuatIdent()}
		if b < len(m.BodyNames) {
			n.Name = m.BodyNames[b]
		}
		if b < len(m.BodyParentID) {
			n.Parent = m.BodyParentID[b]
		}
		if b < len(m.BodySize) {
			n.Radius = m.BodySize[b]
		}
		g.Bodies[b] = n
		ps.Bodies[b] = n
	}
	for l := 0; l < m.NLight; l++ {
		lamp := &Lamp{Node: Node{Parent: -1, Rotation: mgl64.QuatIdent()}, Direction: mgl64.Vec3{0, -1, 0}}
		if l < len(m.LightNames) {
			lamp.Name = m.LightNames[l]
		}
		g.Lights[l] = lamp
		ps.Lights[l] = lamp
	}
	return ps
}

// BodyIDs lists bodies with a node in index order.
func (g *Graph) BodyIDs() []int {
	ids := make([]int, 0, len(g.Bodies))
	for id := range g.Bodies {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Render draws the graph through p onto c.
func (g *Graph) Render(c *Canvas, p Projector) {
	if g.Floor {
		g.drawFloor(c, p)
	}
	for _, id := range g.BodyIDs() {
		n := g.Bodies[id]
		if parent, ok := g.Bodies[n.Parent]; ok {
			if x0, y0, x1, y1, ok := p.Segment(parent.Position, n.Position); ok {
				c.Line(x0, y0, x1, y1)
			}
		}
		if x, y, depth, ok := p.Project(n.Position); ok {
			c.Disc(x, y, dotRadius(n.Radius, depth, p.h))
		}
	}
	for _, m := range g.Capsules.Matrices() {
		centre := m.Col(3).Vec3()
		half := m.Col(1).Vec3().Mul(0.5)
		if x0, y0, x1, y1, ok := p.Segment(centre.Sub(half), centre.Add(half)); ok {
			c.Line(x0, y0, x1, y1)
		}
	}
	for _, m := range g.Spheres.Matrices() {
		if x, y, _, ok := p.Project(m.Col(3).Vec3()); ok {
			c.Set(x, y)
		}
	}
	for _, l := range g.Lights {
		tip := l.Position.Add(l.Direction.Mul(0.25))
		if x0, y0, x1, y1, ok := p.Segment(l.Position, tip); ok {
			c.Line(x0, y0, x1, y1)
		}
	}
}

const floorHalf = 2.0

func (g *Graph) drawFloor(c *Canvas, p Projector) {
	for i := -floorHalf; i <= floorHalf; i += 1 {
		for _, seg := range [][2]mgl64.Vec3{
			{{i, 0, -floorHalf}, {i, 0, floorHalf}},
			{{-floorHalf, 0, i}, {floorHalf, 0, i}},
		} {
			if x0, y0, x1, y1, ok := p.Segment(seg[0], seg[1]); ok {
				dottedLine(c, x0, y0, x1, y1)
			}
		}
	}
}

func dottedLine(c *Canvas, x0, y0, x1, y1 int) {
	n := absInt(x1-x0) + absInt(y1-y0)
	if n == 0 {
		c.Set(x0, y0)
		return
	}
	for i := 0; i <= n; i += 4 {
		t := float64(i) / float64(n)
		c.Set(x0+int(math.Round(t*float64(x1-x0))), y0+int(math.Round(t*float64(y1-y0))))
	}
}

// dotRadius sizes a body marker from its visual radius and distance.
func dotRadius(radius, depth float64, h int) int {
	if radius <= 0 || depth <= 0 {
		return 0
	}
	px := radius / (depth * math.Tan(fovY/2)) * float64(h) / 2
	return int(mgl64.Clamp(px, 0, 3))
}
