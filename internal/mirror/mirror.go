// Package mirror projects post-step engine state onto render proxies.
// It performs no physics and tolerates any subset of proxies being absent.
package mirror

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/buffers"
	"github.com/san-kum/simbridge/internal/coords"
)

// minWrapDist filters unused tendon samples parked at the origin.
const minWrapDist = 0.01

// Node is a render-graph transform.
type Node interface {
	SetPosition(p mgl64.Vec3)
	SetQuaternion(q mgl64.Quat)
	MarkDirty()
}

// Light is a node that can be aimed.
type Light interface {
	Node
	LookAt(target mgl64.Vec3)
}

// Instancer is an instanced draw with per-instance transforms.
type Instancer interface {
	SetMatrixAt(i int, m mgl64.Mat4)
	SetCount(n int)
}

// ProxySet maps engine indices to render proxies. Missing keys are legal.
type ProxySet struct {
	Bodies   map[int]Node
	Lights   map[int]Light
	Capsules Instancer
	Spheres  Instancer
}

// Camera is the viewer pose in the render frame.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
}

// DefaultCamera frames a robot standing at the origin.
var DefaultCamera = Camera{
	Position: mgl64.Vec3{2.0, 1.7, 1.7},
	Target:   mgl64.Vec3{0, 0.7, 0},
}

// Stats counts what a Sync wrote.
type Stats struct {
	Bodies   int
	Lights   int
	Capsules int
	Spheres  int
}

// Sync copies body, light and tendon state onto the proxies.
func Sync(p *ProxySet, v *buffers.View) Stats {
	var st Stats
	if p == nil || v == nil {
		return st
	}
	st.Bodies = syncBodies(p, v)
	st.Lights = syncLights(p, v)
	st.Capsules, st.Spheres = syncTendons(p, v)
	return st
}

func syncBodies(p *ProxySet, v *buffers.View) int {
	n := 0
	for b := 0; b < v.Xpos.Len(); b++ {
		node, ok := p.Bodies[b]
		if !ok || node == nil {
			continue
		}
		pos, _ := v.Xpos.At(b)
		quat, _ := v.Xquat.At(b)
		node.SetPosition(coords.ToRender(pos))
		node.SetQuaternion(coords.QuatToRender(quat))
		node.MarkDirty()
		n++
	}
	return n
}

func syncLights(p *ProxySet, v *buffers.View) int {
	n := 0
	for l := 0; l < v.LightXpos.Len(); l++ {
		light, ok := p.Lights[l]
		if !ok || light == nil {
			continue
		}
		pos, _ := v.LightXpos.At(l)
		dir, _ := v.LightXdir.At(l)
		rp := coords.ToRender(pos)
		light.SetPosition(rp)
		light.LookAt(rp.Add(coords.ToRender(dir)))
		light.MarkDirty()
		n++
	}
	return n
}

var yAxis = mgl64.Vec3{0, 1, 0}

// capsule builds the transform for a unit capsule along +Y stretched
// between a and b.
func capsule(a, b mgl64.Vec3, r float64) mgl64.Mat4 {
	mid := a.Add(b).Mul(0.5)
	d := b.Sub(a)
	length := d.Len()
	return mgl64.Translate3D(mid[0], mid[1], mid[2]).
		Mul4(alignY(d).Mat4()).
		Mul4(mgl64.Scale3D(r, length, r))
}

// alignY rotates +Y onto d. QuatBetweenVectors degenerates when the two
// are already parallel.
func alignY(d mgl64.Vec3) mgl64.Quat {
	if d.Len() == 0 {
		return mgl64.QuatIdent()
	}
	d = d.Normalize()
	if c := yAxis.Dot(d); c > 1-1e-9 {
		return mgl64.QuatIdent()
	} else if c < -1+1e-9 {
		return mgl64.QuatRotate(math.Pi, mgl64.Vec3{1, 0, 0})
	}
	return mgl64.QuatBetweenVectors(yAxis, d)
}

func sphere(p mgl64.Vec3, r float64) mgl64.Mat4 {
	return mgl64.Translate3D(p[0], p[1], p[2]).Mul4(mgl64.Scale3D(r, r, r))
}

// syncTendons emits one capsule per valid wrap segment plus sphere caps.
func syncTendons(p *ProxySet, v *buffers.View) (capsules, spheres int) {
	if p.Capsules == nil && p.Spheres == nil {
		return 0, 0
	}
	count := 0
	for t := 0; t < v.TenWrapAdr.Len(); t++ {
		adr, _ := v.TenWrapAdr.At(t)
		num, _ := v.TenWrapNum.At(t)
		r, _ := v.TendonWidth.At(t)
		for w := adr; w < adr+num-1; w++ {
			start, ok0 := v.WrapXpos.At(w)
			end, ok1 := v.WrapXpos.At(w + 1)
			validStart := ok0 && start.Len() > minWrapDist
			validEnd := ok1 && end.Len() > minWrapDist
			a, b := coords.ToRender(start), coords.ToRender(end)

			if validStart && p.Spheres != nil {
				p.Spheres.SetMatrixAt(count, sphere(a, r))
			}
			if validEnd && p.Spheres != nil {
				p.Spheres.SetMatrixAt(count+1, sphere(b, r))
			}
			if validStart && validEnd {
				if p.Capsules != nil {
					p.Capsules.SetMatrixAt(count, capsule(a, b, r))
				}
				count++
			}
		}
	}
	spheres = 0
	if count > 0 {
		spheres = count + 1
	}
	if p.Capsules != nil {
		p.Capsules.SetCount(count)
	}
	if p.Spheres != nil {
		p.Spheres.SetCount(spheres)
	}
	return count, spheres
}
