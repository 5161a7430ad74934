package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simbridge/internal/mirror"
)

const (
	fovY  = math.Pi / 4
	zNear = 0.05
	zFar  = 100

	minDistance = 0.3
	maxDistance = 30
	// keeps the orbit off the poles where the up vector degenerates
	maxElevation = 1.45
)

var worldUp = mgl64.Vec3{0, 1, 0}

// Projector maps render-frame points to canvas pixels for one camera pose.
type Projector struct {
	vp   mgl64.Mat4
	w, h int
}

func NewProjector(cam mirror.Camera, w, h int) Projector {
	aspect := 1.0
	if h > 0 {
		aspect = float64(w) / float64(h)
	}
	view := mgl64.LookAtV(cam.Position, cam.Target, worldUp)
	proj := mgl64.Perspective(fovY, aspect, zNear, zFar)
	return Projector{vp: proj.Mul4(view), w: w, h: h}
}

// Project returns pixel coordinates and view depth. ok is false for points
// behind the near plane or outside the raster.
func (p Projector) Project(pt mgl64.Vec3) (x, y int, depth float64, ok bool) {
	clip := p.vp.Mul4x1(pt.Vec4(1))
	w := clip.W()
	if w < zNear {
		return 0, 0, 0, false
	}
	nx, ny := clip.X()/w, clip.Y()/w
	x = int(math.Round((nx + 1) / 2 * float64(p.w-1)))
	y = int(math.Round((1 - ny) / 2 * float64(p.h-1)))
	return x, y, w, x >= 0 && x < p.w && y >= 0 && y < p.h
}

// Segment projects both ends. It reports false when either end is behind
// the camera; partially visible segments are left to the canvas to clip.
func (p Projector) Segment(a, b mgl64.Vec3) (x0, y0, x1, y1 int, ok bool) {
	clipA := p.vp.Mul4x1(a.Vec4(1))
	clipB := p.vp.Mul4x1(b.Vec4(1))
	if clipA.W() < zNear || clipB.W() < zNear {
		return 0, 0, 0, 0, false
	}
	x0, y0, _, _ = p.Project(a)
	x1, y1, _, _ = p.Project(b)
	return x0, y0, x1, y1, true
}

// Orbit swings the camera around its target by yaw about the vertical axis
// and pitch about the horizontal one.
func Orbit(cam mirror.Camera, yaw, pitch float64) mirror.Camera {
	off := cam.Position.Sub(cam.Target)
	dist := off.Len()
	if dist == 0 {
		return cam
	}
	az := math.Atan2(off.X(), off.Z()) + yaw
	el := math.Asin(mgl64.Clamp(off.Y()/dist, -1, 1)) + pitch
	el = mgl64.Clamp(el, -maxElevation, maxElevation)
	off = mgl64.Vec3{
		dist * math.Cos(el) * math.Sin(az),
		dist * math.Sin(el),
		dist * math.Cos(el) * math.Cos(az),
	}
	cam.Position = cam.Target.Add(off)
	return cam
}

// Dolly scales the camera distance to its target by factor.
func Dolly(cam mirror.Camera, factor float64) mirror.Camera {
	off := cam.Position.Sub(cam.Target)
	dist := off.Len()
	if dist == 0 || factor <= 0 {
		return cam
	}
	next := mgl64.Clamp(dist*factor, minDistance, maxDistance)
	cam.Position = cam.Target.Add(off.Mul(next / dist))
	return cam
}
