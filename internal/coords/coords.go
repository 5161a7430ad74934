// Package coords converts between the engine frame (z up) and the render
// frame (y up).
package coords

import "github.com/go-gl/mathgl/mgl64"

// ToRender maps an engine-frame point into the render frame.
func ToRender(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{p[0], p[2], -p[1]}
}

// ToEngine maps a render-frame point into the engine frame.
func ToEngine(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{p[0], -p[2], p[1]}
}

// QuatToRender re-expresses an engine-frame orientation in the render frame.
func QuatToRender(q mgl64.Quat) mgl64.Quat {
	return mgl64.Quat{W: q.W, V: ToRender(q.V)}
}

// QuatToEngine is the inverse of QuatToRender.
func QuatToEngine(q mgl64.Quat) mgl64.Quat {
	return mgl64.Quat{W: q.W, V: ToEngine(q.V)}
}
