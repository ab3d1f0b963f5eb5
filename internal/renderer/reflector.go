package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// textureBias maps clip space [-1,1] into texture space [0,1].
var textureBias = mgl32.Mat4{
	0.5, 0, 0, 0,
	0, 0.5, 0, 0,
	0, 0, 0.5, 0,
	0.5, 0.5, 0.5, 1,
}

func reflect(v, n mgl32.Vec3) mgl32.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

// ReflectCamera mirrors camera across the plane through point with the given
// normal. It reports false when the camera is behind the plane, in which case
// no reflection is visible.
func ReflectCamera(camera *Camera, point, normal mgl32.Vec3) (*Camera, bool) {
	normal = normal.Normalize()
	view := point.Sub(camera.Position)
	if view.Dot(normal) > 0 {
		return nil, false
	}

	mirrorPos := reflect(view, normal).Mul(-1).Add(point)

	lookTarget := camera.Position.Add(camera.Front)
	target := reflect(point.Sub(lookTarget), normal).Mul(-1).Add(point)

	mirror := *camera
	mirror.Position = mirrorPos
	mirror.WorldUp = reflect(camera.Up, normal)
	mirror.LookAt(target)
	return &mirror, true
}

// MirrorTextureMatrix projects world positions into the mirror render target's UV space.
func MirrorTextureMatrix(mirror *Camera) mgl32.Mat4 {
	return textureBias.Mul4(mirror.GetViewProjection())
}
