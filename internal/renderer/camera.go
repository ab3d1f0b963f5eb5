// camera.go
package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Camera struct {
	// HOT DATA - read every frame for view/projection
	Position   mgl32.Vec3 // Camera position in world space
	Front      mgl32.Vec3 // Forward direction vector
	Up         mgl32.Vec3 // Up direction vector
	Right      mgl32.Vec3 // Right direction vector
	Projection mgl32.Mat4 // Projection matrix

	// COLD DATA - configuration
	WorldUp     mgl32.Vec3
	Fov         float32 // Vertical field of view in degrees
	Near        float32
	Far         float32
	AspectRatio float32
}

type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

type Frustum struct {
	Planes [6]Plane
}

// NewPerspectiveCamera returns a camera at the origin looking down -Z.
func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	c := &Camera{
		Front:       mgl32.Vec3{0, 0, -1},
		Up:          mgl32.Vec3{0, 1, 0},
		WorldUp:     mgl32.Vec3{0, 1, 0},
		Fov:         fov,
		Near:        near,
		Far:         far,
		AspectRatio: aspect,
	}
	c.updateCameraVectors()
	c.UpdateProjection()
	return c
}

func (c *Camera) UpdateProjection() {
	aspect := c.AspectRatio
	if aspect <= 0 {
		aspect = 1
	}
	c.Projection = mgl32.Perspective(mgl32.DegToRad(c.Fov), aspect, c.Near, c.Far)
}

func (c *Camera) SetAspectRatio(aspectRatio float32) {
	c.AspectRatio = aspectRatio
	c.UpdateProjection()
}

func (c *Camera) SetPosition(x, y, z float32) {
	c.Position = mgl32.Vec3{x, y, z}
}

// LookAt re-aims the camera at target from its current position.
func (c *Camera) LookAt(target mgl32.Vec3) {
	dir := target.Sub(c.Position)
	if dir.Len() < 1e-6 {
		return
	}
	c.Front = dir.Normalize()
	c.updateCameraVectors()
}

func (c *Camera) updateCameraVectors() {
	right := c.Front.Cross(c.WorldUp)
	if right.Len() < 1e-6 {
		// Looking straight up or down; pick any perpendicular axis.
		right = mgl32.Vec3{1, 0, 0}
	}
	c.Right = right.Normalize()
	c.Up = c.Right.Cross(c.Front).Normalize()
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front), c.Up)
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	return c.Projection
}

func (c *Camera) GetViewProjection() mgl32.Mat4 {
	return c.Projection.Mul4(c.GetViewMatrix())
}

func (c *Camera) CalculateFrustum() Frustum {
	var frustum Frustum
	vp := c.GetViewProjection()

	// Left, right, bottom, top, near, far.
	frustum.Planes[0] = Plane{Normal: mgl32.Vec3{vp[3] + vp[0], vp[7] + vp[4], vp[11] + vp[8]}, Distance: vp[15] + vp[12]}
	frustum.Planes[1] = Plane{Normal: mgl32.Vec3{vp[3] - vp[0], vp[7] - vp[4], vp[11] - vp[8]}, Distance: vp[15] - vp[12]}
	frustum.Planes[2] = Plane{Normal: mgl32.Vec3{vp[3] + vp[1], vp[7] + vp[5], vp[11] + vp[9]}, Distance: vp[15] + vp[13]}
	frustum.Planes[3] = Plane{Normal: mgl32.Vec3{vp[3] - vp[1], vp[7] - vp[5], vp[11] - vp[9]}, Distance: vp[15] - vp[13]}
	frustum.Planes[4] = Plane{Normal: mgl32.Vec3{vp[3] + vp[2], vp[7] + vp[6], vp[11] + vp[10]}, Distance: vp[15] + vp[14]}
	frustum.Planes[5] = Plane{Normal: mgl32.Vec3{vp[3] - vp[2], vp[7] - vp[6], vp[11] - vp[10]}, Distance: vp[15] - vp[14]}

	for i := 0; i < 6; i++ {
		length := frustum.Planes[i].Normal.Len()
		frustum.Planes[i].Normal = frustum.Planes[i].Normal.Mul(1.0 / length)
		frustum.Planes[i].Distance /= length
	}
	return frustum
}

func (p *Plane) DistanceToPoint(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

func (f *Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(center) < -radius {
			return false
		}
	}
	return true
}
