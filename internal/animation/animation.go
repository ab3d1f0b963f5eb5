// Package animation holds the per-frame motion of the ocean scene as pure
// functions plus the behaviours that apply them.
package animation

import (
	"math"

	"Ocean3D/internal/behaviour"
	"Ocean3D/internal/renderer"
	"Ocean3D/internal/scene"
	"Ocean3D/internal/water"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// PointerScale maps pointer offset in pixels to camera x in world units.
	PointerScale = 0.015
	// FollowFactor is the share of the remaining distance covered per frame.
	FollowFactor = 0.05

	BobAmplitude = 20
	BobOffset    = 5
)

// RotationRates are the model's angular speeds in rad/s about X, Y and Z.
// Y and Z share a rate.
var RotationRates = mgl32.Vec3{0.5, 0.51, 0.51}

// FollowTarget is the camera x the pointer asks for.
func FollowTarget(pointerOffset float32) float32 {
	return pointerOffset * PointerScale
}

// FollowStep moves current one frame toward target.
func FollowStep(current, target float32) float32 {
	return current + (target-current)*FollowFactor
}

// Pose is the model transform at a point in time.
type Pose struct {
	Height   float32
	Rotation mgl32.Vec3
}

func ModelPose(t float64) Pose {
	return Pose{
		Height: float32(math.Sin(t)*BobAmplitude + BobOffset),
		Rotation: mgl32.Vec3{
			float32(float64(RotationRates.X()) * t),
			float32(float64(RotationRates.Y()) * t),
			float32(float64(RotationRates.Z()) * t),
		},
	}
}

// Pointer is read by CameraFollow.
type Pointer interface {
	Offset() float32
}

// CameraFollow eases the camera x toward the pointer and re-aims it at
// scene.LookAt.
type CameraFollow struct {
	Camera  *renderer.Camera
	Pointer Pointer
}

func (c *CameraFollow) Start() {}

func (c *CameraFollow) Update(behaviour.Frame) {
	c.Camera.Position[0] = FollowStep(c.Camera.Position.X(), FollowTarget(c.Pointer.Offset()))
	c.Camera.LookAt(scene.LookAt)
}

// ModelMotion bobs and tumbles the model once the slot is filled.
type ModelMotion struct {
	State *scene.State
}

func (m *ModelMotion) Start() {}

func (m *ModelMotion) Update(frame behaviour.Frame) {
	if !m.State.HasModel() {
		return
	}
	pose := ModelPose(frame.Time)
	m.State.Model.Position[1] = pose.Height
	m.State.Model.Rotation = pose.Rotation
}

// WaterPhase advances the water one step per frame regardless of elapsed time.
type WaterPhase struct {
	Surface *water.Surface
}

func (w *WaterPhase) Start() {}

func (w *WaterPhase) Update(behaviour.Frame) {
	w.Surface.Advance()
}

// Install adds the scene behaviours to m in the order they run each frame.
func Install(m *behaviour.Manager, camera *renderer.Camera, pointer Pointer, state *scene.State) {
	m.Add(&CameraFollow{Camera: camera, Pointer: pointer})
	m.Add(&ModelMotion{State: state})
	m.Add(&WaterPhase{Surface: state.Water})
}
