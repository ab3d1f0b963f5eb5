// Package water provides the reflective ocean surface: a flat plane whose
// shading scrolls a normal map by a frame-driven phase and samples a mirror
// reflection of the scene.
package water

import (
	"math"

	"Ocean3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// FramesPerPhase frames advance the wave phase by exactly one.
const FramesPerPhase = 40

// PhaseStep is the amount the wave phase advances each frame.
const PhaseStep = 1.0 / FramesPerPhase

// Options configures the surface.
type Options struct {
	Size             float32    `yaml:"size"`
	TextureWidth     int32      `yaml:"texture_width"`
	TextureHeight    int32      `yaml:"texture_height"`
	SunColor         mgl32.Vec3 `yaml:"-"`
	WaterColor       mgl32.Vec3 `yaml:"-"`
	DistortionScale  float32    `yaml:"distortion_scale"`
	NormalRepeatSize float32    `yaml:"normal_repeat_size"`
	Alpha            float32    `yaml:"alpha"`
}

func DefaultOptions() Options {
	return Options{
		Size:             10000,
		TextureWidth:     512,
		TextureHeight:    512,
		SunColor:         HexColor(0xffffff),
		WaterColor:       HexColor(0x001e0f),
		DistortionScale:  3.7,
		NormalRepeatSize: 1.0,
		Alpha:            1.0,
	}
}

// HexColor converts 0xRRGGBB to a linear 0..1 colour.
func HexColor(hex uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32((hex>>16)&0xff) / 255,
		float32((hex>>8)&0xff) / 255,
		float32(hex&0xff) / 255,
	}
}

// Surface is the water node plus its frame counter.
type Surface struct {
	Node     *renderer.Node
	Material *renderer.Material
	Options  Options

	frames uint64
}

// NewSurface builds the plane rotated to lie flat in XZ with all shading
// inputs set. The normal map is attached later with SetNormalMap.
func NewSurface(opts Options) *Surface {
	geometry := renderer.NewPlaneGeometry(opts.Size, opts.Size, 1, 1)
	geometry.Name = "water"

	material := renderer.NewMaterial("water", renderer.WaterMaterial)
	material.Side = renderer.DoubleSide

	node := renderer.NewMesh("water", geometry, material)
	node.Rotation = mgl32.Vec3{-math.Pi / 2, 0, 0}

	ws := &Surface{Node: node, Material: material, Options: opts}
	ws.SetupUniforms()
	return ws
}

// SetupUniforms writes every option into the material.
func (ws *Surface) SetupUniforms() {
	m := ws.Material
	m.SetUniform("time", ws.Phase())
	m.SetUniform("size", ws.Options.NormalRepeatSize)
	m.SetUniform("alpha", ws.Options.Alpha)
	m.SetUniform("distortionScale", ws.Options.DistortionScale)
	m.SetUniform("sunColor", ws.Options.SunColor)
	m.SetUniform("waterColor", ws.Options.WaterColor)
	m.SetUniform("textureWidth", ws.Options.TextureWidth)
	m.SetUniform("textureHeight", ws.Options.TextureHeight)
	if _, ok := m.Uniforms["sunDirection"]; !ok {
		m.SetUniform("sunDirection", mgl32.Vec3{0.70707, 0.70707, 0})
	}
}

// Advance moves the wave phase one frame forward.
func (ws *Surface) Advance() {
	ws.frames++
	ws.Material.SetUniform("time", ws.Phase())
}

// Frames reports how many times Advance ran.
func (ws *Surface) Frames() uint64 {
	return ws.frames
}

// Phase is derived from the frame count so it does not drift.
func (ws *Surface) Phase() float32 {
	return float32(float64(ws.frames) / FramesPerPhase)
}

// SetNormalMap attaches the scrolling normal texture.
func (ws *Surface) SetNormalMap(tex *renderer.Texture) {
	ws.Material.SetUniform("normalSampler", tex)
}

func (ws *Surface) NormalMap() *renderer.Texture {
	tex, _ := ws.Material.Uniforms["normalSampler"].(*renderer.Texture)
	return tex
}

// SetSunDirection stores the normalized sun vector.
func (ws *Surface) SetSunDirection(dir mgl32.Vec3) {
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	ws.Material.SetUniform("sunDirection", dir)
}

func (ws *Surface) SunDirection() mgl32.Vec3 {
	return ws.Material.Vec3("sunDirection")
}

// Plane returns a point on the surface and its world-space normal.
func (ws *Surface) Plane() (point, normal mgl32.Vec3) {
	world := ws.Node.WorldMatrix()
	point = world.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	normal = world.Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3().Normalize()
	return point, normal
}

// MirrorCamera is the camera the reflection pass renders with, or false
// when the viewer is below the surface.
func (ws *Surface) MirrorCamera(camera *renderer.Camera) (*renderer.Camera, bool) {
	point, normal := ws.Plane()
	return renderer.ReflectCamera(camera, point, normal)
}
