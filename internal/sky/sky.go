// Package sky implements the Preetham analytic daylight model as a large
// back-faced box around the scene, plus a CPU evaluation of the same model
// for environment baking.
package sky

import (
	"math"

	"Ocean3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

// Params holds the atmospheric scattering constants.
type Params struct {
	Turbidity       float32
	Rayleigh        float32
	MieCoefficient  float32
	MieDirectionalG float32
}

// DefaultParams are the fixed ocean scene constants.
var DefaultParams = Params{
	Turbidity:       10,
	Rayleigh:        2,
	MieCoefficient:  0.005,
	MieDirectionalG: 0.8,
}

// DefaultScale is the edge length of the sky box.
const DefaultScale = 10000

type Sky struct {
	Node     *renderer.Node
	Material *renderer.Material
}

func New(scale float32, params Params) *Sky {
	material := renderer.NewMaterial("sky", renderer.SkyMaterial)
	material.Side = renderer.BackSide
	material.SetUniform("turbidity", params.Turbidity)
	material.SetUniform("rayleigh", params.Rayleigh)
	material.SetUniform("mieCoefficient", params.MieCoefficient)
	material.SetUniform("mieDirectionalG", params.MieDirectionalG)
	material.SetUniform("sunPosition", mgl32.Vec3{0, 1, 0})

	geometry := renderer.NewBoxGeometry(1, 1, 1)
	geometry.Name = "sky"
	node := renderer.NewMesh("sky", geometry, material)
	node.SetScalar(scale)
	return &Sky{Node: node, Material: material}
}

func (s *Sky) Params() Params {
	m := s.Material
	return Params{
		Turbidity:       m.Float("turbidity"),
		Rayleigh:        m.Float("rayleigh"),
		MieCoefficient:  m.Float("mieCoefficient"),
		MieDirectionalG: m.Float("mieDirectionalG"),
	}
}

func (s *Sky) SetSunPosition(sun mgl32.Vec3) {
	s.Material.SetUniform("sunPosition", sun)
}

func (s *Sky) SunPosition() mgl32.Vec3 {
	return s.Material.Vec3("sunPosition")
}

// SunDirection converts elevation above the horizon and azimuth, both in
// degrees, to a unit vector (phi measured from +Y, theta around Y from +Z).
func SunDirection(elevation, azimuth float64) mgl32.Vec3 {
	phi := mgl32.DegToRad(float32(90 - elevation))
	theta := mgl32.DegToRad(float32(azimuth))
	sinPhi := math.Sin(float64(phi))
	return mgl32.Vec3{
		float32(sinPhi * math.Sin(float64(theta))),
		float32(math.Cos(float64(phi))),
		float32(sinPhi * math.Cos(float64(theta))),
	}
}
