package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

type MaterialKind int

const (
	StandardMaterial MaterialKind = iota
	WaterMaterial
	SkyMaterial
)

func (k MaterialKind) String() string {
	switch k {
	case WaterMaterial:
		return "water"
	case SkyMaterial:
		return "sky"
	default:
		return "standard"
	}
}

type Side int

const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

// DefaultMaterial is copied for meshes that arrive without material data.
var DefaultMaterial = Material{
	Name:      "default",
	Kind:      StandardMaterial,
	Color:     mgl32.Vec3{1, 1, 1},
	Metalness: 0.0,
	Roughness: 0.5,
	Opacity:   1.0,
}

// Material describes how a mesh is shaded. Uniforms carries shader inputs
// specific to the material kind; values are float32, int32, bool,
// mgl32.Vec3, mgl32.Mat4 or *Texture.
type Material struct {
	disposable

	Name      string
	Kind      MaterialKind
	Side      Side
	Color     mgl32.Vec3
	Metalness float32
	Roughness float32
	Opacity   float32
	Map       *Texture
	Uniforms  map[string]interface{}
}

// NewMaterial returns a copy of DefaultMaterial with the given name and kind.
func NewMaterial(name string, kind MaterialKind) *Material {
	m := DefaultMaterial
	m.Name = name
	m.Kind = kind
	m.Uniforms = make(map[string]interface{})
	return &m
}

func (m *Material) SetUniform(name string, value interface{}) {
	if m.Uniforms == nil {
		m.Uniforms = make(map[string]interface{})
	}
	m.Uniforms[name] = value
}

func (m *Material) Float(name string) float32 {
	v, _ := m.Uniforms[name].(float32)
	return v
}

func (m *Material) Vec3(name string) mgl32.Vec3 {
	v, _ := m.Uniforms[name].(mgl32.Vec3)
	return v
}

// Textures returns every texture the material samples, Map first.
func (m *Material) Textures() []*Texture {
	var out []*Texture
	if m.Map != nil {
		out = append(out, m.Map)
	}
	for _, v := range m.Uniforms {
		if tex, ok := v.(*Texture); ok && tex != nil {
			out = append(out, tex)
		}
	}
	return out
}

// Dispose releases the shader state the backend holds for this material.
// Textures are owned separately and are not disposed here.
func (m *Material) Dispose() error {
	return m.dispose()
}
