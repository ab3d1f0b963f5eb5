package renderer

import (
	"image"
	"image/draw"

	"go.uber.org/multierr"
)

type Wrap int

const (
	ClampToEdge Wrap = iota
	Repeat
	MirroredRepeat
)

// CubeFace order follows the GL cube map targets: +X, -X, +Y, -Y, +Z, -Z.
type CubeFace int

const (
	FacePosX CubeFace = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// CubeData holds linear HDR RGB texels for the six faces of a cube map.
type CubeData struct {
	Size  int
	Faces [6][]float32
}

func NewCubeData(size int) *CubeData {
	c := &CubeData{Size: size}
	for i := range c.Faces {
		c.Faces[i] = make([]float32, size*size*3)
	}
	return c
}

// Texel returns the RGB value at (x, y) on face.
func (c *CubeData) Texel(face CubeFace, x, y int) [3]float32 {
	i := (y*c.Size + x) * 3
	f := c.Faces[face]
	return [3]float32{f[i], f[i+1], f[i+2]}
}

func (c *CubeData) SetTexel(face CubeFace, x, y int, rgb [3]float32) {
	i := (y*c.Size + x) * 3
	f := c.Faces[face]
	f[i], f[i+1], f[i+2] = rgb[0], rgb[1], rgb[2]
}

// Texture is either a 2D image or an HDR cube map.
type Texture struct {
	disposable

	Name  string
	Image *image.RGBA
	Cube  *CubeData
	WrapS Wrap
	WrapT Wrap
	// Version increments whenever texel data or sampling state changes so
	// backends know to re-upload.
	Version int
}

// NewImageTexture copies img into an RGBA texture.
func NewImageTexture(name string, img image.Image) *Texture {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return &Texture{Name: name, Image: rgba}
}

func NewCubeTexture(name string, cube *CubeData) *Texture {
	return &Texture{Name: name, Cube: cube}
}

func (t *Texture) IsCube() bool {
	return t.Cube != nil
}

func (t *Texture) SetWrap(s, tw Wrap) {
	t.WrapS, t.WrapT = s, tw
	t.Version++
}

// Dispose releases the GPU copy. The CPU data is dropped as well.
func (t *Texture) Dispose() error {
	err := t.dispose()
	t.Image = nil
	t.Cube = nil
	return err
}

// Environment is the prefiltered lighting installed on a scene.
type Environment struct {
	Radiance   *Texture
	Irradiance *Texture
}

func (e *Environment) Dispose() error {
	if e == nil {
		return nil
	}
	var err error
	if e.Radiance != nil {
		err = multierr.Append(err, e.Radiance.Dispose())
	}
	if e.Irradiance != nil {
		err = multierr.Append(err, e.Irradiance.Dispose())
	}
	return err
}
