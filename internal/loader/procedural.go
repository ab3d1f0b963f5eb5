package loader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	normalsAlpha   = 2.0
	normalsBeta    = 2.0
	normalsOctaves = 4
	// Feature size in texels of the lowest noise octave.
	normalsPeriod   = 32.0
	normalsStrength = 6.0
)

// WaterNormals generates a seamlessly tiling tangent-space normal map from
// Perlin heights. The map wraps on both axes so it can be sampled with
// repeat wrapping.
func WaterNormals(size int, seed int64) *image.RGBA {
	p := perlin.NewPerlin(normalsAlpha, normalsBeta, normalsOctaves, seed)
	s := float64(size)

	// Blend four shifted copies so the height field tiles.
	height := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			fx, fy := float64(x), float64(y)
			n := func(x, y float64) float64 { return p.Noise2D(x/normalsPeriod, y/normalsPeriod) }
			h := n(fx, fy)*(s-fx)*(s-fy) +
				n(fx-s, fy)*fx*(s-fy) +
				n(fx, fy-s)*(s-fx)*fy +
				n(fx-s, fy-s)*fx*fy
			height[y*size+x] = h / (s * s)
		}
	}

	at := func(x, y int) float64 {
		x = (x + size) % size
		y = (y + size) % size
		return height[y*size+x]
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := (at(x+1, y) - at(x-1, y)) * normalsStrength
			dy := (at(x, y+1) - at(x, y-1)) * normalsStrength
			n := mgl32.Vec3{float32(-dx), float32(-dy), 1}.Normalize()
			img.SetRGBA(x, y, color.RGBA{
				R: encodeUnit(n.X()),
				G: encodeUnit(n.Y()),
				B: encodeUnit(n.Z()),
				A: 255,
			})
		}
	}
	return img
}

func encodeUnit(v float32) uint8 {
	return uint8(math.Round(float64(v*0.5+0.5) * 255))
}

// EncodeWaterNormals returns WaterNormals as PNG bytes.
func EncodeWaterNormals(size int, seed int64) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, WaterNormals(size, seed)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
