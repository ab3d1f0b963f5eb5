// Package envmap bakes the sky into cube maps used as ambient lighting.
package envmap

import (
	"context"
	"fmt"
	"math"

	"Ocean3D/internal/logger"
	"Ocean3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Baker renders a sky model into a radiance cube and convolves it into a
// diffuse irradiance cube.
type Baker struct {
	CaptureSize    int
	IrradianceSize int
	Log            *zap.Logger
}

func NewBaker(captureSize, irradianceSize int) *Baker {
	return &Baker{CaptureSize: captureSize, IrradianceSize: irradianceSize, Log: logger.Log}
}

// FaceDirection maps a texel centre on a cube face to a unit direction using
// the OpenGL cube map layout.
func FaceDirection(face renderer.CubeFace, x, y, size int) mgl64.Vec3 {
	u := 2*(float64(x)+0.5)/float64(size) - 1
	v := 2*(float64(y)+0.5)/float64(size) - 1
	var d mgl64.Vec3
	switch face {
	case renderer.FacePosX:
		d = mgl64.Vec3{1, -v, -u}
	case renderer.FaceNegX:
		d = mgl64.Vec3{-1, -v, u}
	case renderer.FacePosY:
		d = mgl64.Vec3{u, 1, v}
	case renderer.FaceNegY:
		d = mgl64.Vec3{u, -1, -v}
	case renderer.FacePosZ:
		d = mgl64.Vec3{u, -v, 1}
	default:
		d = mgl64.Vec3{-u, -v, -1}
	}
	return d.Normalize()
}

// texelSolidAngle approximates the solid angle subtended by a texel.
func texelSolidAngle(x, y, size int) float64 {
	u := 2*(float64(x)+0.5)/float64(size) - 1
	v := 2*(float64(y)+0.5)/float64(size) - 1
	texelArea := 4 / float64(size*size)
	return texelArea / math.Pow(1+u*u+v*v, 1.5)
}

// Source is anything that can be sampled by direction, such as a sky model.
type Source interface {
	Radiance(direction mgl64.Vec3) mgl64.Vec3
}

// Bake captures src and prefilters it. The six faces of each cube are
// computed concurrently.
func (b *Baker) Bake(ctx context.Context, src Source) (*renderer.Environment, error) {
	if b.CaptureSize < 1 || b.IrradianceSize < 1 {
		return nil, fmt.Errorf("invalid bake sizes %d/%d", b.CaptureSize, b.IrradianceSize)
	}

	radiance := renderer.NewCubeData(b.CaptureSize)
	if err := eachFace(ctx, func(face renderer.CubeFace) {
		for y := 0; y < radiance.Size; y++ {
			for x := 0; x < radiance.Size; x++ {
				c := src.Radiance(FaceDirection(face, x, y, radiance.Size))
				radiance.SetTexel(face, x, y, [3]float32{float32(c[0]), float32(c[1]), float32(c[2])})
			}
		}
	}); err != nil {
		return nil, fmt.Errorf("sky capture: %w", err)
	}

	// Gather the capture once so every irradiance texel walks a flat list.
	type sample struct {
		dir    mgl64.Vec3
		weight float64
		rgb    [3]float32
	}
	samples := make([]sample, 0, 6*radiance.Size*radiance.Size)
	for face := renderer.FacePosX; face <= renderer.FaceNegZ; face++ {
		for y := 0; y < radiance.Size; y++ {
			for x := 0; x < radiance.Size; x++ {
				samples = append(samples, sample{
					dir:    FaceDirection(face, x, y, radiance.Size),
					weight: texelSolidAngle(x, y, radiance.Size),
					rgb:    radiance.Texel(face, x, y),
				})
			}
		}
	}

	irradiance := renderer.NewCubeData(b.IrradianceSize)
	if err := eachFace(ctx, func(face renderer.CubeFace) {
		for y := 0; y < irradiance.Size; y++ {
			for x := 0; x < irradiance.Size; x++ {
				n := FaceDirection(face, x, y, irradiance.Size)
				var sum [3]float64
				for _, s := range samples {
					cos := n.Dot(s.dir)
					if cos <= 0 {
						continue
					}
					w := cos * s.weight
					sum[0] += float64(s.rgb[0]) * w
					sum[1] += float64(s.rgb[1]) * w
					sum[2] += float64(s.rgb[2]) * w
				}
				irradiance.SetTexel(face, x, y, [3]float32{
					float32(sum[0] / math.Pi),
					float32(sum[1] / math.Pi),
					float32(sum[2] / math.Pi),
				})
			}
		}
	}); err != nil {
		return nil, fmt.Errorf("irradiance convolution: %w", err)
	}

	b.log().Debug("Environment baked",
		zap.Int("captureSize", b.CaptureSize),
		zap.Int("irradianceSize", b.IrradianceSize))
	return &renderer.Environment{
		Radiance:   renderer.NewCubeTexture("environment.radiance", radiance),
		Irradiance: renderer.NewCubeTexture("environment.irradiance", irradiance),
	}, nil
}

func eachFace(ctx context.Context, fn func(face renderer.CubeFace)) error {
	g, ctx := errgroup.WithContext(ctx)
	for face := renderer.FacePosX; face <= renderer.FaceNegZ; face++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(face)
			return nil
		})
	}
	return g.Wait()
}

func (b *Baker) log() *zap.Logger {
	if b.Log == nil {
		return logger.Log
	}
	return b.Log
}
