package envmap

import (
	"context"
	"math"
	"testing"

	"Ocean3D/internal/renderer"
	"Ocean3D/internal/sky"
	"Ocean3D/internal/water"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFaceDirectionCentres(t *testing.T) {
	want := map[renderer.CubeFace]mgl64.Vec3{
		renderer.FacePosX: {1, 0, 0},
		renderer.FaceNegX: {-1, 0, 0},
		renderer.FacePosY: {0, 1, 0},
		renderer.FaceNegY: {0, -1, 0},
		renderer.FacePosZ: {0, 0, 1},
		renderer.FaceNegZ: {0, 0, -1},
	}
	for face, dir := range want {
		// Odd size puts a texel exactly on the face centre.
		got := FaceDirection(face, 1, 1, 3)
		assert.True(t, got.ApproxEqual(dir), "face %d: got %v", face, got)
	}
}

func TestSolidAnglesCoverSphere(t *testing.T) {
	size := 64
	var total float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			total += texelSolidAngle(x, y, size)
		}
	}
	assert.InDelta(t, 4*math.Pi, total*6, 0.01)
}

type constantSource mgl64.Vec3

func (c constantSource) Radiance(mgl64.Vec3) mgl64.Vec3 { return mgl64.Vec3(c) }

type upperHemisphere struct{}

func (upperHemisphere) Radiance(d mgl64.Vec3) mgl64.Vec3 {
	if d.Y() > 0 {
		return mgl64.Vec3{1, 1, 1}
	}
	return mgl64.Vec3{}
}

func TestBakeUniformSourceGivesEqualIrradiance(t *testing.T) {
	b := &Baker{CaptureSize: 16, IrradianceSize: 4, Log: zap.NewNop()}
	env, err := b.Bake(context.Background(), constantSource{0.5, 0.25, 1})
	require.NoError(t, err)

	require.True(t, env.Radiance.IsCube())
	assert.Equal(t, 16, env.Radiance.Cube.Size)
	assert.Equal(t, 4, env.Irradiance.Cube.Size)

	for face := renderer.FacePosX; face <= renderer.FaceNegZ; face++ {
		c := env.Irradiance.Cube.Texel(face, 1, 2)
		assert.InDelta(t, 0.5, c[0], 0.03, "face %d", face)
		assert.InDelta(t, 0.25, c[1], 0.03, "face %d", face)
		assert.InDelta(t, 1.0, c[2], 0.05, "face %d", face)
	}
}

func TestBakeLightsUpwardNormals(t *testing.T) {
	b := &Baker{CaptureSize: 16, IrradianceSize: 3, Log: zap.NewNop()}
	env, err := b.Bake(context.Background(), upperHemisphere{})
	require.NoError(t, err)

	up := env.Irradiance.Cube.Texel(renderer.FacePosY, 1, 1)
	down := env.Irradiance.Cube.Texel(renderer.FaceNegY, 1, 1)
	assert.InDelta(t, 1.0, up[0], 0.05)
	assert.InDelta(t, 0.0, down[0], 1e-6)
}

func TestBakeSkyModelIsFinite(t *testing.T) {
	b := &Baker{CaptureSize: 8, IrradianceSize: 2, Log: zap.NewNop()}
	env, err := b.Bake(context.Background(), sky.NewModel(sky.DefaultParams, mgl64.Vec3{0, 0.0349, -0.999}))
	require.NoError(t, err)
	for _, v := range env.Irradiance.Cube.Faces[renderer.FacePosY] {
		assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
		assert.GreaterOrEqual(t, v, float32(0))
	}
}

func TestBakeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Baker{CaptureSize: 4, IrradianceSize: 2, Log: zap.NewNop()}
	_, err := b.Bake(ctx, sky.NewModel(sky.DefaultParams, mgl64.Vec3{0, 1, 0}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateSunInstallsAndReplacesEnvironment(t *testing.T) {
	scene := renderer.NewScene()
	s := sky.New(sky.DefaultScale, sky.DefaultParams)
	ws := water.NewSurface(water.DefaultOptions())
	b := &Baker{CaptureSize: 4, IrradianceSize: 2, Log: zap.NewNop()}

	require.NoError(t, b.UpdateSun(context.Background(), scene, s, ws, DefaultSun))
	first := scene.Environment
	require.NotNil(t, first)

	dir := DefaultSun.Direction()
	assert.Equal(t, dir, s.SunPosition())
	assert.True(t, ws.SunDirection().ApproxEqual(dir.Normalize()))

	require.NoError(t, b.UpdateSun(context.Background(), scene, s, ws, Sun{Elevation: 45, Azimuth: 90}))
	assert.NotSame(t, first, scene.Environment)
	assert.True(t, first.Radiance.Disposed())
	assert.True(t, first.Irradiance.Disposed())
	assert.False(t, scene.Environment.Irradiance.Disposed())
}

func TestFailedUpdateSunKeepsEnvironment(t *testing.T) {
	scene := renderer.NewScene()
	s := sky.New(sky.DefaultScale, sky.DefaultParams)
	ws := water.NewSurface(water.DefaultOptions())
	b := &Baker{CaptureSize: 4, IrradianceSize: 2, Log: zap.NewNop()}
	require.NoError(t, b.UpdateSun(context.Background(), scene, s, ws, DefaultSun))
	current := scene.Environment

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.UpdateSun(ctx, scene, s, ws, Sun{Elevation: 45, Azimuth: 90})
	require.ErrorIs(t, err, context.Canceled)

	assert.Same(t, current, scene.Environment)
	assert.False(t, current.Radiance.Disposed())
	assert.False(t, current.Irradiance.Disposed())
}

func TestBakeRejectsZeroSize(t *testing.T) {
	b := &Baker{Log: zap.NewNop()}
	_, err := b.Bake(context.Background(), sky.NewModel(sky.DefaultParams, mgl64.Vec3{0, 1, 0}))
	assert.Error(t, err)
}
