package envmap

import (
	"context"

	"Ocean3D/internal/renderer"
	"Ocean3D/internal/sky"
	"Ocean3D/internal/water"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Sun is the fixed sun placement in degrees.
type Sun struct {
	Elevation float64
	Azimuth   float64
}

// DefaultSun sits just above the horizon.
var DefaultSun = Sun{Elevation: 2, Azimuth: 180}

func (s Sun) Direction() mgl32.Vec3 {
	return sky.SunDirection(s.Elevation, s.Azimuth)
}

// UpdateSun points the sky and the water at the sun, then bakes the sky and
// installs the result as the scene environment. The previously installed
// environment is disposed only once the new bake succeeded, so a failed bake
// leaves the scene lit as before.
func (b *Baker) UpdateSun(ctx context.Context, scene *renderer.Scene, s *sky.Sky, ws *water.Surface, sun Sun) error {
	dir := sun.Direction()
	s.SetSunPosition(dir)
	ws.SetSunDirection(dir)

	// Bake first. Both environments are alive until the swap below.
	env, err := b.Bake(ctx, s.Model())
	if err != nil {
		return err
	}

	if prev := scene.Environment; prev != nil {
		if err := prev.Dispose(); err != nil {
			b.log().Warn("Could not dispose previous environment", zap.Error(err))
		}
	}
	scene.SetEnvironment(env)

	b.log().Info("Sun updated",
		zap.Float64("elevation", sun.Elevation),
		zap.Float64("azimuth", sun.Azimuth),
		zap.Float32s("direction", dir[:]))
	return nil
}
