package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaterNormalsAreUnitAndPointUp(t *testing.T) {
	img := WaterNormals(32, 42)
	assert.Equal(t, 32, img.Rect.Dx())

	for y := 0; y < 32; y += 7 {
		for x := 0; x < 32; x += 5 {
			c := img.RGBAAt(x, y)
			assert.Greater(t, c.B, uint8(127), "normal at %d,%d should face out of the surface", x, y)
			assert.Equal(t, uint8(255), c.A)
		}
	}
}

func TestWaterNormalsDeterministic(t *testing.T) {
	a := WaterNormals(16, 7)
	b := WaterNormals(16, 7)
	assert.Equal(t, a.Pix, b.Pix)
}
