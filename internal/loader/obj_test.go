package loader

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadOBJ = `# two materials on one quad
mtllib quad.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
usemtl red
f 1/1/1 2/2/1 3/3/1
usemtl blue
f 1/1/1 3/3/1 4/4/1
`

const quadMTL = `newmtl red
Kd 1 0 0
Pm 0.25
map_Kd -bm 1 red.png
newmtl blue
Kd 0 0 1
d 0.5
`

func openMap(files map[string]string) func(string) (io.ReadCloser, error) {
	return func(ref string) (io.ReadCloser, error) {
		data, ok := files[ref]
		if !ok {
			return nil, errors.New("not found")
		}
		return io.NopCloser(strings.NewReader(data)), nil
	}
}

func TestParseOBJMultiMaterial(t *testing.T) {
	model, err := ParseOBJ("quad", strings.NewReader(quadOBJ), openMap(map[string]string{"quad.mtl": quadMTL}))
	require.NoError(t, err)

	node := model.Node
	require.NotNil(t, node.Geometry)
	require.Len(t, node.Materials, 2)
	assert.Equal(t, "red", node.Materials[0].Name)
	assert.Equal(t, "blue", node.Materials[1].Name)
	assert.InDelta(t, 0.25, node.Materials[0].Metalness, 1e-6)
	assert.InDelta(t, 0.5, node.Materials[1].Opacity, 1e-6)

	// Shared corners are unified into four vertices.
	assert.Equal(t, 4, node.Geometry.VertexCount())
	assert.Len(t, node.Geometry.Indices, 6)

	require.Len(t, node.Geometry.Groups, 2)
	assert.Equal(t, int32(0), node.Geometry.Groups[0].IndexStart)
	assert.Equal(t, int32(3), node.Geometry.Groups[0].IndexCount)
	assert.Equal(t, int32(3), node.Geometry.Groups[1].IndexStart)
	assert.Equal(t, 1, node.Geometry.Groups[1].MaterialIndex)

	assert.Equal(t, "red.png", model.TextureRefs[node.Materials[0]])
	assert.NotContains(t, model.TextureRefs, node.Materials[1])
}

func TestParseOBJTriangulatesAndComputesNormals(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 1 0 -1\nv 0 0 -1\nf 1 2 3 4\n"
	model, err := ParseOBJ("flat", strings.NewReader(src), nil)
	require.NoError(t, err)

	geo := model.Node.Geometry
	assert.Len(t, geo.Indices, 6)
	assert.Empty(t, geo.Groups)
	require.Len(t, model.Node.Materials, 1)
	assert.Equal(t, "default", model.Node.Materials[0].Name)

	for i := 0; i < geo.VertexCount(); i++ {
		ny := geo.InterleavedData[i*8+6]
		assert.InDelta(t, 1.0, ny, 1e-5, "vertex %d should face +Y", i)
	}
}

func TestParseOBJNegativeIndices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"
	model, err := ParseOBJ("rel", strings.NewReader(src), nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, model.Node.Geometry.Indices)
}

func TestParseOBJErrors(t *testing.T) {
	cases := map[string]string{
		"bad vertex":   "v 0 x 0\n",
		"out of range": "v 0 0 0\nf 1 2 3\n",
		"no faces":     "v 0 0 0\n",
		"short face":   "v 0 0 0\nv 1 0 0\nf 1 2\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOBJ("bad", strings.NewReader(src), nil)
			assert.Error(t, err)
		})
	}
}

func TestParseOBJMissingLibraryFallsBack(t *testing.T) {
	src := "mtllib missing.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl hull\nf 1 2 3\n"
	model, err := ParseOBJ("hull", strings.NewReader(src), openMap(nil))
	require.NoError(t, err)
	require.Len(t, model.Node.Materials, 1)
	assert.Equal(t, "hull", model.Node.Materials[0].Name)
}

func TestRecalculateNormals(t *testing.T) {
	vertices := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	normals := RecalculateNormals(vertices, []int32{0, 1, 2})
	require.Len(t, normals, 9)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0, normals[i*3+2], 1e-6)
	}
	assert.Nil(t, RecalculateNormals(nil, nil))
}
