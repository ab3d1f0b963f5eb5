package loader

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"testing"

	"Ocean3D/internal/renderer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangleMesh() *SerializedMesh {
	return &SerializedMesh{
		InterleavedData: []float32{
			0, 0, 0, 0, 0, 0, 0, 1,
			1, 0, 0, 1, 0, 0, 0, 1,
			0, 1, 0, 0, 1, 0, 0, 1,
		},
		Faces: []int32{0, 1, 2},
	}
}

// quadMesh is two triangles, each drawn with its own material.
func quadMesh() *SerializedMesh {
	return &SerializedMesh{
		InterleavedData: []float32{
			0, 0, 0, 0, 0, 0, 0, 1,
			1, 0, 0, 1, 0, 0, 0, 1,
			1, 1, 0, 1, 1, 0, 0, 1,
			0, 1, 0, 0, 1, 0, 0, 1,
		},
		Faces: []int32{0, 1, 2, 0, 2, 3},
		Groups: []renderer.Group{
			{IndexStart: 0, IndexCount: 3, MaterialIndex: 1},
			{IndexStart: 3, IndexCount: 3, MaterialIndex: 0},
		},
	}
}

func encodeMesh(t *testing.T, mesh *SerializedMesh) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodeMesh(&buf, mesh))
	return buf.Bytes()
}

func TestMeshBinaryEncoding(t *testing.T) {
	mesh := quadMesh()

	var buf bytes.Buffer
	require.NoError(t, EncodeMesh(&buf, mesh))
	require.NotZero(t, buf.Len())

	decoded, err := DecodeMesh(&buf)
	require.NoError(t, err)
	assert.Equal(t, mesh.InterleavedData, decoded.InterleavedData)
	assert.Equal(t, mesh.Faces, decoded.Faces)
	assert.Equal(t, mesh.Groups, decoded.Groups)
	assert.False(t, decoded.IsInstanced)

	node, err := decoded.Node("tri")
	require.NoError(t, err)
	assert.Len(t, node.Materials, 2)
	assert.Equal(t, 4, node.Geometry.VertexCount())
	assert.Equal(t, mesh.Groups, node.Geometry.Groups)
}

func TestInstancedMeshNode(t *testing.T) {
	mesh := triangleMesh()
	mesh.IsInstanced = true
	mesh.InstanceCount = 2
	mesh.InstancePositions = [][3]float32{{1, 2, 3}, {4, 5, 6}}
	mesh.InstanceColors = [][3]float32{{1, 0, 0}}

	var buf bytes.Buffer
	require.NoError(t, EncodeMesh(&buf, mesh))
	decoded, err := DecodeMesh(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.InstanceCount)

	node, err := decoded.Node("voxels")
	require.NoError(t, err)
	children := node.Children()
	require.Len(t, children, 2)
	assert.Same(t, children[0].Geometry, children[1].Geometry)
	assert.Equal(t, float32(5), children[1].Position.Y())
	assert.Equal(t, float32(1), children[0].Materials[0].Color.X())
}

func TestMeshFromBarePositions(t *testing.T) {
	mesh := &SerializedMesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Faces: []int32{0, 1, 2}}
	node, err := mesh.Node("bare")
	require.NoError(t, err)
	assert.Len(t, node.Geometry.InterleavedData, 3*renderer.VertexStride)
	assert.InDelta(t, 1.0, node.Geometry.InterleavedData[7], 1e-6)
}

func TestDecodeMeshRejectsBadInput(t *testing.T) {
	_, err := DecodeMesh(bytes.NewReader([]byte("not gzip")))
	assert.Error(t, err)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	require.NoError(t, binary.Write(gz, binary.LittleEndian, [3]uint32{0xdeadbeef, 1, 0}))
	require.NoError(t, gz.Close())
	_, err = DecodeMesh(&buf)
	assert.ErrorContains(t, err, "magic")

	bad := triangleMesh()
	bad.Faces = []int32{0, 1, 9}
	_, err = bad.Node("bad")
	assert.ErrorContains(t, err, "out of range")
}

func TestDecodeMeshRejectsBadGroups(t *testing.T) {
	tests := []struct {
		name   string
		groups []renderer.Group
		want   string
	}{
		{"huge material index", []renderer.Group{{IndexStart: 0, IndexCount: 3, MaterialIndex: 1 << 30}}, "material index"},
		{"negative material index", []renderer.Group{{IndexStart: 0, IndexCount: 3, MaterialIndex: -1}}, "material index"},
		{"material past group count", []renderer.Group{{IndexStart: 0, IndexCount: 3, MaterialIndex: 1}}, "material index"},
		{"range past indices", []renderer.Group{{IndexStart: 0, IndexCount: 3, MaterialIndex: 0}, {IndexStart: 3, IndexCount: 6, MaterialIndex: 1}}, "outside"},
		{"negative start", []renderer.Group{{IndexStart: -3, IndexCount: 3, MaterialIndex: 0}}, "outside"},
		{"negative count", []renderer.Group{{IndexStart: 0, IndexCount: -1, MaterialIndex: 0}}, "outside"},
		{"overflowing range", []renderer.Group{{IndexStart: 1 << 30, IndexCount: 1 << 30, MaterialIndex: 0}}, "outside"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh := triangleMesh()
			mesh.Groups = tt.groups

			_, err := DecodeMesh(bytes.NewReader(encodeMesh(t, mesh)))
			assert.ErrorContains(t, err, tt.want)

			_, err = mesh.Node("bad")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDecodeMeshRejectsHugeGroupCount(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	require.NoError(t, binary.Write(gz, binary.LittleEndian, [3]uint32{meshMagic, meshVersion, meshFlagGroups}))
	for _, n := range []int32{0, 0, 0} {
		// Empty vertices, interleaved data and faces.
		require.NoError(t, binary.Write(gz, binary.LittleEndian, n))
	}
	require.NoError(t, binary.Write(gz, binary.LittleEndian, int32(0x7fffffff)))
	require.NoError(t, gz.Close())

	_, err := DecodeMesh(&buf)
	assert.ErrorContains(t, err, "mesh groups")
}

func TestModelWithBadGroupsIsALoadFailure(t *testing.T) {
	l, _ := newTestLoader(t)
	mesh := triangleMesh()
	mesh.Groups = []renderer.Group{{IndexStart: 0, IndexCount: 3, MaterialIndex: 1 << 30}}

	_, err := l.decodeModel("boat.mesh", encodeMesh(t, mesh))
	assert.ErrorContains(t, err, "material index")
}
