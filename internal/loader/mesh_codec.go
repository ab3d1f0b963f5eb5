package loader

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"Ocean3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	meshMagic   uint32 = 0x4D455348 // "MESH"
	meshVersion uint32 = 1

	meshFlagInstanced uint32 = 1
	meshFlagGroups    uint32 = 2
)

// SerializedMesh is the decoded form of a binary mesh file.
type SerializedMesh struct {
	Name string
	// Vertices holds bare positions; used only when InterleavedData is empty.
	Vertices        []float32
	InterleavedData []float32
	Faces           []int32
	Groups          []renderer.Group

	// Instanced meshes repeat the same geometry at each position.
	IsInstanced       bool
	InstanceCount     int
	InstancePositions [][3]float32
	InstanceColors    [][3]float32
}

// EncodeMesh writes mesh as gzip-compressed little-endian binary.
func EncodeMesh(w io.Writer, mesh *SerializedMesh) error {
	gz := gzip.NewWriter(w)

	flags := uint32(0)
	if mesh.IsInstanced {
		flags |= meshFlagInstanced
	}
	if len(mesh.Groups) > 0 {
		flags |= meshFlagGroups
	}
	for _, v := range []uint32{meshMagic, meshVersion, flags} {
		if err := binary.Write(gz, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	if err := writeFloat32Slice(gz, mesh.Vertices); err != nil {
		return err
	}
	if err := writeFloat32Slice(gz, mesh.InterleavedData); err != nil {
		return err
	}
	if err := writeInt32Slice(gz, mesh.Faces); err != nil {
		return err
	}

	if mesh.IsInstanced {
		if err := binary.Write(gz, binary.LittleEndian, int32(mesh.InstanceCount)); err != nil {
			return err
		}
		if err := writeVec3Slice(gz, mesh.InstancePositions); err != nil {
			return err
		}
		if err := writeVec3Slice(gz, mesh.InstanceColors); err != nil {
			return err
		}
	}

	if len(mesh.Groups) > 0 {
		if err := binary.Write(gz, binary.LittleEndian, int32(len(mesh.Groups))); err != nil {
			return err
		}
		for _, g := range mesh.Groups {
			rec := [3]int32{g.IndexStart, g.IndexCount, int32(g.MaterialIndex)}
			if err := binary.Write(gz, binary.LittleEndian, rec); err != nil {
				return err
			}
		}
	}

	return gz.Close()
}

// DecodeMesh reads a mesh written by EncodeMesh.
func DecodeMesh(r io.Reader) (*SerializedMesh, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var header [3]uint32
	if err := binary.Read(gz, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("mesh header: %w", err)
	}
	if header[0] != meshMagic {
		return nil, fmt.Errorf("invalid mesh file magic: %x", header[0])
	}
	if header[1] != meshVersion {
		return nil, fmt.Errorf("unsupported mesh version: %d", header[1])
	}
	flags := header[2]

	mesh := &SerializedMesh{IsInstanced: flags&meshFlagInstanced != 0}
	if mesh.Vertices, err = readFloat32Slice(gz); err != nil {
		return nil, fmt.Errorf("mesh vertices: %w", err)
	}
	if mesh.InterleavedData, err = readFloat32Slice(gz); err != nil {
		return nil, fmt.Errorf("mesh interleaved data: %w", err)
	}
	if mesh.Faces, err = readInt32Slice(gz); err != nil {
		return nil, fmt.Errorf("mesh faces: %w", err)
	}

	if mesh.IsInstanced {
		var count int32
		if err := binary.Read(gz, binary.LittleEndian, &count); err != nil {
			return nil, err
		}
		mesh.InstanceCount = int(count)
		if mesh.InstancePositions, err = readVec3Slice(gz); err != nil {
			return nil, fmt.Errorf("instance positions: %w", err)
		}
		if mesh.InstanceColors, err = readVec3Slice(gz); err != nil {
			return nil, fmt.Errorf("instance colors: %w", err)
		}
	}

	if flags&meshFlagGroups != 0 {
		count, err := readCount(gz)
		if err != nil {
			return nil, fmt.Errorf("mesh groups: %w", err)
		}
		if count > len(mesh.Faces) {
			return nil, fmt.Errorf("mesh groups: %d groups for %d indices", count, len(mesh.Faces))
		}
		mesh.Groups = make([]renderer.Group, count)
		for i := range mesh.Groups {
			var rec [3]int32
			if err := binary.Read(gz, binary.LittleEndian, &rec); err != nil {
				return nil, err
			}
			mesh.Groups[i] = renderer.Group{IndexStart: rec[0], IndexCount: rec[1], MaterialIndex: int(rec[2])}
		}
		if err := validateGroups(mesh.Groups, len(mesh.Faces)); err != nil {
			return nil, err
		}
	}

	return mesh, nil
}

// validateGroups checks that every group draws inside the index buffer and
// names one of at most len(groups) materials.
func validateGroups(groups []renderer.Group, indexCount int) error {
	for i, g := range groups {
		if g.IndexStart < 0 || g.IndexCount < 0 || int64(g.IndexStart)+int64(g.IndexCount) > int64(indexCount) {
			return fmt.Errorf("group %d range [%d,+%d) outside %d indices", i, g.IndexStart, g.IndexCount, indexCount)
		}
		if g.MaterialIndex < 0 || g.MaterialIndex >= len(groups) {
			return fmt.Errorf("group %d material index %d out of range (%d groups)", i, g.MaterialIndex, len(groups))
		}
	}
	return nil
}

// Node builds a scene node from the decoded mesh. Instanced meshes become a
// parent with one child per instance sharing the geometry.
func (mesh *SerializedMesh) Node(name string) (*renderer.Node, error) {
	interleaved := mesh.InterleavedData
	if len(interleaved) == 0 {
		interleaved = interleavePositions(mesh.Vertices, mesh.Faces)
	}
	if len(interleaved)%renderer.VertexStride != 0 {
		return nil, fmt.Errorf("interleaved data length %d is not a multiple of %d", len(interleaved), renderer.VertexStride)
	}
	vertexCount := len(interleaved) / renderer.VertexStride

	indices := make([]uint32, len(mesh.Faces))
	for i, f := range mesh.Faces {
		if f < 0 || int(f) >= vertexCount {
			return nil, fmt.Errorf("face index %d out of range (%d vertices)", f, vertexCount)
		}
		indices[i] = uint32(f)
	}

	if err := validateGroups(mesh.Groups, len(indices)); err != nil {
		return nil, err
	}

	geometry := renderer.NewGeometry(name, interleaved, indices)
	geometry.Groups = mesh.Groups

	materialCount := 1
	for _, g := range mesh.Groups {
		if g.MaterialIndex+1 > materialCount {
			materialCount = g.MaterialIndex + 1
		}
	}
	materials := make([]*renderer.Material, materialCount)
	for i := range materials {
		materials[i] = renderer.NewMaterial(fmt.Sprintf("%s_%d", name, i), renderer.StandardMaterial)
	}

	if !mesh.IsInstanced {
		return renderer.NewMesh(name, geometry, materials...), nil
	}

	root := renderer.NewNode(name)
	for i, pos := range mesh.InstancePositions {
		mats := materials
		if i < len(mesh.InstanceColors) {
			c := mesh.InstanceColors[i]
			m := renderer.NewMaterial(fmt.Sprintf("%s_instance_%d", name, i), renderer.StandardMaterial)
			m.Color = mgl32.Vec3{c[0], c[1], c[2]}
			mats = []*renderer.Material{m}
		}
		child := renderer.NewMesh(fmt.Sprintf("%s_%d", name, i), geometry, mats...)
		child.SetPosition(pos[0], pos[1], pos[2])
		root.Add(child)
	}
	return root, nil
}

// interleavePositions expands bare positions into the interleaved layout with
// zero UVs and face normals accumulated per vertex.
func interleavePositions(vertices []float32, faces []int32) []float32 {
	normals := RecalculateNormals(vertices, faces)
	count := len(vertices) / 3
	out := make([]float32, 0, count*renderer.VertexStride)
	for i := 0; i < count; i++ {
		out = append(out, vertices[i*3:i*3+3]...)
		out = append(out, 0, 0)
		if normals != nil {
			out = append(out, normals[i*3:i*3+3]...)
		} else {
			out = append(out, 0, 1, 0)
		}
	}
	return out
}

func writeFloat32Slice(w io.Writer, data []float32) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(data))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}

func writeInt32Slice(w io.Writer, data []int32) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(data))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}

func writeVec3Slice(w io.Writer, data [][3]float32) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(data))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}

// maxSliceLen bounds allocations driven by length prefixes in untrusted files.
const maxSliceLen = 1 << 26

func readCount(r io.Reader) (int, error) {
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, err
	}
	if count < 0 || count > maxSliceLen {
		return 0, fmt.Errorf("invalid length %d", count)
	}
	return int(count), nil
}

func readFloat32Slice(r io.Reader) ([]float32, error) {
	count, err := readCount(r)
	if err != nil {
		return nil, err
	}
	data := make([]float32, count)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, err
	}
	return data, nil
}

func readInt32Slice(r io.Reader) ([]int32, error) {
	count, err := readCount(r)
	if err != nil {
		return nil, err
	}
	data := make([]int32, count)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, err
	}
	return data, nil
}

func readVec3Slice(r io.Reader) ([][3]float32, error) {
	count, err := readCount(r)
	if err != nil {
		return nil, err
	}
	data := make([][3]float32, count)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, err
	}
	return data, nil
}
