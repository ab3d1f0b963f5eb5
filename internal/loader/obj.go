package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"Ocean3D/internal/logger"
	"Ocean3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// OBJModel is a parsed Wavefront model. TextureRefs lists the map_Kd
// reference of every material that has one, relative to the MTL file.
type OBJModel struct {
	Node        *renderer.Node
	TextureRefs map[*renderer.Material]string
}

type FaceVertex struct {
	VertexIdx   int32
	TexCoordIdx int32
	NormalIdx   int32
}

// ParseOBJ reads an OBJ stream into a single multi-material node. Faces are
// triangulated, v/vt/vn triplets are unified into one interleaved vertex
// buffer and each run of faces sharing a material becomes a Group. open
// resolves mtllib references; it may be nil.
func ParseOBJ(name string, r io.Reader, open func(ref string) (io.ReadCloser, error)) (*OBJModel, error) {
	var (
		vertices      []float32
		textureCoords []float32
		normals       []float32
		faces         []FaceVertex
		faceMaterials []string

		currentMaterialName string
		libraries           = make(map[string]*mtlMaterial)
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		switch parts[0] {
		case "v":
			vertex, err := parseVertex(parts[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			vertices = append(vertices, vertex...)
		case "vn":
			normal, err := parseVertex(parts[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			normals = append(normals, normal...)
		case "vt":
			texCoord, err := parseVertex(parts[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			textureCoords = append(textureCoords, texCoord...)
		case "f":
			faceVertices, err := parseFace(parts[1:], len(vertices)/3, len(textureCoords)/2, len(normals)/3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			faces = append(faces, faceVertices...)
			for range faceVertices {
				faceMaterials = append(faceMaterials, currentMaterialName)
			}
		case "mtllib":
			if open == nil || len(parts) < 2 {
				continue
			}
			ref := strings.Join(parts[1:], " ")
			materials, err := loadMaterialLibrary(ref, open)
			if err != nil {
				logger.Log.Warn("Could not load material library", zap.String("mtllib", ref), zap.Error(err))
				continue
			}
			for k, v := range materials {
				libraries[k] = v
			}
		case "usemtl":
			if len(parts) >= 2 {
				currentMaterialName = parts[1]
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("no faces in %s", name)
	}

	// Index unification: one output vertex per distinct v/vt/vn triplet.
	type vertexKey struct{ v, vt, vn int32 }
	vertexMap := make(map[vertexKey]uint32)
	var (
		interleaved []float32
		indices     = make([]uint32, 0, len(faces))
	)
	for _, fv := range faces {
		key := vertexKey{fv.VertexIdx, fv.TexCoordIdx, fv.NormalIdx}
		if idx, ok := vertexMap[key]; ok {
			indices = append(indices, idx)
			continue
		}
		idx := uint32(len(interleaved) / renderer.VertexStride)
		vertexMap[key] = idx

		interleaved = append(interleaved, vertices[fv.VertexIdx*3:fv.VertexIdx*3+3]...)
		if fv.TexCoordIdx >= 0 {
			interleaved = append(interleaved, textureCoords[fv.TexCoordIdx*2:fv.TexCoordIdx*2+2]...)
		} else {
			interleaved = append(interleaved, 0, 0)
		}
		if fv.NormalIdx >= 0 {
			interleaved = append(interleaved, normals[fv.NormalIdx*3:fv.NormalIdx*3+3]...)
		} else {
			interleaved = append(interleaved, 0, 0, 0)
		}
		indices = append(indices, idx)
	}
	if len(normals) == 0 {
		// Some models ship without normals, so we derive them ourselves.
		recomputeInterleavedNormals(interleaved, indices)
	}

	// Material groups in face order.
	var (
		materials  []*renderer.Material
		groups     []renderer.Group
		textures   = make(map[*renderer.Material]string)
		matIndexOf = make(map[string]int)
	)
	for i, matName := range faceMaterials {
		if matName == "" {
			matName = "default"
		}
		mi, ok := matIndexOf[matName]
		if !ok {
			mi = len(materials)
			matIndexOf[matName] = mi
			if lib, found := libraries[matName]; found {
				materials = append(materials, lib.Material)
				if lib.mapRef != "" {
					textures[lib.Material] = lib.mapRef
				}
			} else {
				if matName != "default" {
					logger.Log.Debug("Material not found", zap.String("material", matName))
				}
				materials = append(materials, renderer.NewMaterial(matName, renderer.StandardMaterial))
			}
		}
		if len(groups) == 0 || groups[len(groups)-1].MaterialIndex != mi {
			groups = append(groups, renderer.Group{IndexStart: int32(i), MaterialIndex: mi})
		}
		groups[len(groups)-1].IndexCount++
	}

	geometry := renderer.NewGeometry(name, interleaved, indices)
	if len(groups) > 1 {
		geometry.Groups = groups
	}

	logger.Log.Info("OBJ model parsed",
		zap.String("name", name),
		zap.Int("originalVertices", len(vertices)/3),
		zap.Int("unifiedVertices", len(interleaved)/renderer.VertexStride),
		zap.Int("triangles", len(indices)/3),
		zap.Int("materialGroups", len(groups)))

	return &OBJModel{
		Node:        renderer.NewMesh(name, geometry, materials...),
		TextureRefs: textures,
	}, nil
}

func loadMaterialLibrary(ref string, open func(string) (io.ReadCloser, error)) (map[string]*mtlMaterial, error) {
	rc, err := open(ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseMTL(rc)
}

func parseVertex(parts []string, want int) ([]float32, error) {
	if len(parts) < want {
		return nil, fmt.Errorf("expected %d components, got %d", want, len(parts))
	}
	vertex := make([]float32, want)
	for i := 0; i < want; i++ {
		val, err := strconv.ParseFloat(parts[i], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vertex value %v: %w", parts[i], err)
		}
		vertex[i] = float32(val)
	}
	return vertex, nil
}

// resolveIndex converts a 1-based or negative (relative) OBJ index to 0-based.
func resolveIndex(s string, count int) (int32, error) {
	idx, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid index %v: %w", s, err)
	}
	if idx < 0 {
		idx = int64(count) + idx
	} else {
		idx--
	}
	if idx < 0 || idx >= int64(count) {
		return 0, fmt.Errorf("index %s out of range (%d defined)", s, count)
	}
	return int32(idx), nil
}

func parseFace(parts []string, vCount, vtCount, vnCount int) ([]FaceVertex, error) {
	if len(parts) < 3 {
		return nil, fmt.Errorf("face needs at least 3 vertices, got %d", len(parts))
	}
	face := make([]FaceVertex, 0, len(parts))
	for _, part := range parts {
		vals := strings.Split(part, "/")

		vertexIdx, err := resolveIndex(vals[0], vCount)
		if err != nil {
			return nil, err
		}
		fv := FaceVertex{VertexIdx: vertexIdx, TexCoordIdx: -1, NormalIdx: -1}
		if len(vals) > 1 && vals[1] != "" {
			if fv.TexCoordIdx, err = resolveIndex(vals[1], vtCount); err != nil {
				return nil, err
			}
		}
		if len(vals) > 2 && vals[2] != "" {
			if fv.NormalIdx, err = resolveIndex(vals[2], vnCount); err != nil {
				return nil, err
			}
		}
		face = append(face, fv)
	}

	if len(face) == 3 {
		return face, nil
	}
	// Fan triangulation from the first vertex keeps counter-clockwise winding.
	triangulated := make([]FaceVertex, 0, (len(face)-2)*3)
	for i := 1; i < len(face)-1; i++ {
		triangulated = append(triangulated, face[0], face[i], face[i+1])
	}
	return triangulated, nil
}

func triangleNormal(v0, v1, v2 mgl32.Vec3) mgl32.Vec3 {
	n := v1.Sub(v0).Cross(v2.Sub(v0))
	if n.Len() == 0 {
		return n
	}
	return n.Normalize()
}

func recomputeInterleavedNormals(interleaved []float32, indices []uint32) {
	pos := func(i uint32) mgl32.Vec3 {
		o := int(i) * renderer.VertexStride
		return mgl32.Vec3{interleaved[o], interleaved[o+1], interleaved[o+2]}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		n := triangleNormal(pos(indices[i]), pos(indices[i+1]), pos(indices[i+2]))
		for _, idx := range indices[i : i+3] {
			o := int(idx)*renderer.VertexStride + 5
			interleaved[o] += n[0]
			interleaved[o+1] += n[1]
			interleaved[o+2] += n[2]
		}
	}
	for o := 5; o+2 < len(interleaved); o += renderer.VertexStride {
		n := mgl32.Vec3{interleaved[o], interleaved[o+1], interleaved[o+2]}
		if n.Len() == 0 {
			n = mgl32.Vec3{0, 1, 0}
		}
		n = n.Normalize()
		interleaved[o], interleaved[o+1], interleaved[o+2] = n[0], n[1], n[2]
	}
}

// RecalculateNormals averages face normals onto bare xyz positions.
func RecalculateNormals(vertices []float32, faces []int32) []float32 {
	if len(vertices) == 0 || len(faces) == 0 {
		return nil
	}
	normals := make([]float32, len(vertices))
	count := int32(len(vertices) / 3)
	for i := 0; i+2 < len(faces); i += 3 {
		i0, i1, i2 := faces[i], faces[i+1], faces[i+2]
		if i0 < 0 || i1 < 0 || i2 < 0 || i0 >= count || i1 >= count || i2 >= count {
			continue
		}
		v := func(idx int32) mgl32.Vec3 {
			return mgl32.Vec3{vertices[idx*3], vertices[idx*3+1], vertices[idx*3+2]}
		}
		n := triangleNormal(v(i0), v(i1), v(i2))
		for _, idx := range [3]int32{i0, i1, i2} {
			normals[idx*3] += n[0]
			normals[idx*3+1] += n[1]
			normals[idx*3+2] += n[2]
		}
	}
	for i := 0; i+2 < len(normals); i += 3 {
		n := mgl32.Vec3{normals[i], normals[i+1], normals[i+2]}
		if n.Len() == 0 {
			n = mgl32.Vec3{0, 1, 0}
		}
		n = n.Normalize()
		normals[i], normals[i+1], normals[i+2] = n[0], n[1], n[2]
	}
	return normals
}
