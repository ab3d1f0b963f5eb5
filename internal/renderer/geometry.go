package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the float count of one interleaved vertex: position(3), uv(2), normal(3).
const VertexStride = 8

// Group is a contiguous index range drawn with one material of a multi-material node.
type Group struct {
	IndexStart    int32
	IndexCount    int32
	MaterialIndex int
}

type Geometry struct {
	disposable

	Name            string
	InterleavedData []float32
	Indices         []uint32
	Groups          []Group

	BoundingSphereCenter mgl32.Vec3
	BoundingSphereRadius float32
}

func NewGeometry(name string, interleaved []float32, indices []uint32) *Geometry {
	g := &Geometry{Name: name, InterleavedData: interleaved, Indices: indices}
	g.ComputeBoundingSphere()
	return g
}

func (g *Geometry) VertexCount() int {
	return len(g.InterleavedData) / VertexStride
}

func (g *Geometry) Position(i int) mgl32.Vec3 {
	o := i * VertexStride
	return mgl32.Vec3{g.InterleavedData[o], g.InterleavedData[o+1], g.InterleavedData[o+2]}
}

// ComputeBoundingSphere uses the centre of the AABB and the farthest vertex from it.
func (g *Geometry) ComputeBoundingSphere() {
	n := g.VertexCount()
	if n == 0 {
		g.BoundingSphereCenter = mgl32.Vec3{}
		g.BoundingSphereRadius = 0
		return
	}
	minV, maxV := g.Position(0), g.Position(0)
	for i := 1; i < n; i++ {
		p := g.Position(i)
		for a := 0; a < 3; a++ {
			if p[a] < minV[a] {
				minV[a] = p[a]
			}
			if p[a] > maxV[a] {
				maxV[a] = p[a]
			}
		}
	}
	center := minV.Add(maxV).Mul(0.5)
	var radius float32
	for i := 0; i < n; i++ {
		if d := g.Position(i).Sub(center).Len(); d > radius {
			radius = d
		}
	}
	g.BoundingSphereCenter = center
	g.BoundingSphereRadius = radius
}

// Dispose releases the GPU buffers backing the geometry.
func (g *Geometry) Dispose() error {
	return g.dispose()
}

// NewPlaneGeometry builds a width x height plane in the XY plane facing +Z,
// split into segW x segH quads.
func NewPlaneGeometry(width, height float32, segW, segH int) *Geometry {
	if segW < 1 {
		segW = 1
	}
	if segH < 1 {
		segH = 1
	}
	halfW, halfH := width/2, height/2
	stepX, stepY := width/float32(segW), height/float32(segH)

	data := make([]float32, 0, (segW+1)*(segH+1)*VertexStride)
	for iy := 0; iy <= segH; iy++ {
		y := float32(iy)*stepY - halfH
		for ix := 0; ix <= segW; ix++ {
			x := float32(ix)*stepX - halfW
			u := float32(ix) / float32(segW)
			v := 1 - float32(iy)/float32(segH)
			data = append(data, x, -y, 0, u, v, 0, 0, 1)
		}
	}

	indices := make([]uint32, 0, segW*segH*6)
	row := uint32(segW + 1)
	for iy := 0; iy < segH; iy++ {
		for ix := 0; ix < segW; ix++ {
			a := uint32(iy)*row + uint32(ix)
			b := a + row
			c := b + 1
			d := a + 1
			indices = append(indices, a, b, d, b, c, d)
		}
	}
	return NewGeometry("plane", data, indices)
}

// NewBoxGeometry builds an axis-aligned box centred on the origin with outward normals.
func NewBoxGeometry(width, height, depth float32) *Geometry {
	hx, hy, hz := width/2, height/2, depth/2
	type face struct {
		normal   mgl32.Vec3
		u, v     mgl32.Vec3
		halfU    float32
		halfV    float32
		distance float32
	}
	faces := []face{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}, hz, hy, hx},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}, hz, hy, hx},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, hx, hz, hy},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}, hx, hz, hy},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, hx, hy, hz},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}, hx, hy, hz},
	}

	data := make([]float32, 0, 24*VertexStride)
	indices := make([]uint32, 0, 36)
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for fi, f := range faces {
		for _, c := range corners {
			p := f.normal.Mul(f.distance).Add(f.u.Mul(c[0] * f.halfU)).Add(f.v.Mul(c[1] * f.halfV))
			data = append(data, p.X(), p.Y(), p.Z(), (c[0]+1)/2, (c[1]+1)/2, f.normal.X(), f.normal.Y(), f.normal.Z())
		}
		base := uint32(fi * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewGeometry("box", data, indices)
}
