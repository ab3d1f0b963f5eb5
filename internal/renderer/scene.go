package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Node is a scene graph element. A node with Geometry is drawn; with more
// than one material its Geometry.Groups pick the material per index range.
type Node struct {
	Name     string
	Position mgl32.Vec3
	// Rotation holds Euler angles in radians applied in X, Y, Z order.
	Rotation  mgl32.Vec3
	Scale     mgl32.Vec3
	Visible   bool
	Geometry  *Geometry
	Materials []*Material

	parent   *Node
	children []*Node
}

func NewNode(name string) *Node {
	return &Node{
		Name:    name,
		Scale:   mgl32.Vec3{1, 1, 1},
		Visible: true,
	}
}

// NewMesh builds a drawable node from geometry and one or more materials.
func NewMesh(name string, geometry *Geometry, materials ...*Material) *Node {
	n := NewNode(name)
	n.Geometry = geometry
	n.Materials = materials
	return n
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Children() []*Node {
	return n.children
}

// Add reparents child under n.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Traverse visits n and every descendant depth first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Traverse(fn)
	}
}

func (n *Node) SetPosition(x, y, z float32) {
	n.Position = mgl32.Vec3{x, y, z}
}

func (n *Node) SetScalar(s float32) {
	n.Scale = mgl32.Vec3{s, s, s}
}

// LocalMatrix is T * Rx * Ry * Rz * S.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z())
	r := mgl32.HomogRotate3DX(n.Rotation.X()).
		Mul4(mgl32.HomogRotate3DY(n.Rotation.Y())).
		Mul4(mgl32.HomogRotate3DZ(n.Rotation.Z()))
	s := mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Scene is the root of a scene graph plus the ambient lighting environment.
type Scene struct {
	Root        *Node
	Environment *Environment
	// Background is the clear color behind everything the scene draws.
	Background mgl32.Vec3
}

func NewScene() *Scene {
	return &Scene{Root: NewNode("root")}
}

func (s *Scene) Add(n *Node) {
	s.Root.Add(n)
}

// SetEnvironment installs env, returning the previous environment so the
// caller can dispose it.
func (s *Scene) SetEnvironment(env *Environment) *Environment {
	prev := s.Environment
	s.Environment = env
	return prev
}
