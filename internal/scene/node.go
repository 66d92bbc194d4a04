// Package scene is a small retained-mode scene graph: a tree of group and
// mesh nodes with per-node transforms and flat materials, plus a camera.
// The GL renderer draws it and ExportGLB serialises it.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Kind distinguishes pure transform groups from drawable meshes.
type Kind int

const (
	KindGroup Kind = iota
	KindMesh
)

// Material is a flat lit surface description.
type Material struct {
	Color    mgl32.Vec3
	Emissive float32 // 0..1 fraction of Color added unlit
	Opacity  float32
}

// Solid returns an opaque, non-emissive material.
func Solid(r, g, b float32) Material {
	return Material{Color: mgl32.Vec3{r, g, b}, Opacity: 1}
}

// Glow returns a translucent emissive material.
func Glow(r, g, b, emissive, opacity float32) Material {
	return Material{Color: mgl32.Vec3{r, g, b}, Emissive: emissive, Opacity: opacity}
}

// Node is one element of the scene tree. Rotation is Euler XYZ in radians,
// applied X first.
type Node struct {
	Name     string
	Kind     Kind
	Geometry *Geometry
	Material Material

	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
	Visible  bool

	Children []*Node
	parent   *Node
}

// NewGroup creates an empty transform node.
func NewGroup(name string) *Node {
	return &Node{Name: name, Kind: KindGroup, Scale: mgl32.Vec3{1, 1, 1}, Visible: true}
}

// NewMesh creates a drawable node.
func NewMesh(name string, geom *Geometry, mat Material) *Node {
	return &Node{
		Name:     name,
		Kind:     KindMesh,
		Geometry: geom,
		Material: mat,
		Scale:    mgl32.Vec3{1, 1, 1},
		Visible:  true,
	}
}

// At sets the local position and returns the node for chaining.
func (n *Node) At(x, y, z float32) *Node {
	n.Position = mgl32.Vec3{x, y, z}
	return n
}

// Add attaches children and returns n.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// Remove detaches a direct child. It reports whether the child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Parent returns the node this one is attached to, or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// Find returns the first node named name in depth-first order.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Count returns the number of nodes in the subtree, including n.
func (n *Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

func (n *Node) rotationMatrix() mgl32.Mat4 {
	return mgl32.HomogRotate3DZ(n.Rotation.Z()).
		Mul4(mgl32.HomogRotate3DY(n.Rotation.Y())).
		Mul4(mgl32.HomogRotate3DX(n.Rotation.X()))
}

// LocalMatrix returns T * R * S for this node.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z())
	s := mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(n.rotationMatrix()).Mul4(s)
}

// WorldMatrix composes local matrices up to the root.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Walk visits the subtree depth first with each node's world matrix.
// Invisible nodes and their children are skipped.
func (n *Node) Walk(fn func(node *Node, world mgl32.Mat4)) {
	n.walk(mgl32.Ident4(), fn)
}

func (n *Node) walk(parent mgl32.Mat4, fn func(*Node, mgl32.Mat4)) {
	if !n.Visible {
		return
	}
	world := parent.Mul4(n.LocalMatrix())
	fn(n, world)
	for _, c := range n.Children {
		c.walk(world, fn)
	}
}
