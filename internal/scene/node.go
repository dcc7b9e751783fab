package scene

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeID is a stable identity for a node. Side tables (interactive objects, hover state) key on it
// instead of attaching ad hoc fields to the graph.
type NodeID uint64

var lastNodeID atomic.Uint64

func nextNodeID() NodeID {
	return NodeID(lastNodeID.Add(1))
}

// Node is one element of the scene graph: a group, a mesh, or a light.
// Transform is local (relative to the parent). Mesh and Light are nil for plain groups.
type Node struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	Mesh  *Mesh
	Light *Light

	id       NodeID
	parent   *Node
	children []*Node
}

// NewGroup returns an empty node with identity transform.
func NewGroup(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		id:       nextNodeID(),
	}
}

// NewMeshNode returns a node carrying mesh.
func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewGroup(name)
	n.Mesh = mesh
	return n
}

// NewLightNode returns a node carrying light, placed at the light's position.
func NewLightNode(name string, light *Light) *Node {
	n := NewGroup(name)
	n.Light = light
	n.Position = light.Position
	return n
}

// ID returns the node's stable identity.
func (n *Node) ID() NodeID {
	return n.id
}

// Parent returns the parent node, or nil for a root or detached node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the direct children. The slice must not be modified.
func (n *Node) Children() []*Node {
	return n.children
}

// Add attaches children to n, detaching each from its previous parent first.
func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
}

// Remove detaches child from n. Unknown children are ignored.
func (n *Node) Remove(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// Clear detaches every direct child.
func (n *Node) Clear() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

// Traverse calls fn for n and every descendant, depth first, parents before children.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Traverse(fn)
	}
}

// LocalMatrix returns the node's transform relative to its parent (translate * rotate * scale).
func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	r := n.Rotation.Normalize().Mat4()
	s := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return t.Mul4(r).Mul4(s)
}

// WorldMatrix returns the node's transform relative to the root of its graph.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}
