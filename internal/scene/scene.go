package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the root of everything drawn in a frame: a node tree plus an optional background panorama.
// BackgroundRotation is applied to the panorama as Euler angles (radians, x/y/z).
type Scene struct {
	Root               *Node
	Background         *Texture
	BackgroundRotation mgl32.Vec3
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{Root: NewGroup("scene")}
}

// Add attaches nodes to the scene root.
func (s *Scene) Add(nodes ...*Node) {
	s.Root.Add(nodes...)
}

// Remove detaches node from the scene root.
func (s *Scene) Remove(node *Node) {
	s.Root.Remove(node)
}

// Children returns the root's direct children.
func (s *Scene) Children() []*Node {
	return s.Root.Children()
}

// Clear detaches every direct child of the root. Resources are not released; see render.Context.Dispose.
func (s *Scene) Clear() {
	s.Root.Clear()
}

// Traverse visits every node of the scene, root first.
func (s *Scene) Traverse(fn func(*Node)) {
	s.Root.Traverse(fn)
}

// Lights returns every light reachable from the root, in traversal order.
func (s *Scene) Lights() []*Light {
	var out []*Light
	s.Traverse(func(n *Node) {
		if n.Light != nil {
			out = append(out, n.Light)
		}
	})
	return out
}
