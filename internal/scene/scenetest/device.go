// Package scenetest provides an in-memory scene.Device and small scene builders for tests.
package scenetest

import (
	"fmt"
	"image"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"walkthrough/internal/scene"
)

// Device is a scene.Device that only counts allocations. A handle released twice is recorded
// as a double free.
type Device struct {
	mu          sync.Mutex
	live        map[*handle]string
	DoubleFrees int
	Uploads     int
}

// NewDevice returns an empty fake device.
func NewDevice() *Device {
	return &Device{live: make(map[*handle]string)}
}

type handle struct {
	dev  *Device
	kind string
	done bool
}

func (h *handle) Release() {
	h.dev.mu.Lock()
	defer h.dev.mu.Unlock()
	if h.done {
		h.dev.DoubleFrees++
		return
	}
	h.done = true
	delete(h.dev.live, h)
}

func (d *Device) alloc(kind string) scene.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := &handle{dev: d, kind: kind}
	d.live[h] = kind
	d.Uploads++
	return h
}

func (d *Device) UploadGeometry(*scene.Geometry) (scene.Handle, error) { return d.alloc("geometry"), nil }
func (d *Device) UploadTexture(*scene.Texture) (scene.Handle, error)   { return d.alloc("texture"), nil }
func (d *Device) UploadMaterial(*scene.Material) (scene.Handle, error) { return d.alloc("material"), nil }

// Live returns the number of allocations not yet released.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// LiveByKind returns live allocations grouped by resource kind.
func (d *Device) LiveByKind() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int)
	for _, k := range d.live {
		out[k]++
	}
	return out
}

// UploadAll uploads every geometry, material and texture reachable from root, plus the background.
func UploadAll(dev scene.Device, s *scene.Scene) error {
	if s.Background != nil {
		if err := s.Background.Upload(dev); err != nil {
			return err
		}
	}
	var err error
	s.Traverse(func(n *scene.Node) {
		if err != nil || n.Mesh == nil {
			return
		}
		if e := n.Mesh.Geometry.Upload(dev); e != nil {
			err = e
			return
		}
		for _, m := range n.Mesh.Materials {
			if e := m.Upload(dev); e != nil {
				err = e
				return
			}
			for _, t := range m.Maps {
				if t == nil {
					continue
				}
				if e := t.Upload(dev); e != nil {
					err = e
					return
				}
			}
		}
	})
	return err
}

// Texture returns a small opaque texture.
func Texture(name string) *scene.Texture {
	return &scene.Texture{Name: name, Image: image.NewRGBA(image.Rect(0, 0, 2, 2))}
}

// Quad returns a mesh node holding a square of the given half size, centered at the origin and
// lying in the XZ plane (normal +Y), using a material named material.
func Quad(name, material string, half float32) *scene.Node {
	g := &scene.Geometry{
		Positions: []mgl32.Vec3{
			{-half, 0, -half}, {half, 0, -half}, {half, 0, half}, {-half, 0, half},
		},
		Indices: []uint32{0, 2, 1, 0, 3, 2},
	}
	return scene.NewMeshNode(name, &scene.Mesh{
		Geometry:  g,
		Materials: []*scene.Material{scene.NewMaterial(material)},
	})
}

// Box returns a mesh node holding an axis-aligned box with the given half extents, centered at
// center, using a material named material.
func Box(name, material string, center, half mgl32.Vec3) *scene.Node {
	x, y, z := half[0], half[1], half[2]
	p := []mgl32.Vec3{
		{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z},
		{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z},
	}
	idx := []uint32{
		0, 2, 1, 0, 3, 2, // back
		4, 5, 6, 4, 6, 7, // front
		0, 1, 5, 0, 5, 4, // bottom
		3, 6, 2, 3, 7, 6, // top
		0, 4, 7, 0, 7, 3, // left
		1, 2, 6, 1, 6, 5, // right
	}
	n := scene.NewMeshNode(name, &scene.Mesh{
		Geometry:  &scene.Geometry{Positions: p, Indices: idx},
		Materials: []*scene.Material{scene.NewMaterial(material)},
	})
	n.Position = center
	return n
}

// Model returns a group named name holding one quad per material name.
func Model(name string, meshes ...string) *scene.Node {
	root := scene.NewGroup(name)
	for i, m := range meshes {
		q := Quad(fmt.Sprintf("%s_%d", name, i), m, 0.5)
		q.Position = mgl32.Vec3{float32(i) * 2, 0, 0}
		root.Add(q)
	}
	return root
}
