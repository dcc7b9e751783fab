package scene

import (
	"fmt"
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"
)

// Handle is a GPU-side allocation owned by a resource. Release frees it; it is called at most once
// per handle because resources drop the handle after releasing it.
type Handle interface {
	Release()
}

// Device uploads CPU-side resources to the GPU. The raylib backend implements it; tests use a fake
// that counts live allocations.
type Device interface {
	UploadGeometry(g *Geometry) (Handle, error)
	UploadTexture(t *Texture) (Handle, error)
	UploadMaterial(m *Material) (Handle, error)
}

// gpuSlot holds the handle of one resource. The zero value is "not uploaded".
type gpuSlot struct {
	handle   Handle
	released bool
}

// Allocated reports whether the resource currently holds GPU memory.
func (s *gpuSlot) Allocated() bool {
	return s.handle != nil
}

// Released reports whether Release has freed a handle at least once.
func (s *gpuSlot) Released() bool {
	return s.released
}

// Release frees the GPU handle if present. Safe to call any number of times.
func (s *gpuSlot) Release() {
	if s.handle == nil {
		return
	}
	s.handle.Release()
	s.handle = nil
	s.released = true
}

// Handle returns the current GPU handle, or nil.
func (s *gpuSlot) Handle() Handle {
	return s.handle
}

func (s *gpuSlot) adopt(h Handle, err error) error {
	if err != nil {
		return err
	}
	s.handle = h
	return nil
}

// Geometry is an indexed triangle list. Indices may be empty, in which case every three positions
// form a triangle.
type Geometry struct {
	gpuSlot
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

// Upload allocates the geometry on dev unless it is already allocated.
func (g *Geometry) Upload(dev Device) error {
	if g.Allocated() {
		return nil
	}
	return g.adopt(dev.UploadGeometry(g))
}

// TriangleCount returns the number of triangles described by the geometry.
func (g *Geometry) TriangleCount() int {
	if len(g.Indices) > 0 {
		return len(g.Indices) / 3
	}
	return len(g.Positions) / 3
}

// Triangle returns the corners of triangle i in local space.
func (g *Geometry) Triangle(i int) (a, b, c mgl32.Vec3) {
	if len(g.Indices) > 0 {
		return g.Positions[g.Indices[i*3]], g.Positions[g.Indices[i*3+1]], g.Positions[g.Indices[i*3+2]]
	}
	return g.Positions[i*3], g.Positions[i*3+1], g.Positions[i*3+2]
}

// Mapping describes how a texture is sampled.
type Mapping int

const (
	MappingUV Mapping = iota
	// MappingEquirectangular samples a 2:1 panorama by view direction (scene backgrounds).
	MappingEquirectangular
)

// Texture is an RGBA image plus its GPU copy.
type Texture struct {
	gpuSlot
	Name    string
	Image   *image.RGBA
	Mapping Mapping
}

// Upload allocates the texture on dev unless it is already allocated.
func (t *Texture) Upload(dev Device) error {
	if t.Allocated() {
		return nil
	}
	return t.adopt(dev.UploadTexture(t))
}

// TextureSlot names the texture inputs of a material.
type TextureSlot int

const (
	SlotMap TextureSlot = iota
	SlotMetalness
	SlotNormal
	SlotRoughness
	SlotEmissive
	slotCount
)

// TextureSlots lists every slot in a fixed order.
func TextureSlots() []TextureSlot {
	out := make([]TextureSlot, slotCount)
	for i := range out {
		out[i] = TextureSlot(i)
	}
	return out
}

// Material is a PBR-style surface description. Textures are shared, not owned: cloning a material
// keeps pointing at the same textures.
type Material struct {
	gpuSlot
	Name        string
	Color       color.RGBA
	Metalness   float32
	Roughness   float32
	Transparent bool
	Maps        [slotCount]*Texture
}

// NewMaterial returns a white, fully rough, non-metallic material.
func NewMaterial(name string) *Material {
	return &Material{
		Name:      name,
		Color:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Roughness: 1,
	}
}

// Upload allocates the material on dev unless it is already allocated. Textures are uploaded
// separately by the renderer.
func (m *Material) Upload(dev Device) error {
	if m.Allocated() {
		return nil
	}
	return m.adopt(dev.UploadMaterial(m))
}

// Clone returns a copy of m that has its own GPU slot and shares m's textures.
func (m *Material) Clone() *Material {
	out := &Material{}
	if err := copier.Copy(out, m); err != nil {
		panic(fmt.Sprintf("scene: clone material %q: %v", m.Name, err))
	}
	out.gpuSlot = gpuSlot{}
	out.Maps = m.Maps
	return out
}

// Mesh binds one geometry to one or more materials (multi-material meshes draw the same geometry
// once per material, as loaded from the model).
type Mesh struct {
	Geometry      *Geometry
	Materials     []*Material
	CastShadow    bool
	ReceiveShadow bool
}

// Material returns the first material, or nil.
func (m *Mesh) Material() *Material {
	if len(m.Materials) == 0 {
		return nil
	}
	return m.Materials[0]
}
