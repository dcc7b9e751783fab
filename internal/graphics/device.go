package graphics

import (
	"errors"
	"fmt"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"walkthrough/internal/scene"
)

// Device uploads scene resources through raylib and counts what is alive. It must only be used
// on the window thread after the window exists.
type Device struct {
	live    map[string]int
	uploads int
}

// NewDevice returns a device with no allocations.
func NewDevice() *Device {
	return &Device{live: make(map[string]int)}
}

// LiveByKind returns live allocations grouped by resource kind.
func (d *Device) LiveByKind() map[string]int {
	out := make(map[string]int, len(d.live))
	for k, n := range d.live {
		if n > 0 {
			out[k] = n
		}
	}
	return out
}

// Uploads is the number of successful uploads since the device was created.
func (d *Device) Uploads() int {
	return d.uploads
}

func (d *Device) track(kind string) {
	d.live[kind]++
	d.uploads++
}

type meshHandle struct {
	dev  *Device
	mesh rl.Mesh
	done bool
}

func (h *meshHandle) Release() {
	if h.done {
		return
	}
	h.done = true
	rl.UnloadMesh(&h.mesh)
	h.dev.live["geometry"]--
}

type textureHandle struct {
	dev  *Device
	tex  rl.Texture2D
	done bool
}

func (h *textureHandle) Release() {
	if h.done {
		return
	}
	h.done = true
	rl.UnloadTexture(h.tex)
	h.dev.live["texture"]--
}

// materialHandle has no raylib object of its own: materials are drawn through the renderer's
// shared lit materials, so the handle only keeps the count honest.
type materialHandle struct {
	dev  *Device
	done bool
}

func (h *materialHandle) Release() {
	if h.done {
		return
	}
	h.done = true
	h.dev.live["material"]--
}

// UploadGeometry uploads g as an unindexed mesh (raylib indices are 16 bit).
func (d *Device) UploadGeometry(g *scene.Geometry) (scene.Handle, error) {
	pos, nrm, uv := g.Unindexed()
	if len(pos) == 0 {
		return nil, errors.New("graphics: empty geometry")
	}
	mesh := rl.Mesh{
		VertexCount:   int32(len(pos) / 3),
		TriangleCount: int32(len(pos) / 9),
		Vertices:      &pos[0],
		Normals:       &nrm[0],
		Texcoords:     &uv[0],
	}
	rl.UploadMesh(&mesh, false)
	// The GPU has its copy; drop the Go buffers so nothing hands them to C again.
	mesh.Vertices, mesh.Normals, mesh.Texcoords = nil, nil, nil
	if mesh.VboID == nil {
		return nil, fmt.Errorf("graphics: mesh upload failed (%d vertices)", mesh.VertexCount)
	}
	d.track("geometry")
	return &meshHandle{dev: d, mesh: mesh}, nil
}

// UploadTexture uploads the RGBA pixels of t. Panoramas are clamped so the seam does not bleed.
func (d *Device) UploadTexture(t *scene.Texture) (scene.Handle, error) {
	if t.Image == nil {
		return nil, fmt.Errorf("graphics: texture %q has no image", t.Name)
	}
	b := t.Image.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("graphics: texture %q is empty", t.Name)
	}
	img := rl.GenImageColor(w, h, rl.Blank)
	tex := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	if !rl.IsTextureValid(tex) {
		return nil, fmt.Errorf("graphics: texture %q upload failed", t.Name)
	}

	pixels := make([]color.RGBA, 0, w*h)
	for y := 0; y < h; y++ {
		row := t.Image.Pix[y*t.Image.Stride : y*t.Image.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			pixels = append(pixels, color.RGBA{R: row[x], G: row[x+1], B: row[x+2], A: row[x+3]})
		}
	}
	rl.UpdateTexture(tex, pixels)
	rl.SetTextureFilter(tex, rl.FilterBilinear)
	if t.Mapping == scene.MappingEquirectangular {
		rl.SetTextureWrap(tex, rl.WrapClamp)
	} else {
		rl.SetTextureWrap(tex, rl.WrapRepeat)
	}
	d.track("texture")
	return &textureHandle{dev: d, tex: tex}, nil
}

// UploadMaterial registers m. Its textures are uploaded separately.
func (d *Device) UploadMaterial(*scene.Material) (scene.Handle, error) {
	d.track("material")
	return &materialHandle{dev: d}, nil
}

// texture returns the raylib texture behind t, if uploaded through this device.
func texture(t *scene.Texture) (rl.Texture2D, bool) {
	if t == nil {
		return rl.Texture2D{}, false
	}
	h, ok := t.Handle().(*textureHandle)
	if !ok || h.done {
		return rl.Texture2D{}, false
	}
	return h.tex, true
}

func mesh(g *scene.Geometry) (rl.Mesh, bool) {
	if g == nil {
		return rl.Mesh{}, false
	}
	h, ok := g.Handle().(*meshHandle)
	if !ok || h.done {
		return rl.Mesh{}, false
	}
	return h.mesh, true
}
