package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/chewxy/math32"
	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"walkthrough/internal/scene"
)

// LowTierWidth caps the panorama width when the renderer is slow.
const LowTierWidth = 2048

// decodePanorama decodes a background panorama. Radiance .hdr files are clamped to [0,1] and
// gamma encoded; other formats go through the registered image decoders (png, jpeg, webp, bmp).
func decodePanorama(data []byte, ref string, low bool) (*scene.Texture, error) {
	var (
		img image.Image
		err error
	)
	if strings.EqualFold(path.Ext(stripQuery(ref)), ".hdr") {
		img, err = rgbe.Decode(bytes.NewReader(data))
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, ref, err)
	}
	var rgba *image.RGBA
	if h, ok := img.(hdr.Image); ok {
		rgba = hdrToRGBA(h)
	} else {
		rgba = clone.AsRGBA(img)
	}
	if low {
		rgba = downscale(rgba, LowTierWidth)
	}
	return &scene.Texture{
		Name:    path.Base(stripQuery(ref)),
		Image:   rgba,
		Mapping: scene.MappingEquirectangular,
	}, nil
}

func hdrToRGBA(h hdr.Image) *image.RGBA {
	b := h.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := h.HDRAt(x, y).HDRRGBA()
			i := out.PixOffset(x-b.Min.X, y-b.Min.Y)
			out.Pix[i+0] = encodeGamma(r)
			out.Pix[i+1] = encodeGamma(g)
			out.Pix[i+2] = encodeGamma(bl)
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

func encodeGamma(v float64) uint8 {
	f := math32.Max(0, math32.Min(1, float32(v)))
	return uint8(math32.Pow(f, 1/2.2)*255 + 0.5)
}

// downscale resizes images wider than maxWidth down to maxWidth, keeping the aspect ratio.
func downscale(img *image.RGBA, maxWidth int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	return transform.Resize(img, maxWidth, h, transform.Linear)
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}
