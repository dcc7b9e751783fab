package graphics

import (
	"fmt"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"walkthrough/internal/ui"
)

// fontBaseSize is the glyph size fonts are rasterized at; smaller text is scaled down.
const fontBaseSize = 64

// Canvas draws ui boxes on the raylib screen. Without a loaded font it uses raylib's default font.
type Canvas struct {
	font    rl.Font
	hasFont bool
}

// NewCanvas returns a canvas using the default font.
func NewCanvas() *Canvas {
	return &Canvas{}
}

// LoadFont replaces the text font. Must be called after the window exists.
func (c *Canvas) LoadFont(path string) error {
	f := rl.LoadFontEx(path, fontBaseSize, nil)
	if !rl.IsFontValid(f) {
		return fmt.Errorf("graphics: load font %s", path)
	}
	rl.SetTextureFilter(f.Texture, rl.FilterBilinear)
	c.Unload()
	c.font, c.hasFont = f, true
	return nil
}

// Unload releases the loaded font, if any.
func (c *Canvas) Unload() {
	if c.hasFont {
		rl.UnloadFont(c.font)
		c.hasFont = false
	}
}

func (c *Canvas) Size() (w, h int32) {
	return int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
}

func (c *Canvas) FillRect(r ui.Rect, col color.RGBA) {
	rl.DrawRectangleRec(rl.NewRectangle(r.X, r.Y, r.Width, r.Height), col)
}

func (c *Canvas) StrokeRect(r ui.Rect, col color.RGBA) {
	rl.DrawRectangleLinesEx(rl.NewRectangle(r.X, r.Y, r.Width, r.Height), 1, col)
}

func (c *Canvas) Text(s string, x, y, size int32, col color.RGBA) {
	if !c.hasFont {
		rl.DrawText(s, x, y, size, col)
		return
	}
	rl.DrawTextEx(c.font, s, rl.NewVector2(float32(x), float32(y)), float32(size), 1, col)
}
