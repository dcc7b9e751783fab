package ui

import (
	"image/color"
	"strconv"
	"strings"

	"walkthrough/internal/scene"
)

const (
	defaultFontSize = 20
	defaultPadding  = 4
)

// Rule binds one ".class" or "#id" selector to raw property values.
type Rule struct {
	Selector string
	Props    map[string]string
}

// Stylesheet is an ordered rule list; a later rule overrides an earlier one.
type Stylesheet struct {
	Rules []Rule
}

// ComputedStyle is a node's style after all matching rules are merged. LeftPct and TopPct place
// the box at a percentage of the free screen space and are -1 when Left and Top (pixels) apply.
// Padding insets text from the box corner.
type ComputedStyle struct {
	Background color.RGBA
	Color      color.RGBA
	Border     color.RGBA
	HasBorder  bool
	Width      int32
	WidthPct   int32 // share of the screen width; 0 = not set
	Height     int32
	Left       int32
	Top        int32
	LeftPct    int32
	TopPct     int32
	Padding    int32
	FontSize   int32
}

// DefaultComputedStyle is white text on nothing, sized zero.
func DefaultComputedStyle() ComputedStyle {
	return ComputedStyle{
		Color:    color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Border:   color.RGBA{A: 255},
		LeftPct:  -1,
		TopPct:   -1,
		Padding:  defaultPadding,
		FontSize: defaultFontSize,
	}
}

// ParsePx reads "12px" or a bare "12" as pixels.
func ParsePx(s string) (int32, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

// ParsePct reads "N%" with N between 0 and 100.
func ParsePct(s string) (int32, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[len(s)-1] != '%' {
		return 0, false
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 || n > 100 {
		return 0, false
	}
	return int32(n), true
}

// ResolveProps turns merged rule properties into a ComputedStyle. Unknown properties and values
// that do not parse are ignored.
func ResolveProps(props map[string]string) ComputedStyle {
	out := DefaultComputedStyle()
	for k, v := range props {
		v = strings.TrimSpace(v)
		switch k {
		case "background", "background-color":
			if c, err := scene.ParseColor(v); err == nil {
				out.Background = c
			}
		case "color":
			if c, err := scene.ParseColor(v); err == nil {
				out.Color = c
			}
		case "border", "border-color":
			if c, err := scene.ParseColor(v); err == nil {
				out.Border = c
				out.HasBorder = true
			}
		case "width":
			if pct, ok := ParsePct(v); ok {
				out.WidthPct = pct
			} else if n, ok := ParsePx(v); ok {
				out.Width = n
			}
		case "height":
			if n, ok := ParsePx(v); ok {
				out.Height = n
			}
		case "left", "x":
			if pct, ok := ParsePct(v); ok {
				out.LeftPct = pct
			} else if n, ok := ParsePx(v); ok {
				out.Left = n
			}
		case "top", "y":
			if pct, ok := ParsePct(v); ok {
				out.TopPct = pct
			} else if n, ok := ParsePx(v); ok {
				out.Top = n
			}
		case "padding":
			if n, ok := ParsePx(v); ok && n >= 0 {
				out.Padding = n
			}
		case "font-size":
			if n, ok := ParsePx(v); ok && n > 0 {
				out.FontSize = n
			}
		}
	}
	return out
}
