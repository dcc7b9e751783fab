package scene

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor parses #RGB, #RRGGBB or #RRGGBBAA (the "#" is optional) into an RGBA color.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	alpha := uint8(255)
	if len(hex) == 8 {
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("scene: invalid color %q", s)
		}
		alpha, hex = uint8(a), hex[:6]
	}
	if len(hex) != 3 && len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("scene: invalid color %q", s)
	}
	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("scene: invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: alpha}, nil
}
