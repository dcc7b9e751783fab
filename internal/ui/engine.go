package ui

import (
	_ "embed"
	"fmt"
	"image/color"
	"os"
	"strings"
)

//go:embed viewer.css
var defaultCSS string

// Canvas is the 2D surface the engine draws on. The graphics backend implements it with raylib.
type Canvas interface {
	Size() (width, height int32)
	FillRect(r Rect, c color.RGBA)
	StrokeRect(r Rect, c color.RGBA)
	Text(s string, x, y, size int32, c color.RGBA)
}

// Box is a node placed on screen with its resolved style.
type Box struct {
	Node  *Node
	Rect  Rect
	Style ComputedStyle
}

// Engine holds the current stylesheet and nodes, and draws them on a Canvas.
// Draw order is node order (first node drawn first, then on top the next).
// Resolved styles are cached and only recomputed when sheet or nodes change to avoid per-frame allocations.
type Engine struct {
	builtin      *Stylesheet
	sheet        *Stylesheet
	nodes        []*Node
	cachedStyles []ComputedStyle
	cacheValid   bool
	boxes        []Box
}

// New creates an engine with the built-in viewer stylesheet and no nodes.
func New() *Engine {
	sheet, err := ParseCSS(defaultCSS)
	if err != nil {
		panic(fmt.Sprintf("ui: built-in stylesheet: %v", err))
	}
	return &Engine{builtin: sheet, sheet: sheet}
}

func readCSS(path string) (*Stylesheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCSS(string(data))
}

func merge(sheets ...*Stylesheet) *Stylesheet {
	merged := &Stylesheet{}
	for _, s := range sheets {
		if s != nil {
			merged.Rules = append(merged.Rules, s.Rules...)
		}
	}
	return merged
}

// LoadCSS loads and parses a CSS file from path. Its rules are appended to the current
// stylesheet so they override the built-in ones.
func (e *Engine) LoadCSS(path string) error {
	sheet, err := readCSS(path)
	if err != nil {
		return err
	}
	e.SetStylesheet(merge(e.sheet, sheet))
	return nil
}

// ReloadCSS replaces everything loaded so far with the built-in rules followed by the file at path.
// On error the current stylesheet is kept.
func (e *Engine) ReloadCSS(path string) error {
	sheet, err := readCSS(path)
	if err != nil {
		return err
	}
	e.SetStylesheet(merge(e.builtin, sheet))
	return nil
}

// SetStylesheet sets the stylesheet directly.
func (e *Engine) SetStylesheet(sheet *Stylesheet) {
	e.sheet = sheet
	e.cacheValid = false
}

// Stylesheet returns the current stylesheet (may be nil).
func (e *Engine) Stylesheet() *Stylesheet {
	return e.sheet
}

// SetNodes replaces all nodes. Callers that rebuild the same list every frame should pass the
// same nodes in the same order so the style cache stays valid.
func (e *Engine) SetNodes(nodes []*Node) {
	if sameNodes(e.nodes, nodes) {
		return
	}
	e.nodes = append(e.nodes[:0], nodes...)
	e.cacheValid = false
}

func sameNodes(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// resolveProps returns merged properties for a node (class and id matched; last wins).
func (e *Engine) resolveProps(n *Node) map[string]string {
	merged := make(map[string]string)
	if e.sheet == nil {
		return merged
	}
	for _, rule := range e.sheet.Rules {
		sel := rule.Selector
		var matches bool
		switch sel[0] {
		case '.':
			matches = n.Class != "" && hasClass(n.Class, sel[1:])
		case '#':
			matches = n.ID == sel[1:]
		}
		if matches {
			for k, v := range rule.Props {
				merged[k] = v
			}
		}
	}
	return merged
}

func hasClass(classes, class string) bool {
	for _, c := range strings.Fields(classes) {
		if c == class {
			return true
		}
	}
	return false
}

// Layout resolves styles and places every visible node on a screen of the given size.
// Width and height come from the style; a node without a styled size keeps its own Bounds size.
// Bounds.X and Bounds.Y offset the styled position, including percentage positions.
func (e *Engine) Layout(screenW, screenH int32) []Box {
	if !e.cacheValid {
		e.cachedStyles = make([]ComputedStyle, len(e.nodes))
		for i, n := range e.nodes {
			e.cachedStyles[i] = ResolveProps(e.resolveProps(n))
		}
		e.cacheValid = true
	}
	e.boxes = e.boxes[:0]
	placed := make(map[*Node]Rect, len(e.nodes))
	for i, n := range e.nodes {
		if n.Hidden {
			continue
		}
		style := e.cachedStyles[i]
		w, h := int32(n.Bounds.Width), int32(n.Bounds.Height)
		if style.Width > 0 {
			w = style.Width
		}
		if style.WidthPct > 0 {
			w = screenW * style.WidthPct / 100
		}
		if style.Height > 0 {
			h = style.Height
		}
		x, y := style.Left+int32(n.Bounds.X), style.Top+int32(n.Bounds.Y)
		if r, ok := placed[n.Anchor]; ok && n.Anchor != nil {
			x += int32(r.X)
			y += int32(r.Y)
		}
		if style.LeftPct >= 0 {
			x = (screenW-w)*style.LeftPct/100 + int32(n.Bounds.X)
		}
		if style.TopPct >= 0 {
			y = (screenH-h)*style.TopPct/100 + int32(n.Bounds.Y)
		}
		if n.Fraction > 0 && n.Fraction < 1 {
			w = int32(float32(w) * n.Fraction)
		}
		r := Rect{X: float32(x), Y: float32(y), Width: float32(w), Height: float32(h)}
		placed[n] = r
		e.boxes = append(e.boxes, Box{Node: n, Rect: r, Style: style})
	}
	return e.boxes
}

// Draw lays out the nodes and draws background, border and text for each.
func (e *Engine) Draw(c Canvas) {
	w, h := c.Size()
	for _, b := range e.Layout(w, h) {
		if b.Style.Background.A > 0 && b.Rect.Width > 0 && b.Rect.Height > 0 {
			c.FillRect(b.Rect, b.Style.Background)
		}
		if b.Style.HasBorder && b.Rect.Width > 0 && b.Rect.Height > 0 {
			c.StrokeRect(b.Rect, b.Style.Border)
		}
		if b.Node.Text == "" {
			continue
		}
		pad := b.Style.Padding
		y := int32(b.Rect.Y) + pad
		for _, line := range strings.Split(b.Node.Text, "\n") {
			c.Text(line, int32(b.Rect.X)+pad, y, b.Style.FontSize, b.Style.Color)
			y += b.Style.FontSize + pad
		}
	}
}
