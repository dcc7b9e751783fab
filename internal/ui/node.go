package ui

// Rect is a screen rectangle in pixels.
type Rect struct {
	X, Y, Width, Height float32
}

// Node is a single UI element: panel, label, etc. It has optional class and id for CSS matching,
// bounds (position and size), and optional text for labels. Text may span several lines.
type Node struct {
	Type   string // "panel", "label", etc.
	Class  string // e.g. "menu" for .menu
	ID     string // e.g. "main" for #main
	Bounds Rect
	Text   string
	// Hidden nodes keep their place in the list but are not drawn.
	Hidden bool
	// Anchor, when set and placed earlier in the same frame, is the origin for left/top pixel offsets.
	Anchor *Node
	// Fraction in (0, 1] scales the laid-out width; progress bars use it.
	Fraction float32
}

// NewNode creates a node with type and optional class, id, and text.
func NewNode(typ, class, id, text string) *Node {
	return &Node{
		Type:  typ,
		Class: class,
		ID:    id,
		Text:  text,
	}
}
