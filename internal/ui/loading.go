package ui

import "fmt"

// LoadingBar is the progress overlay shown while a listing's assets arrive.
type LoadingBar struct {
	frame *Node
	fill  *Node
	label *Node
	err   *Node
}

// NewLoadingBar returns a hidden loading bar.
func NewLoadingBar() *LoadingBar {
	b := &LoadingBar{
		frame: NewNode("panel", "loading", "", ""),
		fill:  NewNode("panel", "loading-fill", "", ""),
		label: NewNode("label", "loading-label", "", ""),
		err:   NewNode("label", "error", "", ""),
	}
	b.fill.Anchor = b.frame
	b.label.Anchor = b.frame
	b.Update("", false, 0, nil)
	return b
}

// Update sets the bar for the given state. loading shows the bar at progress (0..1); a non-nil
// failure replaces it with the error message.
func (b *LoadingBar) Update(name string, loading bool, progress float64, failure error) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	b.frame.Hidden = !loading
	b.fill.Hidden = !loading || progress == 0
	b.label.Hidden = !loading
	b.fill.Fraction = float32(progress)
	b.label.Text = fmt.Sprintf("Loading %s  %d%%", name, int(progress*100))
	b.err.Hidden = failure == nil
	if failure != nil {
		b.err.Text = "Could not load " + name + ": " + failure.Error()
	}
}

// Nodes returns the bar's nodes in draw order.
func (b *LoadingBar) Nodes() []*Node {
	return []*Node{b.frame, b.fill, b.label, b.err}
}
