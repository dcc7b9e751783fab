package ui

import (
	"fmt"
	"image/color"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"walkthrough/internal/listing"
)

// Inspector is a right-side panel that shows the listing's general information, or the
// material options of a selected object. It receives selections through Inspect, which makes
// it a listing.Inspector, and stays visible until Close.
type Inspector struct {
	printer *message.Printer

	panel *Node
	title *Node
	body  *Node

	listing *listing.Listing
	object  *listing.InteractiveObject
	visible bool
}

// NewInspector creates an Inspector whose prices and sizes are formatted for tag.
// Its nodes are styled by the engine's CSS (.inspector, .inspector-title, .inspector-body).
func NewInspector(tag language.Tag) *Inspector {
	in := &Inspector{
		printer: message.NewPrinter(tag),
		panel:   NewNode("panel", "inspector", "", ""),
		title:   NewNode("label", "inspector-title", "", ""),
		body:    NewNode("label", "inspector-body", "", ""),
	}
	in.title.Anchor = in.panel
	in.body.Anchor = in.panel
	return in
}

// Inspect shows obj, or the listing's general information when obj is nil.
func (in *Inspector) Inspect(l *listing.Listing, obj *listing.InteractiveObject) {
	in.listing = l
	in.object = obj
	in.visible = l != nil
	in.Refresh()
}

// Close hides the panel and forgets the selection.
func (in *Inspector) Close() {
	in.listing = nil
	in.object = nil
	in.visible = false
}

// Visible reports whether the panel is shown.
func (in *Inspector) Visible() bool {
	return in.visible
}

// Selected returns the listing and object on display. The object is nil for general information.
func (in *Inspector) Selected() (*listing.Listing, *listing.InteractiveObject) {
	return in.listing, in.object
}

// Title is the panel heading.
func (in *Inspector) Title() string {
	return in.title.Text
}

// Lines are the body lines of the panel.
func (in *Inspector) Lines() []string {
	if in.body.Text == "" {
		return nil
	}
	return strings.Split(in.body.Text, "\n")
}

// Refresh rebuilds the text from the current selection, e.g. after a material change.
func (in *Inspector) Refresh() {
	if in.listing == nil {
		in.title.Text, in.body.Text = "", ""
		return
	}
	var lines []string
	if in.object == nil {
		info := in.listing.Info()
		in.title.Text = info.Name
		if info.Price > 0 {
			lines = append(lines, in.printer.Sprintf("$%d", int64(info.Price)))
		}
		if info.Rooms > 0 {
			lines = append(lines, in.printer.Sprintf("%d rooms", info.Rooms))
		}
		if info.Size > 0 {
			lines = append(lines, in.printer.Sprintf("%.0f m²", info.Size))
		}
		if info.Description != "" {
			lines = append(lines, "", info.Description)
		}
	} else {
		n := in.object.Node
		in.title.Text = strings.ReplaceAll(n.Name, "_", " ")
		if n.Mesh != nil {
			if m := n.Mesh.Material(); m != nil {
				lines = append(lines, "Current: "+m.Name)
			}
		}
		for i, opt := range in.object.Options {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, opt.Material.Name))
			if len(opt.Tints) > 0 {
				tints := make([]string, len(opt.Tints))
				for j, c := range opt.Tints {
					tints[j] = fmt.Sprintf("%d %s", j+1, hexColor(c))
				}
				lines = append(lines, "   tints: "+strings.Join(tints, ", "))
			}
		}
	}
	in.body.Text = strings.Join(lines, "\n")
}

// AppendNodes appends the panel's nodes to dst when it is visible.
func (in *Inspector) AppendNodes(dst []*Node) []*Node {
	if !in.visible {
		return dst
	}
	return append(dst, in.panel, in.title, in.body)
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
