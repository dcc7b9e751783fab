package debug

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"

	"walkthrough/internal/ui"
)

// updateInterval: only refresh FPS/Mem text every N frames to reduce allocations.
const updateInterval = 30

// Debug holds runtime debugging overlays (FPS and heap size). All overlays are off by default.
// It renders through a ui node styled by the .debug class.
type Debug struct {
	ShowFPS      bool
	ShowMemAlloc bool

	node         *ui.Node
	frameCount   uint32
	lastFpsText  string
	lastMemText  string
	lastMemStats runtime.MemStats
	readMem      func(*runtime.MemStats)
}

// New returns a Debug system with all overlays hidden.
func New() *Debug {
	return &Debug{
		node:    ui.NewNode("label", "debug", "", ""),
		readMem: runtime.ReadMemStats,
	}
}

// SetShowFPS sets whether the FPS counter is shown.
func (d *Debug) SetShowFPS(show bool) {
	d.ShowFPS = show
}

// SetShowMemAlloc sets whether the memory allocation counter is shown (under FPS).
func (d *Debug) SetShowMemAlloc(show bool) {
	d.ShowMemAlloc = show
}

// Update refreshes the overlay text with the frame rate measured by the window loop.
// Text is only recomputed every updateInterval frames, or right after an overlay is switched on.
func (d *Debug) Update(fps int32) {
	d.frameCount++
	update := d.frameCount%updateInterval == 0
	if d.ShowFPS && d.lastFpsText == "" {
		update = true
	}
	if d.ShowMemAlloc && d.lastMemText == "" {
		update = true
	}
	if update {
		if d.ShowFPS {
			d.lastFpsText = fmt.Sprintf("FPS: %d", fps)
		}
		if d.ShowMemAlloc {
			d.readMem(&d.lastMemStats)
			d.lastMemText = "Mem: " + humanize.IBytes(d.lastMemStats.Alloc)
		}
	}

	var lines []string
	if d.ShowFPS && d.lastFpsText != "" {
		lines = append(lines, d.lastFpsText)
	}
	if d.ShowMemAlloc && d.lastMemText != "" {
		lines = append(lines, d.lastMemText)
	}
	d.node.Text = strings.Join(lines, "\n")
	d.node.Hidden = len(lines) == 0
}

// Text is the overlay text as of the last Update.
func (d *Debug) Text() string {
	return d.node.Text
}

// Node is the overlay's ui node; it is hidden while every overlay is off.
func (d *Debug) Node() *ui.Node {
	return d.node
}
