package movement

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"walkthrough/internal/collider"
	"walkthrough/internal/scene"
)

const (
	// ClickTime is the longest press that still counts as a click.
	ClickTime = 300 * time.Millisecond
	// ClickTravel is the farthest the pointer may move, in pixels, during a click.
	ClickTravel = 5
)

// Pointer tells clicks from look drags. Feed it press, move and release events in screen pixels.
type Pointer struct {
	down     bool
	dragging bool
	pressed  time.Time
	origin   mgl32.Vec2
	last     mgl32.Vec2
}

// Press starts a gesture at pos.
func (p *Pointer) Press(pos mgl32.Vec2, now time.Time) {
	p.down = true
	p.dragging = false
	p.pressed = now
	p.origin = pos
	p.last = pos
}

// Move records the pointer at pos and returns the delta since the last event while pressed.
// The delta is zero when the pointer is up: looking only happens while dragging.
func (p *Pointer) Move(pos mgl32.Vec2) mgl32.Vec2 {
	if !p.down {
		p.last = pos
		return mgl32.Vec2{}
	}
	d := pos.Sub(p.last)
	p.last = pos
	if pos.Sub(p.origin).Len() > ClickTravel {
		p.dragging = true
	}
	return d
}

// Release ends the gesture and reports whether it was a click.
func (p *Pointer) Release(pos mgl32.Vec2, now time.Time) bool {
	if !p.down {
		return false
	}
	p.Move(pos)
	p.down = false
	return !p.dragging && now.Sub(p.pressed) <= ClickTime
}

// Down reports whether a gesture is in progress.
func (p *Pointer) Down() bool {
	return p.down
}

// Dragging reports whether the current gesture has moved past the click threshold.
func (p *Pointer) Dragging() bool {
	return p.down && p.dragging
}

// NormalizeScreen maps pixel coordinates to [-1,1] on both axes with +1 at the top.
func NormalizeScreen(x, y, width, height float32) mgl32.Vec2 {
	if width <= 0 || height <= 0 {
		return mgl32.Vec2{}
	}
	return mgl32.Vec2{x/width*2 - 1, 1 - y/height*2}
}

// ScreenRay returns the world ray from the camera through the normalized screen point ndc.
func ScreenRay(cam *scene.Camera, ndc mgl32.Vec2, aspect float32) collider.Ray {
	inv := cam.Projection(aspect).Mul4(cam.ViewMatrix()).Inv()
	far := inv.Mul4x1(mgl32.Vec4{ndc[0], ndc[1], 1, 1})
	if far[3] == 0 {
		return collider.Ray{Origin: cam.Position, Dir: cam.Forward()}
	}
	dir := far.Vec3().Mul(1 / far[3]).Sub(cam.Position)
	if dir.Len() == 0 {
		return collider.Ray{Origin: cam.Position, Dir: cam.Forward()}
	}
	return collider.Ray{Origin: cam.Position, Dir: dir.Normalize()}
}
