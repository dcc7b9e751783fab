// Package movement drives the first-person camera: planar walking with capsule collision and
// pointer look.
package movement

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"walkthrough/internal/collider"
	"walkthrough/internal/scene"
)

const (
	// MouseSpeed is the look rotation in radians per pointer pixel.
	MouseSpeed = 0.002
	// MoveSpeed is the walking speed in meters per second.
	MoveSpeed = 4
	// PlayerHeight is the distance from the capsule start (feet) to its end (eyes).
	PlayerHeight = 1.8
	// CapsuleRadius is the player's collision radius.
	CapsuleRadius = 0.2

	// minDepth ignores penetrations below numerical noise.
	minDepth = 1e-4
)

// Input is the movement state sampled for one frame.
type Input struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
	// Joystick is an analog stick: X strafes right, Y walks forward. Added on top of the keys.
	Joystick mgl32.Vec2
}

// Collider is the static geometry the player collides with.
type Collider interface {
	SweepCapsule(c collider.Capsule) (collider.Collision, bool)
}

// Controller owns the player capsule and the camera pose derived from it.
type Controller struct {
	cam     *scene.Camera
	capsule collider.Capsule

	// Speed overrides MoveSpeed when positive.
	Speed float32
	// MinPitch and MaxPitch bound the look pitch in radians.
	MinPitch float32
	MaxPitch float32
	// FlattenFloor zeroes the vertical part of push-out normals so floors never block sliding.
	FlattenFloor bool
}

// New returns a controller standing at the origin with the default camera.
func New() *Controller {
	c := &Controller{
		cam:      scene.NewCamera(),
		MinPitch: -math32.Pi / 2,
		MaxPitch: math32.Pi / 2,
	}
	c.Reset(mgl32.Vec3{}, mgl32.Vec3{})
	return c
}

// Camera returns the controlled camera. It implements the render package's camera provider.
func (c *Controller) Camera() *scene.Camera {
	return c.cam
}

// Capsule returns the current player capsule.
func (c *Controller) Capsule() collider.Capsule {
	return c.capsule
}

// Direction returns the unit planar walking direction for in, or the zero vector.
func (c *Controller) Direction(in Input) mgl32.Vec3 {
	forward := c.cam.PlanarForward()
	right := c.cam.PlanarRight()
	var v mgl32.Vec3
	if in.Forward {
		v = v.Add(forward)
	}
	if in.Backward {
		v = v.Sub(forward)
	}
	if in.Right {
		v = v.Add(right)
	}
	if in.Left {
		v = v.Sub(right)
	}
	v = v.Add(forward.Mul(in.Joystick[1])).Add(right.Mul(in.Joystick[0]))
	v[1] = 0
	l := v.Len()
	if l < 1e-6 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}

// Update moves the player for dt seconds. col may be nil while nothing is loaded. It reports
// whether the pose changed; a zero displacement neither queries col nor writes the camera.
func (c *Controller) Update(dt float32, in Input, col Collider) bool {
	speed := c.Speed
	if speed <= 0 {
		speed = MoveSpeed
	}
	step := c.Direction(in).Mul(speed * dt)
	if step.Len() == 0 {
		return false
	}

	c.capsule.Translate(step)
	if col != nil {
		if hit, ok := col.SweepCapsule(c.capsule); ok && hit.Depth >= minDepth {
			n := hit.Normal
			if c.FlattenFloor {
				n = flatten(n)
			}
			c.capsule.Translate(n.Mul(hit.Depth))
		}
	}
	c.cam.Position = c.capsule.End
	return true
}

// flatten drops the vertical part of n and renormalizes. A vertical n yields the zero vector.
func flatten(n mgl32.Vec3) mgl32.Vec3 {
	n[1] = 0
	l := n.Len()
	if l < 1e-6 {
		return mgl32.Vec3{}
	}
	return n.Mul(1 / l)
}

// Look turns the camera by a pointer delta in pixels. Orientation is rebuilt from the clamped
// yaw and pitch.
func (c *Controller) Look(dx, dy float32) {
	c.cam.Yaw -= dx * MouseSpeed
	c.cam.Pitch = c.clampPitch(c.cam.Pitch - dy*MouseSpeed)
}

func (c *Controller) clampPitch(p float32) float32 {
	return math32.Max(c.MinPitch, math32.Min(c.MaxPitch, p))
}

// Reset places the capsule at pos, standing PlayerHeight tall, and points the camera along rot
// (X pitch, Y yaw, Z roll).
func (c *Controller) Reset(pos, rot mgl32.Vec3) {
	c.capsule = collider.Capsule{
		Start:  pos,
		End:    pos.Add(mgl32.Vec3{0, PlayerHeight, 0}),
		Radius: CapsuleRadius,
	}
	c.cam.Position = c.capsule.End
	c.cam.Yaw = rot[1]
	c.cam.Pitch = c.clampPitch(rot[0])
	c.cam.Roll = rot[2]
}
