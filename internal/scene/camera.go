package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera whose orientation is rebuilt from absolute yaw/pitch/roll
// (applied yaw, then pitch, then roll). The camera looks down -Z when all angles are zero.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	Roll     float32
	// Fovy is the vertical field of view in degrees.
	Fovy float32
	Near float32
	Far  float32
}

// NewCamera returns a camera with the viewer's default lens (45°, 0.1–100).
func NewCamera() *Camera {
	return &Camera{Fovy: 45, Near: 0.1, Far: 100}
}

// Orientation returns the camera rotation as a quaternion.
func (c *Camera) Orientation() mgl32.Quat {
	yaw := mgl32.QuatRotate(c.Yaw, mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(c.Pitch, mgl32.Vec3{1, 0, 0})
	roll := mgl32.QuatRotate(c.Roll, mgl32.Vec3{0, 0, 1})
	return yaw.Mul(pitch).Mul(roll)
}

// Forward returns the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.Orientation().Rotate(mgl32.Vec3{0, 0, -1})
}

// Up returns the unit up direction of the camera.
func (c *Camera) Up() mgl32.Vec3 {
	return c.Orientation().Rotate(mgl32.Vec3{0, 1, 0})
}

// PlanarForward returns the view direction projected on the horizontal plane, normalized.
// Looking up or down does not change it.
func (c *Camera) PlanarForward() mgl32.Vec3 {
	return mgl32.Vec3{-math32.Sin(c.Yaw), 0, -math32.Cos(c.Yaw)}
}

// PlanarRight returns the horizontal right vector (PlanarForward x world up).
func (c *Camera) PlanarRight() mgl32.Vec3 {
	return mgl32.Vec3{math32.Cos(c.Yaw), 0, -math32.Sin(c.Yaw)}
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	target := c.Position.Add(c.Forward())
	return mgl32.LookAtV(c.Position, target, c.Up())
}

// Projection returns the perspective projection for the given aspect ratio (width / height).
func (c *Camera) Projection(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.Fovy), aspect, c.Near, c.Far)
}
