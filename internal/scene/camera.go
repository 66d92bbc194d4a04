package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera looking at a target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	FOV         float32 // degrees
	AspectRatio float32
	NearPlane   float32
	FarPlane    float32

	view  mgl32.Mat4
	proj  mgl32.Mat4
	dirty bool
}

// NewCamera creates a new camera
func NewCamera(position, target mgl32.Vec3, fov, aspect, near, far float32) *Camera {
	return &Camera{
		Position:    position,
		Target:      target,
		Up:          mgl32.Vec3{0, 1, 0},
		FOV:         fov,
		AspectRatio: aspect,
		NearPlane:   near,
		FarPlane:    far,
		dirty:       true,
	}
}

// NewPortraitCamera frames the full figure standing on its platform.
func NewPortraitCamera(aspect float32) *Camera {
	return NewCamera(
		mgl32.Vec3{0, 1.15, 3.4},
		mgl32.Vec3{0, 1.0, 0},
		35, aspect, 0.1, 50,
	)
}

// ViewMatrix returns the view matrix
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	if c.dirty {
		c.update()
	}
	return c.view
}

// ProjectionMatrix returns the projection matrix
func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.dirty {
		c.update()
	}
	return c.proj
}

func (c *Camera) update() {
	c.view = mgl32.LookAtV(c.Position, c.Target, c.Up)
	c.proj = mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
	c.dirty = false
}

// SetAspectRatio updates aspect ratio
func (c *Camera) SetAspectRatio(aspect float32) {
	c.AspectRatio = aspect
	c.dirty = true
}

// Orbit rotates the camera around the target by degrees.
func (c *Camera) Orbit(deltaYaw, deltaPitch float32) {
	rel := c.Position.Sub(c.Target)
	dist := rel.Len()
	if dist == 0 {
		return
	}

	theta := math.Atan2(float64(rel.X()), float64(rel.Z())) + float64(mgl32.DegToRad(deltaYaw))
	phi := math.Acos(float64(rel.Y()/dist)) + float64(mgl32.DegToRad(deltaPitch))
	phi = math.Max(0.1, math.Min(math.Pi-0.1, phi))

	c.Position = c.Target.Add(mgl32.Vec3{
		float32(math.Sin(phi) * math.Sin(theta)),
		float32(math.Cos(phi)),
		float32(math.Sin(phi) * math.Cos(theta)),
	}.Mul(dist))
	c.dirty = true
}

// Zoom moves the camera toward the target, never closer than 0.5.
func (c *Camera) Zoom(delta float32) {
	rel := c.Target.Sub(c.Position)
	dist := rel.Len()
	if dist == 0 {
		return
	}
	next := dist - delta
	if next < 0.5 {
		next = 0.5
	}
	c.Position = c.Target.Sub(rel.Mul(next / dist))
	c.dirty = true
}
