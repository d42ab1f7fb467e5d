// Package camera provides the first-person voxel camera and the per-frame
// view built from it.
package camera

import (
	"fmt"

	"github.com/Faultbox/voxelray/pkg/math"
)

// Direction selects a translation axis relative to the camera basis.
type Direction int

// Translation directions.
const (
	Up Direction = iota
	Down
	Right
	Left
	Forward
	Backward
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Right:
		return "right"
	case Left:
		return "left"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Camera is a position plus a right-handed orthonormal basis with
// Right = Look x Up.
type Camera struct {
	Pos   math.Vec3
	Look  math.Vec3
	Up    math.Vec3
	Right math.Vec3
}

// Default returns the startup camera: behind the grid's z=256 face looking
// down -Z with +Y up.
func Default() Camera {
	return New(math.Vec3{Z: 256}, math.Vec3{Z: -1}, math.Vec3{Y: 1})
}

// New returns a camera at pos facing look.
func New(pos, look, up math.Vec3) Camera {
	var c Camera
	c.SetOrientation(pos, look, up)
	return c
}

// SetOrientation places the camera and rebuilds its basis from look and up.
// An up vector parallel to look is replaced by a world axis.
func (c *Camera) SetOrientation(pos, look, up math.Vec3) {
	c.Pos = pos
	c.Look = look
	c.Look.Normalize()
	if c.Look == (math.Vec3{}) {
		c.Look = math.Vec3{Z: -1}
	}

	c.Right = c.Look.Cross(up)
	if c.Right.LengthSquared() < 1e-12 {
		up = math.Vec3{Y: 1}
		if c.Look.Cross(up).LengthSquared() < 1e-12 {
			up = math.Vec3{X: 1}
		}
		c.Right = c.Look.Cross(up)
	}
	c.Right.Normalize()

	c.Up = c.Right.Cross(c.Look)
	c.Up.Normalize()
}

// RotateHorizontal turns the view about the up axis.
func (c *Camera) RotateHorizontal(angle float32) {
	c.Look = math.RotateTransform(angle, c.Up).ApplyDirection(c.Look)
	c.Look.Normalize()
	c.Right = c.Look.Cross(c.Up)
	c.Right.Normalize()
}

// RotateVertical tilts the view about the right axis.
func (c *Camera) RotateVertical(angle float32) {
	c.Look = math.RotateTransform(angle, c.Right).ApplyDirection(c.Look)
	c.Look.Normalize()
	c.Up = c.Right.Cross(c.Look)
	c.Up.Normalize()
}

// Translate moves the camera by speed along dir.
func (c *Camera) Translate(dir Direction, speed float32) {
	c.Pos = c.Pos.Add(c.Axis(dir).Scale(speed))
}

// Axis returns the unit vector for dir.
func (c Camera) Axis(dir Direction) math.Vec3 {
	switch dir {
	case Up:
		return c.Up
	case Down:
		return c.Up.Neg()
	case Right:
		return c.Right
	case Left:
		return c.Right.Neg()
	case Forward:
		return c.Look
	case Backward:
		return c.Look.Neg()
	default:
		return math.Vec3{}
	}
}

// CornerRay returns the world-space ray direction through screen position
// (i, j) of a w x h raster.
func (c Camera) CornerRay(p *Projection, i, j, w, h float32) math.Vec3 {
	xf := 2*i/w - 1
	yf := 2*j/h - 1
	return c.Look.Scale(p.Focal).
		Add(c.Right.Scale(p.ClipX * xf)).
		Sub(c.Up.Scale(p.ClipY * yf))
}
