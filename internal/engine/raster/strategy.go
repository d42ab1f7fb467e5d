// Package raster turns a voxel grid and a camera view into an RGB565 image.
//
// Three strategies are provided: RayCast (slab test with quadrant partition
// and flood fill), RayMarch (fixed-step marching) and Face (projected cube
// faces with a point-in-quad fill). All of them fill the background first,
// treat palette index 0 as transparent and resolve occlusion with a per-pixel
// depth buffer, so the result does not depend on grid traversal order.
package raster

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
	"github.com/Faultbox/voxelray/pkg/math"
)

// Strategy names accepted by New.
const (
	NameRayCast  = "raycast"
	NameRayMarch = "raymarch"
	NameFace     = "face"
)

// DefaultMarchStep is the RayMarch sampling distance in voxel units.
const DefaultMarchStep = 0.25

// nearPlane is the camera-space depth below which a corner counts as behind
// the eye.
const nearPlane = 1e-3

// ErrUnknownStrategy is returned by New for an unrecognised name.
var ErrUnknownStrategy = errors.New("unknown raster strategy")

// Strategy renders one frame. Implementations keep scratch buffers between
// calls and are not safe for concurrent use.
type Strategy interface {
	Name() string
	Render(dst *framebuffer.Framebuffer, grid voxel.Grid, view camera.View, pal *palette.Palette)
}

// Options configures a strategy.
type Options struct {
	// Background is written to every pixel before any voxel is drawn.
	Background uint16
	// MarchStep is the RayMarch step length. Non-positive uses DefaultMarchStep.
	MarchStep float32
}

// New creates the strategy with the given name.
func New(name string, opts Options) (Strategy, error) {
	switch name {
	case NameRayCast, "":
		return NewRayCast(opts), nil
	case NameRayMarch:
		return NewRayMarch(opts), nil
	case NameFace:
		return NewFace(opts), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Names lists the available strategies.
func Names() []string {
	return []string{NameRayCast, NameRayMarch, NameFace}
}

// fitView rebuilds view for the destination raster when the sizes differ.
// Corner rays do not depend on resolution, only the per-pixel steps do.
func fitView(view camera.View, dst *framebuffer.Framebuffer) camera.View {
	if view.Width == dst.Width() && view.Height == dst.Height() {
		return view
	}
	fitted := camera.ViewFromCorners(view.Pos, view.Corners, dst.Width(), dst.Height())
	fitted.Look, fitted.Right, fitted.Up = view.Look, view.Right, view.Up
	if view.Focal != 0 {
		fitted.Focal, fitted.ClipX, fitted.ClipY = view.Focal, view.ClipX, view.ClipY
	}
	return fitted
}

// depthBuffer tracks the nearest hit per pixel.
type depthBuffer struct {
	t []float32
}

func (d *depthBuffer) reset(n int) {
	if cap(d.t) < n {
		d.t = make([]float32, n)
	}
	d.t = d.t[:n]
	for i := range d.t {
		d.t[i] = math32.MaxFloat32
	}
}

// closer records t at i when it beats the stored depth.
func (d *depthBuffer) closer(i int, t float32) bool {
	if math32.IsNaN(t) || t >= d.t[i] {
		return false
	}
	d.t[i] = t
	return true
}

// voxelCorners returns the 8 corners of cell (x, y, z). Corners 0-3 lie on
// the z+1 plane and 4-7 on the z plane; within each group the order is
// (x, y), (x+1, y), (x, y+1), (x+1, y+1).
func voxelCorners(c voxel.Coord) [8]math.Vec3 {
	x, y, z := float32(c.X), float32(c.Y), float32(c.Z)
	return [8]math.Vec3{
		{X: x, Y: y, Z: z + 1},
		{X: x + 1, Y: y, Z: z + 1},
		{X: x, Y: y + 1, Z: z + 1},
		{X: x + 1, Y: y + 1, Z: z + 1},
		{X: x, Y: y, Z: z},
		{X: x + 1, Y: y, Z: z},
		{X: x, Y: y + 1, Z: z},
		{X: x + 1, Y: y + 1, Z: z},
	}
}

// clampInt limits v to [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
