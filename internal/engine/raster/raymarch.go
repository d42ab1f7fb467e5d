package raster

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/engine/picking"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
	"github.com/Faultbox/voxelray/pkg/math"
)

// RayMarch samples each pixel's ray at a fixed step inside the grid bounds
// and takes the first non-empty cell.
//
// Fixed steps can skip cells the ray only clips at a corner, so thin or
// grazing geometry may show holes that RayCast would fill.
type RayMarch struct {
	opts Options
}

// NewRayMarch creates a ray-marching strategy.
func NewRayMarch(opts Options) *RayMarch {
	if opts.MarchStep <= 0 {
		opts.MarchStep = DefaultMarchStep
	}
	return &RayMarch{opts: opts}
}

// Name implements Strategy.
func (r *RayMarch) Name() string { return NameRayMarch }

// Render implements Strategy.
func (r *RayMarch) Render(dst *framebuffer.Framebuffer, grid voxel.Grid, view camera.View, pal *palette.Palette) {
	view = fitView(view, dst)
	dst.Fill(r.opts.Background)
	if grid.Count() == 0 {
		return
	}

	side := float32(grid.Side())
	bounds := picking.AABB{Max: math.Vec3{X: side, Y: side, Z: side}}
	step := r.opts.MarchStep
	// No path through the grid is longer than its diagonal.
	span := side * 2

	for y := 0; y < dst.Height(); y++ {
		for x := 0; x < dst.Width(); x++ {
			dir := view.PixelRay(float32(x)+0.5, float32(y)+0.5)
			if dir.LengthSquared() == 0 || !dir.IsFinite() {
				continue
			}
			ray := picking.NewRay(view.Pos, dir.Normalized())
			t0, t1, hit := ray.Clip(bounds)
			if !hit {
				continue
			}
			t1 = math32.Min(t1, t0+span)
			if p := march(grid, ray, t0, t1, step); p != 0 {
				dst.Set(x, y, pal.Color(p))
			}
		}
	}
}

// march returns the palette index of the first occupied cell sampled between
// t0 and t1, or 0.
func march(grid voxel.Grid, ray picking.Ray, t0, t1, step float32) uint8 {
	// Sample half a step in so the entry face does not round into the
	// neighbouring cell.
	for t := t0 + step/2; t <= t1; t += step {
		p := ray.At(t)
		xi := int(math32.Floor(p.X))
		yi := int(math32.Floor(p.Y))
		zi := int(math32.Floor(p.Z))
		if v := grid.At(xi, yi, zi); v != 0 {
			return v
		}
	}
	return 0
}
