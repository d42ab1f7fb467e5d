package raster

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/engine/picking"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
)

type point struct{ x, y int }

type partition struct{ x0, y0, x1, y1 int }

// RayCast draws each voxel by searching its projected rectangle for one pixel
// whose ray hits the cell, then flood-filling the connected hit region.
type RayCast struct {
	opts Options

	depth   depthBuffer
	visited []uint32
	gen     uint32
	stack   []point
	queue   []partition
}

// NewRayCast creates a ray-casting strategy.
func NewRayCast(opts Options) *RayCast {
	return &RayCast{opts: opts}
}

// Name implements Strategy.
func (r *RayCast) Name() string { return NameRayCast }

// Render implements Strategy.
func (r *RayCast) Render(dst *framebuffer.Framebuffer, grid voxel.Grid, view camera.View, pal *palette.Palette) {
	view = fitView(view, dst)
	w, h := dst.Width(), dst.Height()

	dst.Fill(r.opts.Background)
	r.depth.reset(w * h)
	if len(r.visited) != w*h {
		r.visited = make([]uint32, w*h)
		r.gen = 0
	}

	grid.Each(func(c voxel.Coord, p uint8) bool {
		rect, ok := r.bounds(view, c, w, h)
		if !ok {
			return true
		}
		if seed, hit := r.search(view, c, rect); hit {
			r.fill(dst, view, c, pal.Color(p), seed)
		}
		return true
	})
}

// bounds returns the screen rectangle covered by the projected cell. A cell
// straddling the eye plane covers the whole screen; one entirely behind it
// is skipped.
func (r *RayCast) bounds(view camera.View, c voxel.Coord, w, h int) (partition, bool) {
	full := partition{0, 0, w - 1, h - 1}

	var minX, minY float32 = math32.MaxFloat32, math32.MaxFloat32
	var maxX, maxY float32 = -math32.MaxFloat32, -math32.MaxFloat32
	behind := 0
	for _, corner := range voxelCorners(c) {
		s, _, ok := view.Project(corner, nearPlane)
		if !ok {
			behind++
			continue
		}
		minX, maxX = math32.Min(minX, s.X), math32.Max(maxX, s.X)
		minY, maxY = math32.Min(minY, s.Y), math32.Max(maxY, s.Y)
	}
	switch behind {
	case 8:
		return partition{}, false
	case 0:
	default:
		return full, true
	}

	if maxX < 0 || maxY < 0 || minX >= float32(w) || minY >= float32(h) {
		return partition{}, false
	}
	return partition{
		x0: clampInt(int(math32.Floor(minX)), 0, w-1),
		y0: clampInt(int(math32.Floor(minY)), 0, h-1),
		x1: clampInt(int(math32.Ceil(maxX)), 0, w-1),
		y1: clampInt(int(math32.Ceil(maxY)), 0, h-1),
	}, true
}

// search tests partition centres breadth-first, splitting each miss into
// quadrants, and returns the first pixel whose ray hits the cell.
func (r *RayCast) search(view camera.View, c voxel.Coord, rect partition) (point, bool) {
	q := append(r.queue[:0], rect)
	defer func() { r.queue = q[:0] }()

	for head := 0; head < len(q); head++ {
		part := q[head]
		if part.x0 > part.x1 || part.y0 > part.y1 {
			continue
		}
		mx := (part.x0 + part.x1) / 2
		my := (part.y0 + part.y1) / 2
		if _, hit := pixelRay(view, mx, my).IntersectVoxel(c.X, c.Y, c.Z); hit {
			return point{mx, my}, true
		}
		if part.x0 == part.x1 && part.y0 == part.y1 {
			continue
		}
		q = append(q,
			partition{part.x0, part.y0, mx, my},
			partition{mx + 1, part.y0, part.x1, my},
			partition{part.x0, my + 1, mx, part.y1},
			partition{mx + 1, my + 1, part.x1, part.y1},
		)
	}
	return point{}, false
}

// fill walks the 4-connected region of pixels whose rays hit the cell,
// writing those nearer than what is already there.
func (r *RayCast) fill(dst *framebuffer.Framebuffer, view camera.View, c voxel.Coord, color uint16, seed point) {
	w, h := dst.Width(), dst.Height()
	r.gen++
	if r.gen == 0 {
		for i := range r.visited {
			r.visited[i] = 0
		}
		r.gen = 1
	}

	stack := append(r.stack[:0], seed)
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.x < 0 || p.y < 0 || p.x >= w || p.y >= h {
			continue
		}
		i := p.y*w + p.x
		if r.visited[i] == r.gen {
			continue
		}
		r.visited[i] = r.gen

		t, hit := pixelRay(view, p.x, p.y).IntersectVoxel(c.X, c.Y, c.Z)
		if !hit {
			continue
		}
		if r.depth.closer(i, t) {
			dst.Set(p.x, p.y, color)
		}
		stack = append(stack,
			point{p.x + 1, p.y},
			point{p.x - 1, p.y},
			point{p.x, p.y + 1},
			point{p.x, p.y - 1},
		)
	}
	r.stack = stack[:0]
}

// pixelRay is the eye ray through the centre of pixel (x, y).
func pixelRay(view camera.View, x, y int) picking.Ray {
	return picking.NewRay(view.Pos, view.PixelRay(float32(x)+0.5, float32(y)+0.5))
}
