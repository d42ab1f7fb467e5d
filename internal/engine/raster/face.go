package raster

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
	"github.com/Faultbox/voxelray/pkg/math"
)

// cubeFace describes one face of a unit cell: its corners in winding order
// (indices into voxelCorners), its outward normal, and the plane it lies on.
type cubeFace struct {
	corners [4]int
	normal  math.Vec3
	axis    int
	offset  float32
}

var cubeFaces = [6]cubeFace{
	{corners: [4]int{0, 1, 3, 2}, normal: math.Vec3{Z: 1}, axis: 2, offset: 1},
	{corners: [4]int{4, 5, 7, 6}, normal: math.Vec3{Z: -1}, axis: 2},
	{corners: [4]int{0, 1, 5, 4}, normal: math.Vec3{Y: -1}, axis: 1},
	{corners: [4]int{2, 3, 7, 6}, normal: math.Vec3{Y: 1}, axis: 1, offset: 1},
	{corners: [4]int{0, 2, 6, 4}, normal: math.Vec3{X: -1}, axis: 0},
	{corners: [4]int{1, 3, 7, 5}, normal: math.Vec3{X: 1}, axis: 0, offset: 1},
}

// Face projects each voxel's camera-facing faces and fills the pixels whose
// centres fall inside the projected quads.
type Face struct {
	opts  Options
	depth depthBuffer
}

// NewFace creates a face-rasterization strategy.
func NewFace(opts Options) *Face {
	return &Face{opts: opts}
}

// Name implements Strategy.
func (f *Face) Name() string { return NameFace }

// Render implements Strategy.
func (f *Face) Render(dst *framebuffer.Framebuffer, grid voxel.Grid, view camera.View, pal *palette.Palette) {
	view = fitView(view, dst)
	dst.Fill(f.opts.Background)
	f.depth.reset(dst.Width() * dst.Height())

	grid.Each(func(c voxel.Coord, p uint8) bool {
		f.drawVoxel(dst, view, c, pal.Color(p))
		return true
	})
}

func (f *Face) drawVoxel(dst *framebuffer.Framebuffer, view camera.View, c voxel.Coord, color uint16) {
	corners := voxelCorners(c)

	var screen [8]math.Vec2
	for i, corner := range corners {
		s, _, ok := view.Project(corner, nearPlane)
		if !ok {
			return
		}
		screen[i] = s
	}

	for _, face := range cubeFaces {
		// Any corner of the face lies on its plane.
		toFace := corners[face.corners[0]].Sub(view.Pos)
		if face.normal.Dot(toFace) >= 0 {
			continue
		}
		quad := [4]math.Vec2{
			screen[face.corners[0]],
			screen[face.corners[1]],
			screen[face.corners[2]],
			screen[face.corners[3]],
		}
		plane := float32(c.X)
		switch face.axis {
		case 1:
			plane = float32(c.Y)
		case 2:
			plane = float32(c.Z)
		}
		f.fillQuad(dst, view, quad, face.axis, plane+face.offset, color)
	}
}

// fillQuad scans the clamped bounding box of quad and writes every pixel
// whose centre is inside it and nearer than the stored depth. Depth is the
// ray parameter where the pixel ray meets the face plane.
func (f *Face) fillQuad(dst *framebuffer.Framebuffer, view camera.View, quad [4]math.Vec2, axis int, plane float32, color uint16) {
	w, h := dst.Width(), dst.Height()

	minX, maxX := quad[0].X, quad[0].X
	minY, maxY := quad[0].Y, quad[0].Y
	for _, q := range quad[1:] {
		minX, maxX = math32.Min(minX, q.X), math32.Max(maxX, q.X)
		minY, maxY = math32.Min(minY, q.Y), math32.Max(maxY, q.Y)
	}
	if maxX < 0 || maxY < 0 || minX >= float32(w) || minY >= float32(h) {
		return
	}
	x0 := clampInt(int(math32.Floor(minX)), 0, w-1)
	x1 := clampInt(int(math32.Ceil(maxX)), 0, w-1)
	y0 := clampInt(int(math32.Floor(minY)), 0, h-1)
	y1 := clampInt(int(math32.Ceil(maxY)), 0, h-1)

	origin := view.Pos.Axis(axis)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5
			if !insideQuad(quad, math.Vec2{X: px, Y: py}) {
				continue
			}
			d := view.PixelRay(px, py).Axis(axis)
			if d == 0 {
				continue
			}
			t := (plane - origin) / d
			if t < 0 || math32.IsInf(t, 0) {
				continue
			}
			if f.depth.closer(y*w+x, t) {
				dst.Set(x, y, color)
			}
		}
	}
}

// insideQuad reports whether p is inside the convex quad, edges included.
// The edge cross products must not disagree in sign; a degenerate quad
// contains nothing.
func insideQuad(quad [4]math.Vec2, p math.Vec2) bool {
	sign := 0
	for i := 0; i < 4; i++ {
		a, b := quad[i], quad[(i+1)%4]
		cross := b.Sub(a).Cross(p.Sub(a))
		switch {
		case cross > 0:
			if sign < 0 {
				return false
			}
			sign = 1
		case cross < 0:
			if sign > 0 {
				return false
			}
			sign = -1
		}
	}
	return sign != 0
}
