package voxel

import (
	"errors"

	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelray/pkg/math"
)

// ErrEmptyMesh is returned when there is nothing to voxelize.
var ErrEmptyMesh = errors.New("mesh has no triangles")

// Triangle is three vertices in model space.
type Triangle [3]math.Vec3

// VoxelizeOptions places a mesh in the grid.
type VoxelizeOptions struct {
	// Size is the number of cells spanned by the longest model axis.
	Size int
	// Center is the grid cell the model's bounding box is centred on.
	Center Coord
	// Palette is written into every intersected cell. Zero means white.
	Palette uint8
}

// Voxelize marks every cell whose box intersects a triangle of the mesh.
// Cells that land outside the grid are skipped. Returns the number of cells
// written.
func Voxelize(g Grid, tris []Triangle, opts VoxelizeOptions) (int, error) {
	if len(tris) == 0 {
		return 0, ErrEmptyMesh
	}
	n := opts.Size
	if n <= 0 {
		n = g.Side()
	}
	p := opts.Palette
	if p == 0 {
		p = 1
	}

	lo, hi := tris[0][0], tris[0][0]
	for _, t := range tris {
		for _, v := range t {
			lo = math.Vec3{X: math32.Min(lo.X, v.X), Y: math32.Min(lo.Y, v.Y), Z: math32.Min(lo.Z, v.Z)}
			hi = math.Vec3{X: math32.Max(hi.X, v.X), Y: math32.Max(hi.Y, v.Y), Z: math32.Max(hi.Z, v.Z)}
		}
	}
	extent := hi.Sub(lo)
	cell := extent.MaxComponent() / float32(n)
	if cell <= 0 {
		cell = 1
	}
	base := Coord{opts.Center.X - n/2, opts.Center.Y - n/2, opts.Center.Z - n/2}

	written := 0
	for _, t := range tris {
		tlo := math.Vec3{
			X: math32.Min(t[0].X, math32.Min(t[1].X, t[2].X)),
			Y: math32.Min(t[0].Y, math32.Min(t[1].Y, t[2].Y)),
			Z: math32.Min(t[0].Z, math32.Min(t[1].Z, t[2].Z)),
		}
		thi := math.Vec3{
			X: math32.Max(t[0].X, math32.Max(t[1].X, t[2].X)),
			Y: math32.Max(t[0].Y, math32.Max(t[1].Y, t[2].Y)),
			Z: math32.Max(t[0].Z, math32.Max(t[1].Z, t[2].Z)),
		}
		c0 := cellOf(tlo, lo, cell, n)
		c1 := cellOf(thi, lo, cell, n)

		for z := c0.Z; z <= c1.Z; z++ {
			for y := c0.Y; y <= c1.Y; y++ {
				for x := c0.X; x <= c1.X; x++ {
					bmin := lo.Add(math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}.Scale(cell))
					bmax := bmin.Add(math.Vec3{X: cell, Y: cell, Z: cell})
					if !TriangleIntersectsBox(t, bmin, bmax) {
						continue
					}
					dst := Coord{base.X + x, base.Y + y, base.Z + z}
					if !InBounds(dst, g.Side()) {
						continue
					}
					if cur, _ := g.Get(dst); cur == p {
						continue
					}
					if err := g.Set(dst, p); err != nil {
						return written, err
					}
					written++
				}
			}
		}
	}
	return written, nil
}

func cellOf(v, origin math.Vec3, cell float32, n int) Coord {
	rel := v.Sub(origin).Scale(1 / cell)
	clamp := func(f float32) int {
		i := int(f)
		return max(0, min(n-1, i))
	}
	return Coord{clamp(rel.X), clamp(rel.Y), clamp(rel.Z)}
}

var boxAxes = [3]math.Vec3{{X: 1}, {Y: 1}, {Z: 1}}

// TriangleIntersectsBox runs the separating axis test between a triangle and
// an axis-aligned box: the three box normals, the triangle normal and the
// nine edge/axis cross products.
func TriangleIntersectsBox(t Triangle, bmin, bmax math.Vec3) bool {
	edges := [3]math.Vec3{t[1].Sub(t[0]), t[2].Sub(t[1]), t[0].Sub(t[2])}

	var axes [13]math.Vec3
	copy(axes[:3], boxAxes[:])
	axes[3] = edges[0].Cross(t[2].Sub(t[0]))
	k := 4
	for _, e := range edges {
		for _, a := range boxAxes {
			axes[k] = e.Cross(a)
			k++
		}
	}

	for _, axis := range axes {
		l := axis.Length()
		if l < 1e-6 {
			continue
		}
		axis = axis.Scale(1 / l)

		tmin, tmax := axis.Dot(t[0]), axis.Dot(t[0])
		for _, v := range t[1:] {
			d := axis.Dot(v)
			tmin = math32.Min(tmin, d)
			tmax = math32.Max(tmax, d)
		}

		var bLo, bHi float32
		for i := 0; i < 3; i++ {
			a := axis.Axis(i)
			if a > 0 {
				bLo += bmin.Axis(i) * a
				bHi += bmax.Axis(i) * a
			} else {
				bLo += bmax.Axis(i) * a
				bHi += bmin.Axis(i) * a
			}
		}
		if tmax < bLo || bHi < tmin {
			return false
		}
	}
	return true
}
