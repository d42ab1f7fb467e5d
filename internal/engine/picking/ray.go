// Package picking provides ray/box intersection for the voxel renderers.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelray/pkg/math"
)

// parallelEpsilon is the direction magnitude below which a ray is treated as
// parallel to a slab.
const parallelEpsilon = 1e-8

// Ray is a half-line Origin + t*Dir for t >= 0. Dir need not be unit length;
// t is measured in multiples of Dir.
type Ray struct {
	Origin math.Vec3
	Dir    math.Vec3

	inv      math.Vec3 // 1/Dir per axis, 0 when parallel
	parallel [3]bool
}

// NewRay precomputes the reciprocal direction used by the slab test.
func NewRay(origin, dir math.Vec3) Ray {
	r := Ray{Origin: origin, Dir: dir}
	for i := 0; i < 3; i++ {
		d := dir.Axis(i)
		if math32.Abs(d) < parallelEpsilon {
			r.parallel[i] = true
			continue
		}
		setAxis(&r.inv, i, 1/d)
	}
	return r
}

// At returns Origin + t*Dir.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Dir.Scale(t))
}

// AABB is an axis-aligned box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// NewAABB creates a box from two corners given in any order.
func NewAABB(a, b math.Vec3) AABB {
	return AABB{
		Min: math.Vec3{X: math32.Min(a.X, b.X), Y: math32.Min(a.Y, b.Y), Z: math32.Min(a.Z, b.Z)},
		Max: math.Vec3{X: math32.Max(a.X, b.X), Y: math32.Max(a.Y, b.Y), Z: math32.Max(a.Z, b.Z)},
	}
}

// VoxelBox returns the unit box of cell (x, y, z).
func VoxelBox(x, y, z int) AABB {
	lo := math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}
	return AABB{Min: lo, Max: lo.Add(math.Vec3{X: 1, Y: 1, Z: 1})}
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p math.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// IntersectAABB runs the slab test and returns the entry distance along the
// ray. A ray starting inside the box hits at t = 0.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin, _, ok := r.slabs(box)
	if !ok {
		return 0, false
	}
	return math32.Max(tmin, 0), true
}

// Clip returns the parameter range [t0, t1] where the ray is inside the box,
// clamped to t >= 0.
func (r Ray) Clip(box AABB) (t0, t1 float32, hit bool) {
	tmin, tmax, ok := r.slabs(box)
	if !ok {
		return 0, 0, false
	}
	return math32.Max(tmin, 0), tmax, true
}

func (r Ray) slabs(box AABB) (tmin, tmax float32, ok bool) {
	tmin = -math32.MaxFloat32
	tmax = math32.MaxFloat32

	for i := 0; i < 3; i++ {
		o := r.Origin.Axis(i)
		lo, hi := box.Min.Axis(i), box.Max.Axis(i)
		if r.parallel[i] {
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}
		inv := r.inv.Axis(i)
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, 0, false
	}
	return tmin, tmax, true
}

// IntersectVoxel tests the ray against the unit cell (x, y, z).
func (r Ray) IntersectVoxel(x, y, z int) (t float32, hit bool) {
	return r.IntersectAABB(VoxelBox(x, y, z))
}

func setAxis(v *math.Vec3, i int, f float32) {
	switch i {
	case 0:
		v.X = f
	case 1:
		v.Y = f
	default:
		v.Z = f
	}
}
