package camera

import (
	"sync"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/voxelray/pkg/math"
)

const eps = 5e-3

func assertVec(t *testing.T, want, got math.Vec3, msgAndArgs ...interface{}) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, eps, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, eps, msgAndArgs...)
}

func assertOrthonormal(t *testing.T, c Camera) {
	t.Helper()
	assert.InDelta(t, 1, c.Look.Length(), 0.01)
	assert.InDelta(t, 1, c.Up.Length(), 0.01)
	assert.InDelta(t, 1, c.Right.Length(), 0.01)
	assert.InDelta(t, 0, c.Look.Dot(c.Up), eps)
	assert.InDelta(t, 0, c.Look.Dot(c.Right), eps)
	assert.InDelta(t, 0, c.Up.Dot(c.Right), eps)
	assertVec(t, c.Look.Cross(c.Up), c.Right, "right = look x up")
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, math.Vec3{Z: 256}, c.Pos)
	assertVec(t, math.Vec3{Z: -1}, c.Look)
	assertVec(t, math.Vec3{Y: 1}, c.Up)
	assertVec(t, math.Vec3{X: 1}, c.Right)
}

func TestSetOrientationNormalizes(t *testing.T) {
	c := New(math.Vec3{}, math.Vec3{X: 3, Z: -4}, math.Vec3{Y: 7})
	assertOrthonormal(t, c)
	assertVec(t, math.Vec3{X: 0.6, Z: -0.8}, c.Look)
}

func TestSetOrientationDegenerateUp(t *testing.T) {
	c := New(math.Vec3{}, math.Vec3{Y: 1}, math.Vec3{Y: 2})
	assertOrthonormal(t, c)
	assert.True(t, c.Right.IsFinite())
}

func TestRotationsKeepBasis(t *testing.T) {
	c := Default()
	for i := 0; i < 200; i++ {
		c.RotateHorizontal(0.37)
		c.RotateVertical(-0.21)
	}
	assertOrthonormal(t, c)
}

func TestRotateHorizontalQuarterTurn(t *testing.T) {
	c := Default()
	c.RotateHorizontal(math32.Pi / 2)
	// positive angle turns counter-clockwise seen from above
	assertVec(t, math.Vec3{X: -1}, c.Look)
	assertVec(t, math.Vec3{Y: 1}, c.Up)
	assertVec(t, math.Vec3{Z: -1}, c.Right)
}

func TestRotateVerticalQuarterTurn(t *testing.T) {
	c := Default()
	c.RotateVertical(math32.Pi / 2)
	// tilting about +X lifts the view to +Y
	assertVec(t, math.Vec3{Y: 1}, c.Look)
	assertVec(t, math.Vec3{Z: 1}, c.Up)
	assertVec(t, math.Vec3{X: 1}, c.Right)
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		dir  Direction
		want math.Vec3
	}{
		{Forward, math.Vec3{Z: 254}},
		{Backward, math.Vec3{Z: 258}},
		{Right, math.Vec3{X: 2, Z: 256}},
		{Left, math.Vec3{X: -2, Z: 256}},
		{Up, math.Vec3{Y: 2, Z: 256}},
		{Down, math.Vec3{Y: -2, Z: 256}},
	}
	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			c := Default()
			c.Translate(tt.dir, 2)
			assertVec(t, tt.want, c.Pos)
		})
	}
}

func TestProjectionSet(t *testing.T) {
	p := NewProjection(90, 1, 4.0/3.0)
	assert.InDelta(t, 1, p.ClipX, 1e-5)
	assert.InDelta(t, 0.75, p.ClipY, 1e-5)

	p.Set(90, 2)
	assert.InDelta(t, 2, p.ClipX, 1e-5)
	assert.InDelta(t, 1.5, p.ClipY, 1e-5)

	p.Set(60, 1)
	assert.InDelta(t, math32.Tan(math32.Pi/6), p.ClipX, 1e-5)
	assert.Equal(t, float32(60), p.FOV())

	assert.Equal(t, DefaultAspect, NewProjection(60, 1, 0).Aspect)
}

func TestCornerRay(t *testing.T) {
	c := Default()
	p := NewProjection(90, 1, 4.0/3.0)

	center := c.CornerRay(p, 160, 120, 320, 240)
	assertVec(t, math.Vec3{Z: -1}, center)

	tl := c.CornerRay(p, 0, 0, 320, 240)
	assertVec(t, math.Vec3{X: -1, Y: 0.75, Z: -1}, tl)

	br := c.CornerRay(p, 320, 240, 320, 240)
	assertVec(t, math.Vec3{X: 1, Y: -0.75, Z: -1}, br)
}

func TestPixelRayMatchesCornerRay(t *testing.T) {
	c := New(math.Vec3{X: 10, Y: 20, Z: 30}, math.Vec3{X: 0.3, Y: -0.2, Z: -1}, math.Vec3{Y: 1})
	c.RotateHorizontal(0.4)
	p := NewProjection(75, 1.5, 4.0/3.0)
	v := NewView(c, p, 320, 240)

	for _, pt := range [][2]float32{{0, 0}, {320, 0}, {0, 240}, {320, 240}, {17.5, 203.5}, {160, 120}} {
		assertVec(t, c.CornerRay(p, pt[0], pt[1], 320, 240), v.PixelRay(pt[0], pt[1]), "pixel %v", pt)
	}
	assertVec(t, v.Corners[BottomRight], v.PixelRay(320, 240))
}

func TestViewFromCornersRecoversBasis(t *testing.T) {
	c := New(math.Vec3{X: 5}, math.Vec3{X: 1, Z: -1}, math.Vec3{Y: 1})
	p := NewProjection(60, 2, 4.0/3.0)
	v := NewView(c, p, 320, 240)

	got := ViewFromCorners(v.Pos, v.Corners, 320, 240)
	assertVec(t, v.Look, got.Look)
	assertVec(t, v.Right, got.Right)
	assertVec(t, v.Up, got.Up)
	assert.InDelta(t, v.Focal, got.Focal, eps)
	assert.InDelta(t, v.ClipX, got.ClipX, eps)
	assert.InDelta(t, v.ClipY, got.ClipY, eps)
}

func TestProjectInvertsPixelRay(t *testing.T) {
	v := NewView(Default(), NewProjection(90, 1, 4.0/3.0), 320, 240)
	for _, pt := range [][2]float32{{10, 10}, {160, 120}, {300, 200}} {
		world := v.Pos.Add(v.PixelRay(pt[0], pt[1]).Scale(37))
		s, depth, ok := v.Project(world, 0.01)
		assert.True(t, ok)
		assert.InDelta(t, pt[0], s.X, 0.5)
		assert.InDelta(t, pt[1], s.Y, 0.5)
		assert.InDelta(t, 37, depth, 0.5)
	}

	_, _, ok := v.Project(v.Pos.Add(math.Vec3{Z: 5}), 0.01)
	assert.False(t, ok, "points behind the camera do not project")
}

func TestSharedSnapshots(t *testing.T) {
	s := NewShared(Default())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Update(func(c *Camera) {
				c.Translate(Forward, 1)
				c.RotateHorizontal(0.01)
			})
		}
	}()
	for i := 0; i < 1000; i++ {
		c := s.Load()
		assert.InDelta(t, 1, c.Look.Length(), 0.01)
	}
	wg.Wait()

	c := s.Load()
	assert.NotEqual(t, Default().Pos, c.Pos)
}
