package voxel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/voxelray/pkg/math"
)

type gridFactory struct {
	name string
	make func(t *testing.T, side int) Grid
}

var factories = []gridFactory{
	{"dense", func(t *testing.T, side int) Grid {
		g, err := NewDense(side)
		require.NoError(t, err)
		return g
	}},
	{"sparse", func(t *testing.T, side int) Grid {
		g, err := NewSparse(side, SparseOptions{})
		require.NoError(t, err)
		return g
	}},
}

func forEachGrid(t *testing.T, fn func(t *testing.T, newGrid func(side int) Grid)) {
	for _, f := range factories {
		t.Run(f.name, func(t *testing.T) {
			fn(t, func(side int) Grid { return f.make(t, side) })
		})
	}
}

func TestIndex(t *testing.T) {
	if got := Index(Coord{1, 2, 3}, 8); got != 1+2*8+3*64 {
		t.Errorf("Index() = %d, want %d", got, 1+2*8+3*64)
	}
}

func TestNewInvalidSide(t *testing.T) {
	for _, side := range []int{0, -1, MaxSide + 1} {
		if _, err := NewDense(side); !errors.Is(err, ErrInvalidSide) {
			t.Errorf("NewDense(%d) error = %v, want ErrInvalidSide", side, err)
		}
		if _, err := NewSparse(side, SparseOptions{}); !errors.Is(err, ErrInvalidSide) {
			t.Errorf("NewSparse(%d) error = %v, want ErrInvalidSide", side, err)
		}
	}
}

func TestSetGet(t *testing.T) {
	forEachGrid(t, func(t *testing.T, newGrid func(int) Grid) {
		g := newGrid(16)
		require.NoError(t, g.Set(Coord{1, 2, 3}, 7))

		p, err := g.Get(Coord{1, 2, 3})
		require.NoError(t, err)
		assert.Equal(t, uint8(7), p)
		assert.Equal(t, uint8(7), g.At(1, 2, 3))
		assert.Equal(t, uint8(0), g.At(3, 2, 1))
		assert.Equal(t, uint8(0), g.At(-1, 0, 0))
		assert.Equal(t, uint8(0), g.At(16, 0, 0))
		assert.Equal(t, 1, g.Count())

		// overwrite keeps the count
		require.NoError(t, g.Set(Coord{1, 2, 3}, 9))
		assert.Equal(t, 1, g.Count())

		// erase
		require.NoError(t, g.Set(Coord{1, 2, 3}, 0))
		assert.Equal(t, 0, g.Count())
		assert.Equal(t, uint8(0), g.At(1, 2, 3))
	})
}

func TestSetOutOfBounds(t *testing.T) {
	forEachGrid(t, func(t *testing.T, newGrid func(int) Grid) {
		g := newGrid(8)
		for _, c := range []Coord{{8, 0, 0}, {0, 8, 0}, {0, 0, 8}, {-1, 0, 0}} {
			err := g.Set(c, 1)
			assert.ErrorIs(t, err, ErrOutOfBounds, "Set(%v)", c)
			_, err = g.Get(c)
			assert.ErrorIs(t, err, ErrOutOfBounds, "Get(%v)", c)
		}
		assert.Equal(t, 0, g.Count())
	})
}

func TestFillRangeCount(t *testing.T) {
	forEachGrid(t, func(t *testing.T, newGrid func(int) Grid) {
		g := newGrid(8)
		require.NoError(t, g.FillRange(Coord{0, 0, 0}, Coord{1, 1, 1}, 2))
		assert.Equal(t, 8, g.Count())
		for x := 0; x < 2; x++ {
			for y := 0; y < 2; y++ {
				for z := 0; z < 2; z++ {
					assert.Equal(t, uint8(2), g.At(x, y, z))
				}
			}
		}
		assert.Equal(t, uint8(0), g.At(2, 0, 0))
	})
}

func TestFillRangeOverlapNoDoubleCount(t *testing.T) {
	forEachGrid(t, func(t *testing.T, newGrid func(int) Grid) {
		g := newGrid(8)
		require.NoError(t, g.FillRange(Coord{0, 0, 0}, Coord{2, 2, 2}, 1))
		require.NoError(t, g.FillRange(Coord{1, 1, 1}, Coord{3, 3, 3}, 2))
		// 27 + 27 - 8 overlapping cells
		assert.Equal(t, 46, g.Count())
		assert.Equal(t, uint8(2), g.At(2, 2, 2))
		assert.Equal(t, uint8(1), g.At(0, 0, 0))

		// refilling the same box changes nothing
		require.NoError(t, g.FillRange(Coord{3, 3, 3}, Coord{1, 1, 1}, 2))
		assert.Equal(t, 46, g.Count())
	})
}

func TestFillRangeCornerOrder(t *testing.T) {
	boxes := [][2]Coord{
		{{0, 0, 0}, {3, 2, 1}},
		{{5, 1, 7}, {2, 6, 0}},
		{{4, 4, 4}, {4, 4, 4}},
		{{7, 0, 3}, {0, 7, 3}},
	}
	forEachGrid(t, func(t *testing.T, newGrid func(int) Grid) {
		for _, b := range boxes {
			a := newGrid(8)
			c := newGrid(8)
			require.NoError(t, a.FillRange(b[0], b[1], 3))
			require.NoError(t, c.FillRange(b[1], b[0], 3))
			// mixed orientation per axis
			d := newGrid(8)
			require.NoError(t, d.FillRange(Coord{b[0].X, b[1].Y, b[0].Z}, Coord{b[1].X, b[0].Y, b[1].Z}, 3))

			assert.Equal(t, a.Count(), c.Count())
			assert.Equal(t, a.Count(), d.Count())
			assert.ElementsMatch(t, cells(a), cells(c), "box %v", b)
			assert.ElementsMatch(t, cells(a), cells(d), "box %v", b)
		}
	})
}

func TestFillRangeOutOfBounds(t *testing.T) {
	forEachGrid(t, func(t *testing.T, newGrid func(int) Grid) {
		g := newGrid(4)
		err := g.FillRange(Coord{0, 0, 0}, Coord{4, 1, 1}, 1)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		assert.Equal(t, 0, g.Count(), "a rejected fill writes nothing")
	})
}

func TestClear(t *testing.T) {
	forEachGrid(t, func(t *testing.T, newGrid func(int) Grid) {
		g := newGrid(8)
		require.NoError(t, g.FillRange(Coord{0, 0, 0}, Coord{3, 3, 3}, 1))
		g.Clear()
		assert.Equal(t, 0, g.Count())
		assert.Equal(t, uint8(0), g.At(1, 1, 1))
		assert.Empty(t, cells(g))
	})
}

func TestEachStopsEarly(t *testing.T) {
	forEachGrid(t, func(t *testing.T, newGrid func(int) Grid) {
		g := newGrid(8)
		require.NoError(t, g.FillRange(Coord{0, 0, 0}, Coord{3, 0, 0}, 1))
		seen := 0
		g.Each(func(Coord, uint8) bool {
			seen++
			return seen < 2
		})
		assert.Equal(t, 2, seen)
	})
}

func TestDenseEachOrder(t *testing.T) {
	g, err := NewDense(4)
	require.NoError(t, err)
	require.NoError(t, g.Set(Coord{0, 0, 1}, 1))
	require.NoError(t, g.Set(Coord{0, 1, 0}, 1))
	require.NoError(t, g.Set(Coord{1, 0, 0}, 1))

	var order []Coord
	g.Each(func(c Coord, _ uint8) bool {
		order = append(order, c)
		return true
	})
	assert.Equal(t, []Coord{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, order)
	assert.Equal(t, uint8(1), g.Bytes()[Index(Coord{0, 1, 0}, 4)])
}

func TestSparseGrowthDoubles(t *testing.T) {
	g, err := NewSparse(32, SparseOptions{InitialCapacity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, g.Capacity())

	for i := 0; i < 5; i++ {
		require.NoError(t, g.Set(Coord{i, 0, 0}, 1))
	}
	assert.Equal(t, 8, g.Capacity())
	assert.Equal(t, 5, g.Count())

	g.Clear()
	assert.Equal(t, 0, g.Capacity(), "clear releases storage")
}

func TestSparseGrowthFromEmpty(t *testing.T) {
	g, err := NewSparse(32, SparseOptions{})
	require.NoError(t, err)
	require.Equal(t, 0, g.Capacity())

	require.NoError(t, g.Set(Coord{1, 2, 3}, 1))
	assert.Equal(t, minSparseCapacity, g.Capacity())

	for i := 0; i <= minSparseCapacity; i++ {
		require.NoError(t, g.Set(Coord{i, 0, 0}, 1))
	}
	assert.Equal(t, 2*minSparseCapacity, g.Capacity())
}

func TestSparseMaxRecords(t *testing.T) {
	g, err := NewSparse(8, SparseOptions{MaxRecords: 4})
	require.NoError(t, err)

	err = g.FillRange(Coord{0, 0, 0}, Coord{7, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Equal(t, 4, g.Count())

	// overwriting existing cells needs no room
	require.NoError(t, g.Set(Coord{0, 0, 0}, 5))
}

func TestSparseEraseKeepsIndexConsistent(t *testing.T) {
	g, err := NewSparse(8, SparseOptions{})
	require.NoError(t, err)
	require.NoError(t, g.Set(Coord{1, 0, 0}, 1))
	require.NoError(t, g.Set(Coord{2, 0, 0}, 2))
	require.NoError(t, g.Set(Coord{3, 0, 0}, 3))

	require.NoError(t, g.Set(Coord{1, 0, 0}, 0))
	assert.Equal(t, 2, g.Count())
	assert.Equal(t, uint8(3), g.At(3, 0, 0))
	require.NoError(t, g.Set(Coord{3, 0, 0}, 4))
	assert.Equal(t, uint8(4), g.At(3, 0, 0))
	assert.Equal(t, 2, g.Count())
}

func TestRecordsAndLoad(t *testing.T) {
	forEachGrid(t, func(t *testing.T, newGrid func(int) Grid) {
		g := newGrid(8)
		require.NoError(t, g.FillRange(Coord{1, 1, 1}, Coord{2, 2, 1}, 6))
		recs := Records(g)
		assert.Len(t, recs, 4)

		other := newGrid(8)
		require.NoError(t, Load(other, recs))
		assert.ElementsMatch(t, cells(g), cells(other))
	})
}

func TestVoxelizeSingleTriangle(t *testing.T) {
	g, err := NewDense(32)
	require.NoError(t, err)

	tri := Triangle{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	n, err := Voxelize(g, []Triangle{tri}, VoxelizeOptions{Size: 8, Center: Coord{16, 16, 16}, Palette: 3})
	require.NoError(t, err)
	assert.Greater(t, n, 0)
	assert.Equal(t, n, g.Count())

	// the right-angle corner maps to the grid origin of the model box
	assert.Equal(t, uint8(3), g.At(12, 12, 12))
	// the far corner of the hypotenuse is empty
	assert.Equal(t, uint8(0), g.At(19, 19, 12))
}

func TestVoxelizeEmpty(t *testing.T) {
	g, _ := NewDense(8)
	_, err := Voxelize(g, nil, VoxelizeOptions{})
	assert.ErrorIs(t, err, ErrEmptyMesh)
}

func TestTriangleIntersectsBox(t *testing.T) {
	tri := Triangle{{X: 0, Y: 0, Z: 0.5}, {X: 2, Y: 0, Z: 0.5}, {X: 0, Y: 2, Z: 0.5}}
	one := math.Vec3{X: 1, Y: 1, Z: 1}

	assert.True(t, TriangleIntersectsBox(tri, math.Vec3{}, one))
	assert.False(t, TriangleIntersectsBox(tri, math.Vec3{Z: 1}, math.Vec3{Z: 1}.Add(one)), "box above the plane")
	assert.False(t, TriangleIntersectsBox(tri, math.Vec3{X: 1.5, Y: 1.5}, math.Vec3{X: 2.5, Y: 2.5, Z: 1}), "box past the hypotenuse")
}

func cells(g Grid) []Record {
	return Records(g)
}
