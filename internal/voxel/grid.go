// Package voxel stores the cubic voxel grid the renderers draw from.
//
// A grid holds one palette index per cell. Index 0 means empty. Cells are
// addressed by integer coordinates in [0, Side) on every axis and laid out
// linearly as x + y*Side + z*Side*Side.
package voxel

import (
	"errors"
	"fmt"
)

// MaxSide is the largest supported grid edge. Records store coordinates in a
// byte, matching the coprocessor's voxel buffer format.
const MaxSide = 256

// Grid errors.
var (
	ErrOutOfBounds = errors.New("voxel coordinate out of bounds")
	ErrCapacity    = errors.New("voxel storage capacity exhausted")
	ErrInvalidSide = errors.New("invalid grid side length")
)

// Coord is a cell position.
type Coord struct {
	X, Y, Z int
}

// String returns "(x,y,z)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Record is one non-empty voxel in upload form.
type Record struct {
	X, Y, Z uint8
	Palette uint8
}

// Coord returns the record position.
func (r Record) Coord() Coord {
	return Coord{int(r.X), int(r.Y), int(r.Z)}
}

// Grid is the voxel store shared by the dense and sparse variants.
type Grid interface {
	// Side returns the edge length.
	Side() int
	// Get returns the palette index at c.
	Get(c Coord) (uint8, error)
	// At is the unchecked lookup used by renderers. Cells outside the grid
	// read as empty.
	At(x, y, z int) uint8
	// Set stores palette p at c. Setting 0 erases the cell.
	Set(c Coord, p uint8) error
	// FillRange sets every cell in the inclusive box spanned by c0 and c1.
	// Corners may be given in any order on each axis.
	FillRange(c0, c1 Coord, p uint8) error
	// Clear empties the grid.
	Clear()
	// Count returns the number of non-empty cells.
	Count() int
	// Each calls fn for every non-empty cell until fn returns false.
	Each(fn func(c Coord, p uint8) bool)
}

// Index returns the linear address of c in a grid of the given side.
func Index(c Coord, side int) int {
	return c.X + c.Y*side + c.Z*side*side
}

// InBounds reports whether c lies inside a grid of the given side.
func InBounds(c Coord, side int) bool {
	return c.X >= 0 && c.Y >= 0 && c.Z >= 0 && c.X < side && c.Y < side && c.Z < side
}

func checkSide(side int) error {
	if side <= 0 || side > MaxSide {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidSide, side, MaxSide)
	}
	return nil
}

func outOfBounds(c Coord, side int) error {
	return fmt.Errorf("%w: %s with side %d", ErrOutOfBounds, c, side)
}

// normalizeRange orders the corners per axis and validates both.
func normalizeRange(c0, c1 Coord, side int) (lo, hi Coord, err error) {
	if !InBounds(c0, side) {
		return lo, hi, outOfBounds(c0, side)
	}
	if !InBounds(c1, side) {
		return lo, hi, outOfBounds(c1, side)
	}
	lo = Coord{min(c0.X, c1.X), min(c0.Y, c1.Y), min(c0.Z, c1.Z)}
	hi = Coord{max(c0.X, c1.X), max(c0.Y, c1.Y), max(c0.Z, c1.Z)}
	return lo, hi, nil
}

// Records collects every non-empty cell of g.
func Records(g Grid) []Record {
	if s, ok := g.(*Sparse); ok {
		return s.Records()
	}
	out := make([]Record, 0, g.Count())
	g.Each(func(c Coord, p uint8) bool {
		out = append(out, Record{uint8(c.X), uint8(c.Y), uint8(c.Z), p})
		return true
	})
	return out
}

// Load writes records into g.
func Load(g Grid, records []Record) error {
	for _, r := range records {
		if err := g.Set(r.Coord(), r.Palette); err != nil {
			return err
		}
	}
	return nil
}
