package formats

import (
	"errors"
	"fmt"
	"os"
)

// Raw grid errors.
var (
	ErrTruncatedGrid = errors.New("truncated raw grid")
	ErrInvalidSide   = errors.New("invalid raw grid side")
)

// MaxRawSide is the largest side a raw dump may describe.
const MaxRawSide = 256

// RawVoxel is one non-empty cell of a raw dump.
type RawVoxel struct {
	X, Y, Z int
	Value   uint8
}

// RawGrid is a decoded raw dump: one byte per cell, N^3 bytes, with x
// varying fastest, then z, then y.
type RawGrid struct {
	Side   int
	Voxels []RawVoxel
}

// RawAddress returns the byte offset of cell (x, y, z) in a dump of side n.
func RawAddress(x, y, z, n int) int {
	return x + z*n + y*n*n
}

// ParseRawGrid decodes a raw dump of the given side. Trailing bytes beyond
// side^3 are ignored.
func ParseRawGrid(data []byte, side int) (*RawGrid, error) {
	if side <= 0 || side > MaxRawSide {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	need := side * side * side
	if len(data) < need {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrTruncatedGrid, need, len(data))
	}

	g := &RawGrid{Side: side}
	for y := 0; y < side; y++ {
		for z := 0; z < side; z++ {
			row := data[RawAddress(0, y, z, side):]
			for x := 0; x < side; x++ {
				if v := row[x]; v != 0 {
					g.Voxels = append(g.Voxels, RawVoxel{X: x, Y: y, Z: z, Value: v})
				}
			}
		}
	}
	return g, nil
}

// InferRawSide returns the side of a dump from its length, or 0 when the
// length is not a cube.
func InferRawSide(n int) int {
	for s := 1; s <= MaxRawSide; s++ {
		switch c := s * s * s; {
		case c == n:
			return s
		case c > n:
			return 0
		}
	}
	return 0
}

// LoadRawGrid reads and decodes a raw dump. A side of 0 is inferred from
// the file length.
func LoadRawGrid(path string, side int) (*RawGrid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading raw grid: %w", err)
	}
	if side == 0 {
		if side = InferRawSide(len(data)); side == 0 {
			return nil, fmt.Errorf("%w: %d bytes is not a cube", ErrInvalidSide, len(data))
		}
	}
	return ParseRawGrid(data, side)
}

// EncodeRawGrid serialises voxels into a dump of the given side. Voxels
// outside the cube are rejected.
func EncodeRawGrid(voxels []RawVoxel, side int) ([]byte, error) {
	if side <= 0 || side > MaxRawSide {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	out := make([]byte, side*side*side)
	for _, v := range voxels {
		if v.X < 0 || v.Y < 0 || v.Z < 0 || v.X >= side || v.Y >= side || v.Z >= side {
			return nil, fmt.Errorf("voxel (%d,%d,%d) outside side %d", v.X, v.Y, v.Z, side)
		}
		out[RawAddress(v.X, v.Y, v.Z, side)] = v.Value
	}
	return out, nil
}
