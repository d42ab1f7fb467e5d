package voxel

// Dense stores one byte per cell.
type Dense struct {
	side  int
	cells []uint8
	count int
}

// NewDense allocates an empty side³ grid.
func NewDense(side int) (*Dense, error) {
	if err := checkSide(side); err != nil {
		return nil, err
	}
	return &Dense{
		side:  side,
		cells: make([]uint8, side*side*side),
	}, nil
}

// Side returns the edge length.
func (d *Dense) Side() int { return d.side }

// Count returns the number of non-empty cells.
func (d *Dense) Count() int { return d.count }

// Get returns the palette index at c.
func (d *Dense) Get(c Coord) (uint8, error) {
	if !InBounds(c, d.side) {
		return 0, outOfBounds(c, d.side)
	}
	return d.cells[Index(c, d.side)], nil
}

// At returns the palette index at (x, y, z), or 0 outside the grid.
func (d *Dense) At(x, y, z int) uint8 {
	s := d.side
	if x < 0 || y < 0 || z < 0 || x >= s || y >= s || z >= s {
		return 0
	}
	return d.cells[x+y*s+z*s*s]
}

// Set stores p at c.
func (d *Dense) Set(c Coord, p uint8) error {
	if !InBounds(c, d.side) {
		return outOfBounds(c, d.side)
	}
	d.put(Index(c, d.side), p)
	return nil
}

func (d *Dense) put(i int, p uint8) {
	old := d.cells[i]
	switch {
	case old == 0 && p != 0:
		d.count++
	case old != 0 && p == 0:
		d.count--
	}
	d.cells[i] = p
}

// FillRange sets every cell of the inclusive box between c0 and c1.
func (d *Dense) FillRange(c0, c1 Coord, p uint8) error {
	lo, hi, err := normalizeRange(c0, c1, d.side)
	if err != nil {
		return err
	}
	s := d.side
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			row := y*s + z*s*s
			for x := lo.X; x <= hi.X; x++ {
				d.put(row+x, p)
			}
		}
	}
	return nil
}

// Clear empties every cell and resets the count.
func (d *Dense) Clear() {
	clear(d.cells)
	d.count = 0
}

// Each visits non-empty cells with x varying fastest, then y, then z.
func (d *Dense) Each(fn func(c Coord, p uint8) bool) {
	if d.count == 0 {
		return
	}
	s := d.side
	for i, p := range d.cells {
		if p == 0 {
			continue
		}
		c := Coord{X: i % s, Y: (i / s) % s, Z: i / (s * s)}
		if !fn(c, p) {
			return
		}
	}
}

// Bytes exposes the raw cell array in linear address order.
func (d *Dense) Bytes() []uint8 { return d.cells }
