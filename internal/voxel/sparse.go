package voxel

import "fmt"

const minSparseCapacity = 16

// Sparse stores non-empty cells as a growable record list. Storage doubles
// when full. An address index keeps overwrites in place so overlapping
// writes never count a cell twice.
type Sparse struct {
	side       int
	records    []Record
	index      map[int]int // linear address -> slot in records
	maxRecords int
}

// SparseOptions configures a sparse grid.
type SparseOptions struct {
	// InitialCapacity is the starting record capacity.
	InitialCapacity int
	// MaxRecords caps growth. Zero means unbounded.
	MaxRecords int
}

// NewSparse creates an empty sparse grid.
func NewSparse(side int, opts SparseOptions) (*Sparse, error) {
	if err := checkSide(side); err != nil {
		return nil, err
	}
	s := &Sparse{side: side, maxRecords: opts.MaxRecords}
	s.reset(opts.InitialCapacity)
	return s, nil
}

func (s *Sparse) reset(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	if capacity > 0 {
		s.records = make([]Record, 0, capacity)
	} else {
		s.records = nil
	}
	s.index = make(map[int]int, capacity)
}

// Side returns the edge length.
func (s *Sparse) Side() int { return s.side }

// Count returns the number of stored records.
func (s *Sparse) Count() int { return len(s.records) }

// Capacity returns the current record capacity.
func (s *Sparse) Capacity() int { return cap(s.records) }

// Get returns the palette index at c.
func (s *Sparse) Get(c Coord) (uint8, error) {
	if !InBounds(c, s.side) {
		return 0, outOfBounds(c, s.side)
	}
	if slot, ok := s.index[Index(c, s.side)]; ok {
		return s.records[slot].Palette, nil
	}
	return 0, nil
}

// At returns the palette index at (x, y, z), or 0 outside the grid.
func (s *Sparse) At(x, y, z int) uint8 {
	c := Coord{x, y, z}
	if !InBounds(c, s.side) {
		return 0
	}
	if slot, ok := s.index[Index(c, s.side)]; ok {
		return s.records[slot].Palette
	}
	return 0
}

// Set stores p at c.
func (s *Sparse) Set(c Coord, p uint8) error {
	if !InBounds(c, s.side) {
		return outOfBounds(c, s.side)
	}
	return s.put(c, p)
}

func (s *Sparse) put(c Coord, p uint8) error {
	addr := Index(c, s.side)
	slot, ok := s.index[addr]
	switch {
	case ok && p != 0:
		s.records[slot].Palette = p
	case ok:
		s.remove(addr, slot)
	case p != 0:
		if err := s.grow(); err != nil {
			return err
		}
		s.index[addr] = len(s.records)
		s.records = append(s.records, Record{uint8(c.X), uint8(c.Y), uint8(c.Z), p})
	}
	return nil
}

// remove swap-deletes the record in slot.
func (s *Sparse) remove(addr, slot int) {
	last := len(s.records) - 1
	if slot != last {
		moved := s.records[last]
		s.records[slot] = moved
		s.index[Index(moved.Coord(), s.side)] = slot
	}
	s.records = s.records[:last]
	delete(s.index, addr)
}

// grow doubles the backing storage when it is full.
func (s *Sparse) grow() error {
	n := len(s.records)
	if s.maxRecords > 0 && n >= s.maxRecords {
		return fmt.Errorf("%w: %d records", ErrCapacity, s.maxRecords)
	}
	if n < cap(s.records) {
		return nil
	}
	newCap := cap(s.records) * 2
	if newCap == 0 {
		newCap = minSparseCapacity
	}
	if s.maxRecords > 0 && newCap > s.maxRecords {
		newCap = s.maxRecords
	}
	grown := make([]Record, n, newCap)
	copy(grown, s.records)
	s.records = grown
	return nil
}

// FillRange sets every cell of the inclusive box between c0 and c1.
// On ErrCapacity the cells written before exhaustion remain set.
func (s *Sparse) FillRange(c0, c1 Coord, p uint8) error {
	lo, hi, err := normalizeRange(c0, c1, s.side)
	if err != nil {
		return err
	}
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				if err := s.put(Coord{x, y, z}, p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Clear drops every record and releases the backing storage.
func (s *Sparse) Clear() {
	s.reset(0)
}

// Each visits records in storage order.
func (s *Sparse) Each(fn func(c Coord, p uint8) bool) {
	for _, r := range s.records {
		if !fn(r.Coord(), r.Palette) {
			return
		}
	}
}

// Records returns a copy of the record list.
func (s *Sparse) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
