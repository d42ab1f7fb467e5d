package camera

import "sync/atomic"

// Shared publishes camera snapshots from the input path to the render loop.
// There must be a single writer. Readers get the latest complete snapshot,
// at most one update behind and never torn.
type Shared struct {
	cur atomic.Pointer[Camera]
}

// NewShared starts with c.
func NewShared(c Camera) *Shared {
	s := &Shared{}
	s.Store(c)
	return s
}

// Load returns the current snapshot.
func (s *Shared) Load() Camera {
	return *s.cur.Load()
}

// Store publishes c.
func (s *Shared) Store(c Camera) {
	s.cur.Store(&c)
}

// Update applies fn to a copy of the current camera and publishes it.
func (s *Shared) Update(fn func(c *Camera)) {
	c := s.Load()
	fn(&c)
	s.Store(c)
}
