package framebuffer

// Pair is a front/back buffer couple. The renderer owns the back buffer
// during a frame and scanout owns the front buffer.
type Pair struct {
	bufs [2]*Framebuffer
	back int
}

// NewPair allocates two buffers of the given size.
func NewPair(width, height int) *Pair {
	return &Pair{bufs: [2]*Framebuffer{New(width, height), New(width, height)}}
}

// Back returns the current write target.
func (p *Pair) Back() *Framebuffer { return p.bufs[p.back] }

// Front returns the buffer being displayed.
func (p *Pair) Front() *Framebuffer { return p.bufs[1-p.back] }

// Swap exchanges the roles of the two buffers.
func (p *Pair) Swap() { p.back = 1 - p.back }
