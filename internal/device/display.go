package device

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/logger"
)

// DefaultRefreshHz is the VGA refresh rate.
const DefaultRefreshHz = 60

// DisplayOptions configures a VirtualDisplay.
type DisplayOptions struct {
	RefreshHz int
	// Clock drives Run. Nil uses the real clock.
	Clock clockwork.Clock
}

// VirtualDisplay is a host display controller: two framebuffers whose roles
// are exchanged on the first vertical sync after a swap request. Each new
// front buffer is handed to the registered presenters.
type VirtualDisplay struct {
	mu         sync.Mutex
	pair       *framebuffer.Pair
	presenters []Presenter

	pending atomic.Bool
	swaps   atomic.Uint64

	refresh time.Duration
	clock   clockwork.Clock
}

// NewVirtualDisplay allocates the buffer pair.
func NewVirtualDisplay(width, height int, opts DisplayOptions) *VirtualDisplay {
	if opts.RefreshHz <= 0 {
		opts.RefreshHz = DefaultRefreshHz
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &VirtualDisplay{
		pair:    framebuffer.NewPair(width, height),
		refresh: time.Second / time.Duration(opts.RefreshHz),
		clock:   opts.Clock,
	}
}

// AddPresenter registers p for every future front buffer.
func (d *VirtualDisplay) AddPresenter(p Presenter) {
	d.mu.Lock()
	d.presenters = append(d.presenters, p)
	d.mu.Unlock()
}

// RequestSwap implements Display.
func (d *VirtualDisplay) RequestSwap() {
	d.pending.Store(true)
}

// IsSwapPending implements Display.
func (d *VirtualDisplay) IsSwapPending() bool {
	return d.pending.Load()
}

// BackBuffer implements Display.
func (d *VirtualDisplay) BackBuffer() *framebuffer.Framebuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pair.Back()
}

// FrontBuffer returns the buffer currently shown.
func (d *VirtualDisplay) FrontBuffer() *framebuffer.Framebuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pair.Front()
}

// Swaps returns the number of completed swaps.
func (d *VirtualDisplay) Swaps() uint64 {
	return d.swaps.Load()
}

// VSync performs one vertical sync: a pending swap is carried out and the
// new front buffer presented. It reports whether a swap happened.
func (d *VirtualDisplay) VSync() bool {
	if !d.pending.Load() {
		return false
	}

	d.mu.Lock()
	d.pair.Swap()
	front := d.pair.Front()
	presenters := append([]Presenter(nil), d.presenters...)
	d.mu.Unlock()

	d.swaps.Add(1)
	d.pending.Store(false)

	for _, p := range presenters {
		if err := p.Present(front); err != nil {
			logger.Warn("present failed", zap.Error(err))
		}
	}
	return true
}

// Run issues VSync at the refresh rate until ctx is done.
func (d *VirtualDisplay) Run(ctx context.Context) error {
	ticker := d.clock.NewTicker(d.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			d.VSync()
		}
	}
}
