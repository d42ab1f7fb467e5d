package device

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/engine/raster"
	"github.com/Faultbox/voxelray/internal/logger"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
)

// SoftGPUConfig configures a SoftGPU.
type SoftGPUConfig struct {
	// Side is the voxel space edge length.
	Side int
	// Strategy rasterizes each frame.
	Strategy raster.Strategy
	// Target returns the buffer to draw into, normally Display.BackBuffer.
	Target func() *framebuffer.Framebuffer
	// OnComplete is called from the worker after Done is set, in place of
	// the completion interrupt. May be nil.
	OnComplete func()
}

// SoftGPU emulates the render coprocessor on the host. Frames are rasterized
// on a worker goroutine; completion sets the Done status bit and calls
// OnComplete.
type SoftGPU struct {
	cfg SoftGPUConfig

	mu   sync.Mutex
	grid *voxel.Sparse
	pal  *palette.Palette
	regs CameraRegs

	status atomic.Uint32
	jobs   chan struct{}
	done   chan struct{}
	once   sync.Once

	lastRender atomic.Int64
}

// NewSoftGPU starts the worker. Call Close to stop it.
func NewSoftGPU(cfg SoftGPUConfig) (*SoftGPU, error) {
	if cfg.Side == 0 {
		cfg.Side = voxel.MaxSide
	}
	grid, err := voxel.NewSparse(cfg.Side, voxel.SparseOptions{})
	if err != nil {
		return nil, err
	}
	if cfg.Strategy == nil {
		cfg.Strategy = raster.NewRayCast(raster.Options{})
	}
	g := &SoftGPU{
		cfg:  cfg,
		grid: grid,
		pal:  palette.Default(),
		jobs: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go g.worker()
	return g, nil
}

// UploadVoxels implements GPU. Records outside the voxel space are dropped.
func (g *SoftGPU) UploadVoxels(records []voxel.Record) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.grid.Clear()
	if err := voxel.Load(g.grid, records); err != nil {
		logger.Warn("voxel upload truncated", zap.Error(err), zap.Int("records", len(records)))
	}
}

// UploadPalette implements GPU.
func (g *SoftGPU) UploadPalette(p *palette.Palette) {
	cp := *p
	g.mu.Lock()
	g.pal = &cp
	g.mu.Unlock()
}

// SetCamera implements GPU.
func (g *SoftGPU) SetCamera(regs CameraRegs) {
	g.mu.Lock()
	g.regs = regs
	g.mu.Unlock()
}

// SetStrategy swaps the rasterizer. It takes effect on the next frame.
func (g *SoftGPU) SetStrategy(s raster.Strategy) {
	g.mu.Lock()
	g.cfg.Strategy = s
	g.mu.Unlock()
}

// Strategy returns the current rasterizer.
func (g *SoftGPU) Strategy() raster.Strategy {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Strategy
}

// TriggerRender implements GPU. A trigger while busy is rejected with the
// Error bit and otherwise ignored.
func (g *SoftGPU) TriggerRender() {
	for {
		old := g.status.Load()
		if Status(old).Busy() {
			g.status.Store(old | uint32(StatusError))
			logger.Warn("render triggered while busy")
			return
		}
		if g.status.CompareAndSwap(old, uint32(StatusBusy)) {
			break
		}
	}
	g.jobs <- struct{}{}
}

// PollStatus implements GPU.
func (g *SoftGPU) PollStatus() Status {
	return Status(g.status.Load())
}

// LastRender returns how long the most recent frame took.
func (g *SoftGPU) LastRender() time.Duration {
	return time.Duration(g.lastRender.Load())
}

// Close stops the worker.
func (g *SoftGPU) Close() error {
	g.once.Do(func() { close(g.done) })
	return nil
}

func (g *SoftGPU) worker() {
	for {
		select {
		case <-g.done:
			return
		case <-g.jobs:
			g.render()
		}
	}
}

func (g *SoftGPU) render() {
	start := time.Now()

	g.mu.Lock()
	dst := g.cfg.Target()
	view := DecodeCamera(g.regs, dst.Width(), dst.Height())
	g.cfg.Strategy.Render(dst, g.grid, view, g.pal)
	g.mu.Unlock()

	g.lastRender.Store(int64(time.Since(start)))
	g.status.Store(uint32(StatusDone))
	if g.cfg.OnComplete != nil {
		g.cfg.OnComplete()
	}
}
