package frame

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/voxelray/internal/device"
	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/engine/raster"
	"github.com/Faultbox/voxelray/internal/irq"
	"github.com/Faultbox/voxelray/internal/logger"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
	"github.com/Faultbox/voxelray/pkg/math"
)

// fakeGPU completes renders synchronously when complete is set.
type fakeGPU struct {
	complete func()
	status   device.Status

	voxelUploads   int
	paletteUploads int
	triggers       int
	regs           device.CameraRegs
}

func (g *fakeGPU) UploadVoxels([]voxel.Record) { g.voxelUploads++ }
func (g *fakeGPU) UploadPalette(*palette.Palette) { g.paletteUploads++ }
func (g *fakeGPU) SetCamera(regs device.CameraRegs) { g.regs = regs }
func (g *fakeGPU) PollStatus() device.Status { return g.status }

func (g *fakeGPU) TriggerRender() {
	g.triggers++
	g.status = device.StatusDone
	if g.complete != nil {
		g.complete()
	}
}

// fakeDisplay swaps as soon as it is asked.
type fakeDisplay struct {
	pair     *framebuffer.Pair
	requests int
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{pair: framebuffer.NewPair(8, 6)}
}

func (d *fakeDisplay) RequestSwap() {
	d.requests++
	d.pair.Swap()
}

func (d *fakeDisplay) IsSwapPending() bool { return false }
func (d *fakeDisplay) BackBuffer() *framebuffer.Framebuffer { return d.pair.Back() }

func newTestScheduler(t *testing.T, gpu device.GPU, disp device.Display, mode Completion) *Scheduler {
	t.Helper()
	grid, err := voxel.NewDense(8)
	require.NoError(t, err)
	return NewScheduler(Config{
		GPU:        gpu,
		Display:    disp,
		Camera:     camera.NewShared(camera.New(math.Vec3{X: 4, Y: 4, Z: 20}, math.Vec3{Z: -1}, math.Vec3{Y: 1})),
		Projection: camera.NewProjection(90, 1, 4.0/3.0),
		Grid:       grid,
		Palette:    palette.Default(),
		Width:      8,
		Height:     6,
		Completion: mode,
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "waiting", WaitingForCompletion.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestParseCompletion(t *testing.T) {
	m, err := ParseCompletion("poll")
	require.NoError(t, err)
	assert.Equal(t, CompletionPoll, m)

	m, err = ParseCompletion("")
	require.NoError(t, err)
	assert.Equal(t, CompletionInterrupt, m)

	_, err = ParseCompletion("irq")
	assert.Error(t, err)
}

func TestTransitionsInOrder(t *testing.T) {
	gpu := &fakeGPU{}
	disp := newFakeDisplay()
	s := newTestScheduler(t, gpu, disp, CompletionInterrupt)
	gpu.complete = s.OnRenderComplete

	assert.Equal(t, Idle, s.State())
	require.NoError(t, s.Begin())
	assert.Equal(t, WaitingForCompletion, s.State())
	require.NoError(t, s.AwaitCompletion())
	assert.Equal(t, Swapping, s.State())
	require.NoError(t, s.Swap())
	assert.Equal(t, Idle, s.State())

	assert.Equal(t, 1, gpu.triggers)
	assert.Equal(t, 1, disp.requests)
	assert.EqualValues(t, 1, s.Stats().Frames)
}

func TestOutOfOrderStepsFail(t *testing.T) {
	gpu := &fakeGPU{}
	s := newTestScheduler(t, gpu, newFakeDisplay(), CompletionInterrupt)
	gpu.complete = s.OnRenderComplete

	assert.True(t, errors.Is(s.AwaitCompletion(), ErrInvalidTransition))
	assert.True(t, errors.Is(s.Swap(), ErrInvalidTransition))

	require.NoError(t, s.Begin())
	err := s.Begin()
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Contains(t, err.Error(), "waiting -> rendering")
	assert.True(t, errors.Is(s.Swap(), ErrInvalidTransition))
	assert.Equal(t, WaitingForCompletion, s.State())
}

func TestSingleCompletionSingleSwap(t *testing.T) {
	gpu := &fakeGPU{}
	disp := newFakeDisplay()
	s := newTestScheduler(t, gpu, disp, CompletionInterrupt)

	require.NoError(t, s.Begin())

	done := make(chan error, 1)
	go func() { done <- s.AwaitCompletion() }()

	select {
	case <-done:
		t.Fatal("completed without a signal")
	case <-time.After(20 * time.Millisecond):
	}

	s.OnRenderComplete()
	s.OnRenderComplete() // spurious repeat
	require.NoError(t, <-done)
	require.NoError(t, s.Swap())

	assert.Equal(t, 1, disp.requests)
	assert.EqualValues(t, 1, s.Stats().Frames)
	assert.False(t, s.waiting.Load())
}

func TestPollCompletion(t *testing.T) {
	gpu := &fakeGPU{}
	disp := newFakeDisplay()
	s := newTestScheduler(t, gpu, disp, CompletionPoll)

	require.NoError(t, s.RunFrame())
	assert.Equal(t, 1, disp.requests)
	assert.False(t, s.waiting.Load())
}

func TestUploadsOnlyWhenDirty(t *testing.T) {
	gpu := &fakeGPU{}
	s := newTestScheduler(t, gpu, newFakeDisplay(), CompletionInterrupt)
	gpu.complete = s.OnRenderComplete

	require.NoError(t, s.Run(context.Background(), 3))
	assert.Equal(t, 1, gpu.voxelUploads)
	assert.Equal(t, 1, gpu.paletteUploads)

	s.MarkGridDirty()
	require.NoError(t, s.RunFrame())
	assert.Equal(t, 2, gpu.voxelUploads)
	assert.Equal(t, 1, gpu.paletteUploads)

	s.MarkPaletteDirty()
	require.NoError(t, s.RunFrame())
	assert.Equal(t, 2, gpu.paletteUploads)
	assert.Equal(t, 5, gpu.triggers)
}

func TestCameraSnapshotPerFrame(t *testing.T) {
	gpu := &fakeGPU{}
	s := newTestScheduler(t, gpu, newFakeDisplay(), CompletionInterrupt)
	gpu.complete = s.OnRenderComplete

	require.NoError(t, s.RunFrame())
	first := gpu.regs

	s.cfg.Camera.Update(func(c *camera.Camera) { c.Translate(camera.Forward, 2) })
	require.NoError(t, s.RunFrame())
	assert.NotEqual(t, first, gpu.regs)

	pos := device.DecodeCamera(gpu.regs, 8, 6).Pos
	assert.InDelta(t, 18, pos.Z, 0.05)
}

func TestRunStopsOnCancel(t *testing.T) {
	gpu := &fakeGPU{}
	s := newTestScheduler(t, gpu, newFakeDisplay(), CompletionInterrupt)
	gpu.complete = s.OnRenderComplete

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(s.Run(ctx, 0), context.Canceled))
	assert.Zero(t, gpu.triggers)
}

func TestStatsOncePerSecond(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	defer logger.Use(zap.New(core))()

	clock := clockwork.NewFakeClock()
	gpu := &fakeGPU{}
	grid, err := voxel.NewDense(8)
	require.NoError(t, err)
	s := NewScheduler(Config{
		GPU:        gpu,
		Display:    newFakeDisplay(),
		Camera:     camera.NewShared(camera.Default()),
		Projection: camera.NewProjection(90, 1, 0),
		Grid:       grid,
		Palette:    palette.Default(),
		Clock:      clock,
	})
	gpu.complete = s.OnRenderComplete

	for i := 0; i < 10; i++ {
		clock.Advance(150 * time.Millisecond)
		require.NoError(t, s.RunFrame())
	}

	fps := logs.FilterMessage("fps").All()
	require.Len(t, fps, 1)
	assert.EqualValues(t, 7, fps[0].ContextMap()["fps"])
	assert.Equal(t, 7, s.Stats().FPS)
	assert.EqualValues(t, 10, s.Stats().Frames)
}

func TestBeforeSwapSeesFinishedBuffer(t *testing.T) {
	gpu := &fakeGPU{}
	disp := newFakeDisplay()
	s := newTestScheduler(t, gpu, disp, CompletionInterrupt)
	gpu.complete = s.OnRenderComplete

	var seen *framebuffer.Framebuffer
	s.cfg.BeforeSwap = func(back *framebuffer.Framebuffer, _ Stats) { seen = back }

	target := s.Target()
	require.NoError(t, s.RunFrame())
	assert.Same(t, target, seen)
	assert.Same(t, disp.pair.Front(), seen)
	assert.Same(t, disp.BackBuffer(), s.Target())
}

// TestSoftwarePipeline runs the scheduler against the host coprocessor and
// display with completion delivered through the interrupt dispatcher.
func TestSoftwarePipeline(t *testing.T) {
	const w, h = 80, 60

	disp := device.NewVirtualDisplay(w, h, device.DisplayOptions{RefreshHz: 500})
	var presented atomic.Int32
	disp.AddPresenter(device.PresenterFunc(func(front *framebuffer.Framebuffer) error {
		presented.Add(1)
		return nil
	}))

	dispatcher := irq.NewDispatcher()
	gpu, err := device.NewSoftGPU(device.SoftGPUConfig{
		Side:       8,
		Strategy:   raster.NewRayCast(raster.Options{}),
		Target:     disp.BackBuffer,
		OnComplete: func() { _ = dispatcher.Raise(irq.SourceGPU) },
	})
	require.NoError(t, err)
	defer gpu.Close()

	grid, err := voxel.NewDense(8)
	require.NoError(t, err)
	require.NoError(t, grid.Set(voxel.Coord{X: 4, Y: 4, Z: 4}, 1))
	pal := palette.New()
	require.NoError(t, pal.Set(1, 0xF800))

	s := NewScheduler(Config{
		GPU:        gpu,
		Display:    disp,
		Camera:     camera.NewShared(camera.New(math.Vec3{X: 4, Y: 4, Z: 20}, math.Vec3{Z: -1}, math.Vec3{Y: 1})),
		Projection: camera.NewProjection(90, 1, float32(w)/float32(h)),
		Grid:       grid,
		Palette:    pal,
		Width:      w,
		Height:     h,
	})
	require.NoError(t, dispatcher.Register(irq.SourceGPU, nil, s.OnRenderComplete))
	dispatcher.Enable()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = disp.Run(ctx) }()

	require.NoError(t, s.Run(ctx, 3))
	assert.EqualValues(t, 3, s.Stats().Frames)
	assert.EqualValues(t, 3, disp.Swaps())
	assert.EqualValues(t, 3, dispatcher.Fired(irq.SourceGPU))

	red := 0
	for _, p := range disp.FrontBuffer().Pix {
		if p == 0xF800 {
			red++
		}
	}
	assert.Positive(t, red)
	assert.Eventually(t, func() bool { return presented.Load() == 3 }, 5*time.Second, time.Millisecond)
}
