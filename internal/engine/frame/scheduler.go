// Package frame drives the render loop: it publishes the camera to the
// coprocessor, waits for the completion signal and swaps display buffers.
//
// A frame walks Idle -> Rendering -> WaitingForCompletion -> Swapping -> Idle.
// There are no timeouts. A coprocessor that never completes, or a display
// that never clears its pending swap, stalls the loop.
package frame

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/Faultbox/voxelray/internal/device"
	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/logger"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
)

// State is the scheduler's position in the frame cycle.
type State int32

const (
	Idle State = iota
	Rendering
	WaitingForCompletion
	Swapping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case WaitingForCompletion:
		return "waiting"
	case Swapping:
		return "swapping"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Completion selects how the end of a render is detected.
type Completion int

const (
	// CompletionInterrupt waits for OnRenderComplete.
	CompletionInterrupt Completion = iota
	// CompletionPoll reads the coprocessor status word.
	CompletionPoll
)

// ParseCompletion accepts "interrupt" or "poll".
func ParseCompletion(s string) (Completion, error) {
	switch s {
	case "", "interrupt":
		return CompletionInterrupt, nil
	case "poll":
		return CompletionPoll, nil
	}
	return 0, fmt.Errorf("unknown completion mode %q", s)
}

// ErrInvalidTransition is returned when a step is called out of order.
var ErrInvalidTransition = errors.New("invalid frame transition")

// Config wires a Scheduler.
type Config struct {
	GPU        device.GPU
	Display    device.Display
	Camera     *camera.Shared
	Projection *camera.Projection
	Grid       voxel.Grid
	Palette    *palette.Palette

	Width  int
	Height int

	Completion Completion
	Format     device.RegisterFormat

	// BeforeSwap runs on the finished back buffer just before the swap is
	// requested, for overlays. May be nil.
	BeforeSwap func(back *framebuffer.Framebuffer, stats Stats)

	// Clock times frames. Nil uses the real clock.
	Clock clockwork.Clock
}

// Stats are the frame counters.
type Stats struct {
	// Frames is the total number of swapped frames.
	Frames uint64
	// FPS is the number of frames swapped during the last full second.
	FPS int
	// LastFrame is the duration of the most recent frame.
	LastFrame time.Duration
}

// Scheduler runs the frame state machine. All methods except
// OnRenderComplete must be called from one goroutine.
type Scheduler struct {
	cfg   Config
	state State

	// waiting is set before a render is triggered and cleared by the
	// completion handler.
	waiting atomic.Bool

	gridDirty    bool
	paletteDirty bool

	target *framebuffer.Framebuffer
	view   camera.View

	stats       Stats
	frameStart  time.Time
	secondStart time.Time
	secondCount int

	log *zap.Logger
}

// NewScheduler creates an idle scheduler. The grid and palette are uploaded
// on the first frame.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Width <= 0 {
		cfg.Width = framebuffer.DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = framebuffer.DefaultHeight
	}
	return &Scheduler{
		cfg:          cfg,
		gridDirty:    true,
		paletteDirty: true,
		target:       cfg.Display.BackBuffer(),
		secondStart:  cfg.Clock.Now(),
		log:          logger.Named("frame"),
	}
}

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Stats returns the frame counters.
func (s *Scheduler) Stats() Stats { return s.stats }

// View returns the projection basis of the current or last frame.
func (s *Scheduler) View() camera.View { return s.view }

// Target returns the buffer the current or next frame is drawn into.
func (s *Scheduler) Target() *framebuffer.Framebuffer { return s.target }

// MarkGridDirty schedules a voxel upload at the start of the next frame.
// The grid must only be changed between frames.
func (s *Scheduler) MarkGridDirty() { s.gridDirty = true }

// MarkPaletteDirty schedules a palette upload at the start of the next frame.
func (s *Scheduler) MarkPaletteDirty() { s.paletteDirty = true }

// Begin snapshots the camera, programs the coprocessor and starts a render.
func (s *Scheduler) Begin() error {
	if err := s.transition(Idle, Rendering); err != nil {
		return err
	}
	s.frameStart = s.cfg.Clock.Now()

	s.view = camera.NewView(s.cfg.Camera.Load(), s.cfg.Projection, s.cfg.Width, s.cfg.Height)
	if s.gridDirty {
		s.cfg.GPU.UploadVoxels(voxel.Records(s.cfg.Grid))
		s.gridDirty = false
	}
	if s.paletteDirty {
		s.cfg.GPU.UploadPalette(s.cfg.Palette)
		s.paletteDirty = false
	}
	s.cfg.GPU.SetCamera(device.EncodeCamera(s.view, s.cfg.Format))

	s.waiting.Store(true)
	s.cfg.GPU.TriggerRender()
	return s.transition(Rendering, WaitingForCompletion)
}

// OnRenderComplete is the completion interrupt handler. Only the first call
// after a trigger has any effect.
func (s *Scheduler) OnRenderComplete() {
	if !s.waiting.CompareAndSwap(true, false) {
		s.log.Debug("spurious render completion")
	}
}

// AwaitCompletion spins until the render has finished.
func (s *Scheduler) AwaitCompletion() error {
	if s.state != WaitingForCompletion {
		return s.invalid(Swapping)
	}
	switch s.cfg.Completion {
	case CompletionPoll:
		for !s.cfg.GPU.PollStatus().Done() {
			runtime.Gosched()
		}
		s.waiting.Store(false)
	default:
		for s.waiting.Load() {
			runtime.Gosched()
		}
	}
	return s.transition(WaitingForCompletion, Swapping)
}

// Swap requests the buffer exchange, waits for the display to perform it and
// takes the new back buffer as the next target.
func (s *Scheduler) Swap() error {
	if s.state != Swapping {
		return s.invalid(Idle)
	}
	if s.cfg.BeforeSwap != nil {
		s.cfg.BeforeSwap(s.target, s.stats)
	}

	s.cfg.Display.RequestSwap()
	for s.cfg.Display.IsSwapPending() {
		runtime.Gosched()
	}
	s.target = s.cfg.Display.BackBuffer()

	s.countFrame()
	return s.transition(Swapping, Idle)
}

// RunFrame performs one full frame.
func (s *Scheduler) RunFrame() error {
	if err := s.Begin(); err != nil {
		return err
	}
	if err := s.AwaitCompletion(); err != nil {
		return err
	}
	return s.Swap()
}

// Run renders frames until ctx is done or maxFrames frames have been
// swapped. maxFrames <= 0 means no limit. ctx is only checked between
// frames.
func (s *Scheduler) Run(ctx context.Context, maxFrames int) error {
	s.log.Info("frame loop started", zap.Int("max_frames", maxFrames), zap.Stringer("format", s.cfg.Format))
	for n := 0; maxFrames <= 0 || n < maxFrames; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.RunFrame(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) countFrame() {
	now := s.cfg.Clock.Now()
	s.stats.Frames++
	s.stats.LastFrame = now.Sub(s.frameStart)
	s.secondCount++
	s.log.Debug("frame", zap.Uint64("n", s.stats.Frames), zap.Duration("took", s.stats.LastFrame))

	if elapsed := now.Sub(s.secondStart); elapsed >= time.Second {
		s.stats.FPS = s.secondCount
		s.secondCount = 0
		s.secondStart = now
		s.log.Info("fps",
			zap.Int("fps", s.stats.FPS),
			zap.Uint64("frames", s.stats.Frames),
			zap.Duration("last_frame", s.stats.LastFrame),
		)
	}
}

func (s *Scheduler) transition(from, to State) error {
	if s.state != from {
		return s.invalid(to)
	}
	s.state = to
	return nil
}

func (s *Scheduler) invalid(to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}
