// Package game wires a render session: scene, coprocessor, display,
// scheduler, presenters and the input loop.
package game

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"strings"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"periph.io/x/host/v3"

	"github.com/Faultbox/voxelray/internal/config"
	"github.com/Faultbox/voxelray/internal/device"
	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/frame"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/engine/hud"
	"github.com/Faultbox/voxelray/internal/engine/input"
	"github.com/Faultbox/voxelray/internal/engine/raster"
	"github.com/Faultbox/voxelray/internal/engine/renderer"
	"github.com/Faultbox/voxelray/internal/engine/window"
	"github.com/Faultbox/voxelray/internal/irq"
	"github.com/Faultbox/voxelray/internal/logger"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/panel"
	"github.com/Faultbox/voxelray/internal/preview"
	"github.com/Faultbox/voxelray/internal/scene"
	"github.com/Faultbox/voxelray/pkg/math"
)

// Options are the runtime knobs that do not live in the config file.
type Options struct {
	// MaxFrames stops the session after that many frames. Zero runs until
	// quit.
	MaxFrames int
	// Stdin feeds keys in headless and panel modes. Nil disables them.
	Stdin *os.File
	// ScreenshotDir receives P-key captures. Empty uses the working directory.
	ScreenshotDir string
	// Clock paces the headless loop. Nil uses the real clock.
	Clock clockwork.Clock
}

// Game is one render session.
type Game struct {
	cfg  *config.Config
	opts Options
	log  *zap.Logger

	scene    *scene.Result
	controls Controls
	cam      *camera.Shared
	// local is the input path's working copy, published to cam.
	local camera.Camera

	gpu   *device.SoftGPU
	disp  *device.VirtualDisplay
	irq   *irq.Dispatcher
	line  *irq.GPIOLine
	sched *frame.Scheduler

	strategies  []string
	strategy    int
	rasterOpts  raster.Options
	overlay     *hud.Overlay
	shots       *framebuffer.ScreenshotCapture
	shotPending atomic.Bool

	in       *input.Input
	keys     *input.TerminalKeys
	window   *window.Window
	renderer *renderer.Renderer
	hub      *preview.Hub
	panel    *panel.Panel

	schedDone chan struct{}
	schedErr  error
}

// New builds a session from a validated config. In window mode it must be
// called on the main thread.
func New(cfg *config.Config, opts Options) (*Game, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	g := &Game{
		cfg:       cfg,
		opts:      opts,
		log:       logger.Named("game"),
		controls:  NewControls(cfg.Camera),
		in:        input.New(),
		schedDone: make(chan struct{}),
		shots:     framebuffer.NewScreenshotCapture(opts.ScreenshotDir, "voxelray", "png"),
	}

	if err := g.loadScene(); err != nil {
		return nil, err
	}
	if err := g.setupDevices(); err != nil {
		g.Close()
		return nil, err
	}
	if err := g.setupBackend(); err != nil {
		g.Close()
		return nil, err
	}

	g.log.Info("session ready",
		zap.String("scene", g.scene.Name),
		zap.String("backend", cfg.Display.Backend),
		zap.String("strategy", g.strategies[g.strategy]),
		zap.Int("voxels", g.scene.Grid.Count()),
	)
	return g, nil
}

func (g *Game) loadScene() error {
	var (
		s   *scene.Scene
		err error
	)
	if path := g.cfg.Scene.Path; path != "" {
		if s, err = scene.Load(path); err != nil {
			return err
		}
	} else {
		s = scene.Demo(g.cfg.Grid.Side, g.cfg.Grid.Sparse)
	}

	g.scene, err = s.Build(context.Background(), scene.BuildOptions{
		SparseCapacity: g.cfg.Grid.SparseCapacity,
		MaxRecords:     g.cfg.Grid.MaxRecords,
	})
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}

	if g.scene.HasCamera {
		g.local = g.scene.Camera
	} else {
		c := g.cfg.Camera
		g.local = camera.New(vec(c.Position), vec(c.Look), vec(c.Up))
	}
	g.cam = camera.NewShared(g.local)
	return nil
}

func (g *Game) setupDevices() error {
	cfg := g.cfg

	bg, err := palette.ParseColor(cfg.Render.Background)
	if err != nil {
		return fmt.Errorf("background: %w", err)
	}
	if g.scene.Background != 0 {
		bg = g.scene.Background
	}
	g.rasterOpts = raster.Options{Background: bg, MarchStep: cfg.Render.MarchStep}

	g.strategies = raster.Names()
	for i, name := range g.strategies {
		if name == cfg.Render.Strategy {
			g.strategy = i
		}
	}
	strategy, err := raster.New(g.strategies[g.strategy], g.rasterOpts)
	if err != nil {
		return err
	}

	completion, err := frame.ParseCompletion(cfg.Render.Completion)
	if err != nil {
		return err
	}
	format, err := device.ParseRegisterFormat(cfg.Render.RegisterFormat)
	if err != nil {
		return err
	}

	g.disp = device.NewVirtualDisplay(cfg.Display.Width, cfg.Display.Height, device.DisplayOptions{
		RefreshHz: cfg.Display.RefreshHz,
		Clock:     g.opts.Clock,
	})

	g.irq = irq.NewDispatcher()
	g.gpu, err = device.NewSoftGPU(device.SoftGPUConfig{
		Side:     g.scene.Grid.Side(),
		Strategy: strategy,
		Target:   g.disp.BackBuffer,
		OnComplete: func() {
			if err := g.irq.Raise(irq.SourceGPU); err != nil {
				g.log.Warn("completion interrupt lost", zap.Error(err))
			}
		},
	})
	if err != nil {
		return fmt.Errorf("coprocessor: %w", err)
	}

	fov := cfg.Camera.FOVDegrees
	if g.scene.FOVDegrees > 0 {
		fov = g.scene.FOVDegrees
	}

	g.overlay = hud.New(color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	g.overlay.SetEnabled(cfg.Render.HUD)
	g.overlay.Label = func() []string {
		return []string{strings.ToUpper(g.gpu.Strategy().Name())}
	}

	g.sched = frame.NewScheduler(frame.Config{
		GPU:        g.gpu,
		Display:    g.disp,
		Camera:     g.cam,
		Projection: camera.NewProjection(fov, cfg.Camera.FocalLength, float32(cfg.Display.Width)/float32(cfg.Display.Height)),
		Grid:       g.scene.Grid,
		Palette:    g.scene.Palette,
		Width:      cfg.Display.Width,
		Height:     cfg.Display.Height,
		Completion: completion,
		Format:     format,
		BeforeSwap: g.overlay.Draw,
		Clock:      g.opts.Clock,
	})

	if err := g.irq.Register(irq.SourceGPU, nil, g.sched.OnRenderComplete); err != nil {
		return err
	}
	if pin := cfg.IRQ.GPIOPin; pin != "" {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("periph host init: %w", err)
		}
		if g.line, err = irq.OpenGPIOLine(pin, g.irq, irq.SourceGPU); err != nil {
			return err
		}
	}
	g.irq.Enable()

	g.disp.AddPresenter(device.PresenterFunc(g.capture))
	return nil
}

func (g *Game) setupBackend() error {
	cfg := g.cfg
	var err error

	switch cfg.Display.Backend {
	case config.BackendWindow:
		scale := max(cfg.Display.Scale, 1)
		g.window, err = window.New(window.Config{
			Title:          "voxelray - " + g.scene.Name,
			Width:          cfg.Display.Width * scale,
			Height:         cfg.Display.Height * scale,
			VSync:          cfg.Display.VSync,
			CapturePointer: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create window: %w", err)
		}
		vw, vh := g.window.GetSize()
		g.renderer, err = renderer.New(renderer.Config{
			Width:          cfg.Display.Width,
			Height:         cfg.Display.Height,
			ViewportWidth:  vw,
			ViewportHeight: vh,
		})
		if err != nil {
			return fmt.Errorf("failed to create renderer: %w", err)
		}
		g.disp.AddPresenter(g.renderer)

	case config.BackendPanel:
		g.panel, err = panel.Open(panel.Config{
			Layout: panel.Layout{
				Width:      cfg.Panel.Width,
				Height:     cfg.Panel.Height,
				Serpentine: cfg.Panel.Serpentine,
			},
			Driver:  cfg.Panel.Driver,
			SPIPort: cfg.Panel.SPIPort,
			FreqKHz: cfg.Panel.FreqKHz,
		})
		if err != nil {
			return err
		}
		g.disp.AddPresenter(g.panel)
	}

	if cfg.Display.Backend != config.BackendWindow && g.opts.Stdin != nil {
		if g.keys, err = input.NewTerminalKeys(g.opts.Stdin); err != nil {
			return fmt.Errorf("terminal input: %w", err)
		}
	}

	if cfg.Preview.Enabled {
		g.hub = preview.NewHub()
		g.disp.AddPresenter(g.hub)
	}
	return nil
}

// Scene returns the loaded scene.
func (g *Game) Scene() *scene.Result { return g.scene }

// Stats returns the scheduler counters. Only safe once Run has returned.
func (g *Game) Stats() frame.Stats { return g.sched.Stats() }

// Display returns the virtual display.
func (g *Game) Display() *device.VirtualDisplay { return g.disp }

// Close releases every device. It is safe on a partly built session.
func (g *Game) Close() {
	g.log.Info("closing session")

	if g.keys != nil {
		if err := g.keys.Close(); err != nil {
			g.log.Warn("restoring terminal", zap.Error(err))
		}
	}
	if g.line != nil {
		g.line.Close()
	}
	if g.gpu != nil {
		g.gpu.Close()
	}
	if g.panel != nil {
		g.panel.Close()
	}
	if g.renderer != nil {
		g.renderer.Close()
	}
	if g.window != nil {
		g.window.Close()
	}
}

// capture saves the front buffer after a P press. It runs as a presenter so
// the buffer cannot be redrawn while it is encoded.
func (g *Game) capture(front *framebuffer.Framebuffer) error {
	if !g.shotPending.CompareAndSwap(true, false) {
		return nil
	}
	path, err := g.shots.Capture(front)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	g.log.Info("screenshot saved", zap.String("path", path))
	return nil
}

// cycleStrategy switches to the next rasterizer.
func (g *Game) cycleStrategy() {
	g.strategy = (g.strategy + 1) % len(g.strategies)
	s, err := raster.New(g.strategies[g.strategy], g.rasterOpts)
	if err != nil {
		g.log.Error("switching strategy", zap.Error(err))
		return
	}
	g.gpu.SetStrategy(s)
	g.log.Info("strategy changed", zap.String("strategy", s.Name()))
}

// handleEvents applies this tick's input. It returns false when the session
// should end.
func (g *Game) handleEvents() bool {
	moved := false
	for _, e := range g.in.Events() {
		switch e.Type {
		case input.EventWindowResize:
			if g.renderer != nil {
				g.renderer.Resize(e.Width, e.Height)
			}
			continue
		case input.EventKeyDown:
			switch e.Key {
			case input.KeyEscape:
				return false
			case input.KeyTab:
				g.cycleStrategy()
				continue
			case input.KeyP:
				g.shotPending.Store(true)
				continue
			case input.KeyH:
				g.log.Debug("overlay toggled", zap.Bool("visible", g.overlay.Toggle()))
				continue
			}
		}
		if g.controls.Apply(&g.local, e) {
			moved = true
		}
	}
	if moved {
		g.cam.Store(g.local)
	}
	return true
}

func vec(v config.Vec) math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}
