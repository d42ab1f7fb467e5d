package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/voxelray/internal/config"
)

// Run drives the session until the user quits, ctx is cancelled or the
// frame limit is reached. In window mode it must be called on the main
// thread; frames are rendered on a separate goroutine either way.
func (g *Game) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	grp, gctx := errgroup.WithContext(ctx)
	if g.hub != nil {
		grp.Go(func() error { return g.hub.Serve(gctx, g.cfg.Preview.Listen) })
	}
	if g.line != nil {
		grp.Go(func() error { return g.line.Run(gctx) })
	}
	if g.keys != nil {
		// A blocked terminal read only returns on the next byte, so this
		// goroutine is not waited for.
		go func() {
			if err := g.keys.Run(gctx, g.in); err != nil && gctx.Err() == nil {
				g.log.Warn("terminal input stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		defer close(g.schedDone)
		g.schedErr = g.sched.Run(gctx, g.opts.MaxFrames)
	}()

	if g.cfg.Display.Backend == config.BackendWindow {
		g.windowLoop(gctx)
	} else {
		g.tickLoop(gctx)
	}

	// The scheduler may be waiting for a swap; keep the display ticking
	// until its current frame is out.
	stop()
	g.drain()

	err := grp.Wait()
	if err == nil {
		err = g.schedErr
	}
	if isContextErr(err) {
		err = nil
	}

	g.log.Info("session ended",
		zap.Uint64("frames", g.sched.Stats().Frames),
		zap.Duration("last_render", g.gpu.LastRender()),
	)
	return err
}

// windowLoop polls SDL, applies input and presents on every pass.
// SwapBuffers blocks on vsync when it is enabled.
func (g *Game) windowLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.schedDone:
			return
		default:
		}

		g.window.PollEvents(g.in)
		if g.in.Update() || !g.handleEvents() {
			return
		}
		g.disp.VSync()
		g.renderer.Draw()
		g.window.SwapBuffers()
	}
}

// tickLoop paces input and vsync at the display refresh rate.
func (g *Game) tickLoop(ctx context.Context) {
	hz := g.cfg.Display.RefreshHz
	if hz <= 0 {
		hz = 60
	}
	ticker := g.opts.Clock.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.schedDone:
			return
		case <-ticker.Chan():
		}

		if g.in.Update() || !g.handleEvents() {
			return
		}
		g.disp.VSync()
	}
}

// drain services vsync until the scheduler has returned.
func (g *Game) drain() {
	for {
		select {
		case <-g.schedDone:
			return
		default:
		}
		g.disp.VSync()
		if g.renderer != nil {
			g.renderer.Draw()
			g.window.SwapBuffers()
		} else {
			time.Sleep(time.Millisecond)
		}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
