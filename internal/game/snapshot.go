package game

import (
	"context"
	"fmt"

	"github.com/Faultbox/voxelray/internal/device"
	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/frame"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/engine/raster"
	"github.com/Faultbox/voxelray/internal/scene"
)

// SnapshotOptions configures an offline render.
type SnapshotOptions struct {
	Width, Height int
	Strategy      string
	FOVDegrees    float32
	MarchStep     float32
	Format        device.RegisterFormat
}

// Snapshot renders one frame of a built scene through the full coprocessor
// and display path and returns a copy of the presented buffer.
func Snapshot(ctx context.Context, res *scene.Result, opts SnapshotOptions) (*framebuffer.Framebuffer, error) {
	if opts.Width <= 0 {
		opts.Width = framebuffer.DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = framebuffer.DefaultHeight
	}
	fov := opts.FOVDegrees
	if fov <= 0 {
		fov = res.FOVDegrees
	}
	if fov <= 0 {
		fov = 60
	}

	strategy, err := raster.New(opts.Strategy, raster.Options{Background: res.Background, MarchStep: opts.MarchStep})
	if err != nil {
		return nil, err
	}

	disp := device.NewVirtualDisplay(opts.Width, opts.Height, device.DisplayOptions{RefreshHz: 1000})
	gpu, err := device.NewSoftGPU(device.SoftGPUConfig{
		Side:     res.Grid.Side(),
		Strategy: strategy,
		Target:   disp.BackBuffer,
	})
	if err != nil {
		return nil, err
	}
	defer gpu.Close()

	sched := frame.NewScheduler(frame.Config{
		GPU:        gpu,
		Display:    disp,
		Camera:     camera.NewShared(res.Camera),
		Projection: camera.NewProjection(fov, 1, float32(opts.Width)/float32(opts.Height)),
		Grid:       res.Grid,
		Palette:    res.Palette,
		Width:      opts.Width,
		Height:     opts.Height,
		Completion: frame.CompletionPoll,
		Format:     opts.Format,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go disp.Run(ctx)

	if err := sched.Run(ctx, 1); err != nil {
		return nil, fmt.Errorf("rendering: %w", err)
	}
	cancel()

	out := framebuffer.New(opts.Width, opts.Height)
	out.CopyFrom(disp.FrontBuffer())
	return out, nil
}
