// Package device models the coprocessor and display controller the frame
// loop talks to, plus host-side implementations of both.
package device

import (
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/palette"
	"github.com/Faultbox/voxelray/internal/voxel"
)

// GPU is the render coprocessor.
type GPU interface {
	// UploadVoxels replaces the coprocessor's voxel list.
	UploadVoxels(records []voxel.Record)
	// UploadPalette replaces the color table.
	UploadPalette(p *palette.Palette)
	// SetCamera writes the camera registers used by the next render.
	SetCamera(regs CameraRegs)
	// TriggerRender starts a frame. Completion is reported through the
	// status word and, where wired, an interrupt.
	TriggerRender()
	// PollStatus reads the status word.
	PollStatus() Status
}

// Display is the double-buffered display controller.
type Display interface {
	// RequestSwap asks for the buffers to be exchanged on the next vertical
	// sync.
	RequestSwap()
	// IsSwapPending reports whether a requested swap has not happened yet.
	IsSwapPending() bool
	// BackBuffer returns the buffer the next frame should be drawn into.
	BackBuffer() *framebuffer.Framebuffer
}

// Presenter receives each newly displayed front buffer.
type Presenter interface {
	Present(front *framebuffer.Framebuffer) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(front *framebuffer.Framebuffer) error

// Present implements Presenter.
func (f PresenterFunc) Present(front *framebuffer.Framebuffer) error { return f(front) }
