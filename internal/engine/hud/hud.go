// Package hud draws a small text overlay into a finished frame.
package hud

import (
	"fmt"
	"image/color"
	"sync/atomic"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"

	"github.com/Faultbox/voxelray/internal/engine/frame"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
)

// LineHeight is the TomThumb line advance in pixels.
const LineHeight = 6

var _ drivers.Displayer = (*framebuffer.Framebuffer)(nil)

// Overlay prints frame statistics in the top-left corner.
type Overlay struct {
	font    tinyfont.Fonter
	color   color.RGBA
	shadow  color.RGBA
	enabled atomic.Bool

	// Label returns extra lines, e.g. the rasterizer name. May be nil.
	Label func() []string
}

// New returns an enabled overlay in the given color.
func New(c color.RGBA) *Overlay {
	o := &Overlay{
		font:   &tinyfont.TomThumb,
		color:  c,
		shadow: color.RGBA{A: 0xFF},
	}
	o.enabled.Store(true)
	return o
}

// Toggle flips visibility and returns the new state. It may be called
// while another goroutine draws.
func (o *Overlay) Toggle() bool {
	for {
		old := o.enabled.Load()
		if o.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetEnabled shows or hides the overlay.
func (o *Overlay) SetEnabled(on bool) { o.enabled.Store(on) }

// Enabled reports whether Draw writes anything.
func (o *Overlay) Enabled() bool { return o.enabled.Load() }

// Lines returns the text the overlay would draw for stats.
func (o *Overlay) Lines(stats frame.Stats) []string {
	lines := []string{
		fmt.Sprintf("FPS %d", stats.FPS),
		fmt.Sprintf("FRAME %d", stats.Frames),
	}
	if stats.LastFrame > 0 {
		lines = append(lines, fmt.Sprintf("%.1fMS", float64(stats.LastFrame.Microseconds())/1000))
	}
	if o.Label != nil {
		lines = append(lines, o.Label()...)
	}
	return lines
}

// Draw writes the overlay into fb. It matches frame.Config.BeforeSwap.
func (o *Overlay) Draw(fb *framebuffer.Framebuffer, stats frame.Stats) {
	if !o.enabled.Load() {
		return
	}
	for i, line := range o.Lines(stats) {
		// WriteLine takes the baseline; TomThumb glyphs rise 5 pixels.
		y := int16(2 + LineHeight*(i+1) - 1)
		tinyfont.WriteLine(fb, o.font, 3, y+1, line, o.shadow)
		tinyfont.WriteLine(fb, o.font, 2, y, line, o.color)
	}
}
