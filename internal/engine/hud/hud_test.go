package hud

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/voxelray/internal/engine/frame"
	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
)

var white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

func countColor(fb *framebuffer.Framebuffer, c uint16, x0, y0, x1, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if fb.Pixel(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestDrawWritesTopLeft(t *testing.T) {
	fb := framebuffer.New(160, 120)
	fb.Fill(0x001F)

	o := New(white)
	o.Draw(fb, frame.Stats{Frames: 42, FPS: 60})

	assert.Positive(t, countColor(fb, 0xFFFF, 0, 0, 80, 20))
	assert.Zero(t, countColor(fb, 0xFFFF, 0, 60, 160, 120), "bottom half untouched")
}

func TestToggleHides(t *testing.T) {
	fb := framebuffer.New(64, 32)
	o := New(white)

	assert.False(t, o.Toggle())
	o.Draw(fb, frame.Stats{FPS: 1})
	assert.Zero(t, countColor(fb, 0xFFFF, 0, 0, 64, 32))
	assert.True(t, o.Toggle())
}

func TestLines(t *testing.T) {
	o := New(white)
	o.Label = func() []string { return []string{"RAYCAST"} }

	lines := o.Lines(frame.Stats{Frames: 9, FPS: 30, LastFrame: 1500 * time.Microsecond})
	assert.Equal(t, []string{"FPS 30", "FRAME 9", "1.5MS", "RAYCAST"}, lines)
}

func TestDrawClipsAtEdges(t *testing.T) {
	fb := framebuffer.New(4, 4)
	o := New(white)
	assert.NotPanics(t, func() { o.Draw(fb, frame.Stats{Frames: 123456}) })
}
