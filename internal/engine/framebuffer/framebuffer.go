// Package framebuffer provides the RGB565 raster the voxel renderers draw into.
package framebuffer

import (
	"image"
	"image/color"

	"github.com/Faultbox/voxelray/internal/palette"
)

// Default raster size.
const (
	DefaultWidth  = 320
	DefaultHeight = 240
)

// Framebuffer is a row-major grid of 16-bit 5-6-5 pixels.
//
// It implements image.Image for export and presentation, and the tinygo
// drivers.Displayer interface so text can be drawn onto it.
type Framebuffer struct {
	width  int
	height int
	Pix    []uint16
}

// New creates a framebuffer with the specified dimensions.
func New(width, height int) *Framebuffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Framebuffer{
		width:  width,
		height: height,
		Pix:    make([]uint16, width*height),
	}
}

// Width returns the raster width.
func (fb *Framebuffer) Width() int { return fb.width }

// Height returns the raster height.
func (fb *Framebuffer) Height() int { return fb.height }

// Set writes c at (x, y). Writes outside the raster are dropped and report
// false.
func (fb *Framebuffer) Set(x, y int, c uint16) bool {
	if x < 0 || y < 0 || x >= fb.width || y >= fb.height {
		return false
	}
	fb.Pix[y*fb.width+x] = c
	return true
}

// Pixel returns the 5-6-5 value at (x, y), or 0 outside the raster.
func (fb *Framebuffer) Pixel(x, y int) uint16 {
	if x < 0 || y < 0 || x >= fb.width || y >= fb.height {
		return 0
	}
	return fb.Pix[y*fb.width+x]
}

// Fill sets every pixel to c.
func (fb *Framebuffer) Fill(c uint16) {
	if c == 0 {
		clear(fb.Pix)
		return
	}
	for i := range fb.Pix {
		fb.Pix[i] = c
	}
}

// CopyFrom copies src into fb. Sizes must match; otherwise the overlapping
// region is copied.
func (fb *Framebuffer) CopyFrom(src *Framebuffer) {
	if src.width == fb.width && src.height == fb.height {
		copy(fb.Pix, src.Pix)
		return
	}
	w := min(fb.width, src.width)
	h := min(fb.height, src.height)
	for y := 0; y < h; y++ {
		copy(fb.Pix[y*fb.width:y*fb.width+w], src.Pix[y*src.width:y*src.width+w])
	}
}

// ColorModel implements image.Image.
func (fb *Framebuffer) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (fb *Framebuffer) Bounds() image.Rectangle { return image.Rect(0, 0, fb.width, fb.height) }

// At implements image.Image.
func (fb *Framebuffer) At(x, y int) color.Color {
	return palette.ToRGBA(fb.Pixel(x, y))
}

// Size implements drivers.Displayer.
func (fb *Framebuffer) Size() (x, y int16) {
	return int16(fb.width), int16(fb.height)
}

// SetPixel implements drivers.Displayer.
func (fb *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	fb.Set(int(x), int(y), palette.RGB565(c.R, c.G, c.B))
}

// Display implements drivers.Displayer. Pixels are already in place, so
// there is nothing to flush.
func (fb *Framebuffer) Display() error { return nil }

// Bytes returns the raster as little-endian 16-bit words.
func (fb *Framebuffer) Bytes() []byte {
	out := make([]byte, len(fb.Pix)*2)
	for i, c := range fb.Pix {
		out[2*i] = byte(c)
		out[2*i+1] = byte(c >> 8)
	}
	return out
}
