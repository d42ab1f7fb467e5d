// Package palette holds the fixed RGB565 color table indexed by voxel values.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Size is the number of palette entries the coprocessor accepts.
const Size = 128

// Reserved palette indices.
const (
	Empty uint8 = 0 // no voxel
	White uint8 = 1
)

// Palette errors.
var (
	ErrIndexOutOfRange = errors.New("palette index out of range")
	ErrReservedIndex   = errors.New("palette index 0 is reserved for empty")
	ErrInvalidColor    = errors.New("invalid color")
)

// RGB565 packs 8-bit channels into a 16-bit 5-6-5 color.
func RGB565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// ToRGBA expands a 5-6-5 color to 8-bit channels.
func ToRGBA(c uint16) color.RGBA {
	r := (c >> 11) & 0x1F
	g := (c >> 5) & 0x3F
	b := c & 0x1F
	return color.RGBA{
		R: uint8(uint32(r) * 255 / 31),
		G: uint8(uint32(g) * 255 / 63),
		B: uint8(uint32(b) * 255 / 31),
		A: 0xFF,
	}
}

// FromColor converts any color to 5-6-5.
func FromColor(c color.Color) uint16 {
	r, g, b, _ := c.RGBA()
	return RGB565(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// ParseColor accepts "#rrggbb" or a raw 16-bit value ("0xF800", "63488").
func ParseColor(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		if len(s) != 7 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		return RGB565(uint8(v>>16), uint8(v>>8), uint8(v)), nil
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return uint16(v), nil
}

// Palette maps voxel palette indices to RGB565 colors.
// Loaded once per session; entry 0 is always black and never drawn.
type Palette struct {
	colors [Size]uint16
}

// New returns a palette with every entry black.
func New() *Palette {
	return &Palette{}
}

// Default returns the startup palette: white at index 1 followed by a hue
// ramp at full and half brightness.
func Default() *Palette {
	p := New()
	p.colors[White] = 0xFFFF
	const ramp = (Size - 2) / 2
	for i := 0; i < ramp; i++ {
		r, g, b := hue(float32(i) / ramp)
		p.colors[2+i] = RGB565(r, g, b)
		p.colors[2+ramp+i] = RGB565(r/2, g/2, b/2)
	}
	return p
}

// hue converts h in [0,1) to a saturated RGB color.
func hue(h float32) (r, g, b uint8) {
	h6 := h * 6
	sector := int(h6)
	f := h6 - float32(sector)
	up := uint8(f * 255)
	down := 255 - up
	switch sector % 6 {
	case 0:
		return 255, up, 0
	case 1:
		return down, 255, 0
	case 2:
		return 0, 255, up
	case 3:
		return 0, down, 255
	case 4:
		return up, 0, 255
	default:
		return 255, 0, down
	}
}

// Set assigns a color to a palette index.
func (p *Palette) Set(index uint8, c uint16) error {
	if int(index) >= Size {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if index == Empty {
		return ErrReservedIndex
	}
	p.colors[index] = c
	return nil
}

// Color returns the color for index. Out-of-range indices return black.
func (p *Palette) Color(index uint8) uint16 {
	if int(index) >= Size {
		return 0
	}
	return p.colors[index]
}

// Entries returns a copy of the table in upload order.
func (p *Palette) Entries() []uint16 {
	out := make([]uint16, Size)
	copy(out, p.colors[:])
	return out
}

// Bytes returns the table as little-endian 16-bit words, two bytes per entry.
func (p *Palette) Bytes() []byte {
	out := make([]byte, Size*2)
	for i, c := range p.colors {
		out[2*i] = byte(c)
		out[2*i+1] = byte(c >> 8)
	}
	return out
}
