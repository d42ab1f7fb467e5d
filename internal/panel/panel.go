// Package panel mirrors the display onto an addressable LED matrix. The
// front buffer is sampled down to the matrix size and written as one LED
// strip through a periph display.Drawer: an nrzled chain on SPI, or the
// ANSI terminal emulator when no SPI port is available.
package panel

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/logger"
	"github.com/Faultbox/voxelray/internal/palette"
)

// Drivers accepted by Open.
const (
	DriverSPI      = "spi"
	DriverTerminal = "terminal"
)

// ErrBadLayout is returned for a matrix without LEDs.
var ErrBadLayout = errors.New("panel layout must have at least one LED")

// Layout describes how LEDs are chained.
type Layout struct {
	Width  int
	Height int
	// Serpentine chains alternate rows right to left.
	Serpentine bool
}

// Count returns the number of LEDs.
func (l Layout) Count() int { return l.Width * l.Height }

// Index returns the position along the strip of the LED at column x, row y.
func (l Layout) Index(x, y int) int {
	if l.Serpentine && y%2 == 1 {
		x = l.Width - 1 - x
	}
	return y*l.Width + x
}

// Config selects and configures the output device.
type Config struct {
	Layout
	Driver  string
	SPIPort string
	FreqKHz int
}

// Panel is a display presenter for an LED matrix.
type Panel struct {
	drawer display.Drawer
	layout Layout
	strip  *image.NRGBA
	port   spi.PortCloser
	log    *zap.Logger
}

// New wraps an already opened drawer. Its bounds should be Count() x 1.
func New(d display.Drawer, l Layout) (*Panel, error) {
	if l.Count() <= 0 {
		return nil, ErrBadLayout
	}
	return &Panel{
		drawer: d,
		layout: l,
		strip:  image.NewNRGBA(image.Rect(0, 0, l.Count(), 1)),
		log:    logger.Named("panel"),
	}, nil
}

// Open initialises periph and opens the configured device. A failed SPI open
// falls back to the terminal.
func Open(cfg Config) (*Panel, error) {
	if cfg.Count() <= 0 {
		return nil, ErrBadLayout
	}
	if cfg.Driver == DriverTerminal {
		return New(screen.New(cfg.Count()), cfg.Layout)
	}
	if cfg.Driver != DriverSPI {
		return nil, fmt.Errorf("unknown panel driver %q", cfg.Driver)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		logger.Warn("no SPI port, drawing the panel in the terminal", zap.Error(err))
		return New(screen.New(cfg.Count()), cfg.Layout)
	}

	freq := physic.Frequency(cfg.FreqKHz) * physic.KiloHertz
	if freq <= 0 {
		freq = 800 * physic.KiloHertz
	}
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: cfg.Count(),
		Channels:  3,
		Freq:      freq,
	})
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	if err := dev.Halt(); err != nil {
		logger.Warn("panel halt failed", zap.Error(err))
	}

	p, err := New(dev, cfg.Layout)
	if err != nil {
		port.Close()
		return nil, err
	}
	p.port = port
	p.log.Info("panel opened",
		zap.String("port", port.String()),
		zap.Int("leds", cfg.Count()),
		zap.Stringer("freq", freq),
	)
	return p, nil
}

// Sample fills strip with fb downscaled to the layout by nearest-neighbour
// sampling at cell centres.
func Sample(strip *image.NRGBA, fb *framebuffer.Framebuffer, l Layout) {
	fw, fh := fb.Width(), fb.Height()
	for y := 0; y < l.Height; y++ {
		sy := (2*y + 1) * fh / (2 * l.Height)
		for x := 0; x < l.Width; x++ {
			sx := (2*x + 1) * fw / (2 * l.Width)
			c := palette.ToRGBA(fb.Pixel(sx, sy))
			strip.SetNRGBA(l.Index(x, y), 0, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xFF})
		}
	}
}

// Present implements device.Presenter.
func (p *Panel) Present(front *framebuffer.Framebuffer) error {
	Sample(p.strip, front, p.layout)
	return p.drawer.Draw(p.drawer.Bounds(), p.strip, image.Point{})
}

// Close blanks the LEDs and releases the port.
func (p *Panel) Close() error {
	err := p.drawer.Halt()
	if p.port != nil {
		err = errors.Join(err, p.port.Close())
	}
	return err
}
