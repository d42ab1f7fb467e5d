package irq

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/Faultbox/voxelray/internal/logger"
)

// edgePoll bounds how long Run blocks on the pin before rechecking ctx.
const edgePoll = 100 * time.Millisecond

// GPIOLine raises a source whenever an edge arrives on a GPIO input, for a
// coprocessor whose completion signal is wired to a pin.
type GPIOLine struct {
	pin  gpio.PinIn
	edge gpio.Edge
	src  Source
	d    *Dispatcher
}

// NewGPIOLine configures pin as an input reporting edge and binds it to src.
func NewGPIOLine(pin gpio.PinIn, edge gpio.Edge, d *Dispatcher, src Source) (*GPIOLine, error) {
	if edge == gpio.NoEdge {
		edge = gpio.RisingEdge
	}
	if err := pin.In(gpio.PullDown, edge); err != nil {
		return nil, fmt.Errorf("configure %s: %w", pin, err)
	}
	return &GPIOLine{pin: pin, edge: edge, src: src, d: d}, nil
}

// OpenGPIOLine looks up a registered pin by name. The host drivers must
// already be initialised.
func OpenGPIOLine(name string, d *Dispatcher, src Source) (*GPIOLine, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return NewGPIOLine(p, gpio.RisingEdge, d, src)
}

// Run forwards edges to the dispatcher until ctx is done.
func (l *GPIOLine) Run(ctx context.Context) error {
	log := logger.Named("irq").With(zap.Stringer("pin", l.pin), zap.Int("source", int(l.src)))
	log.Debug("watching gpio line")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !l.pin.WaitForEdge(edgePoll) {
			continue
		}
		if err := l.d.Raise(l.src); err != nil {
			return err
		}
	}
}

// Close stops edge detection on the pin.
func (l *GPIOLine) Close() error {
	return l.pin.In(gpio.PullNoChange, gpio.NoEdge)
}
