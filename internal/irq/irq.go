// Package irq dispatches asynchronous completion signals to registered
// handlers, standing in for the SoC's interrupt controller.
//
// Handlers never nest: while one is running, further raises are latched and
// delivered in order once it returns. Raises that arrive before Enable or
// while the dispatcher is masked are latched the same way.
package irq

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelray/internal/logger"
)

// Well-known sources.
const (
	SourceGPU   Source = 16
	SourceTimer Source = 29
)

// MaxHandlers is the size of the handler table.
const MaxHandlers = 32

var (
	ErrUnknownSource = errors.New("irq: no handler for source")
	ErrTableFull     = errors.New("irq: handler table full")
)

// Source identifies an interrupt line.
type Source int

// Handler is an interrupt callback.
type Handler func()

type entry struct {
	src      Source
	onEnable Handler
	onFire   Handler
}

// Dispatcher routes raised sources to their handlers.
type Dispatcher struct {
	mu       sync.Mutex
	table    []entry
	enabled  bool
	masked   int
	running  bool
	pending  []Source
	latched  map[Source]bool
	fired    map[Source]uint64
	fireDone *sync.Cond
}

// NewDispatcher creates an empty, disabled dispatcher.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		latched: make(map[Source]bool),
		fired:   make(map[Source]uint64),
	}
	d.fireDone = sync.NewCond(&d.mu)
	return d
}

// Register adds a handler for src. onEnable runs once from Enable; onFire
// runs on every delivered raise. Either may be nil. Several handlers may
// share a source and run in registration order.
func (d *Dispatcher) Register(src Source, onEnable, onFire Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.table) >= MaxHandlers {
		return fmt.Errorf("%w: %d entries", ErrTableFull, MaxHandlers)
	}
	d.table = append(d.table, entry{src: src, onEnable: onEnable, onFire: onFire})
	return nil
}

// Enable runs every onEnable callback, then starts delivery, including any
// raises latched so far.
func (d *Dispatcher) Enable() {
	d.mu.Lock()
	if d.enabled {
		d.mu.Unlock()
		return
	}
	table := append([]entry(nil), d.table...)
	d.mu.Unlock()

	for _, e := range table {
		if e.onEnable != nil {
			e.onEnable()
		}
	}

	d.mu.Lock()
	d.enabled = true
	d.mu.Unlock()
	logger.Debug("interrupts enabled", zap.Int("handlers", len(table)))
	d.kick()
}

// Raise signals src. It is safe to call from any goroutine, including from
// inside a handler.
func (d *Dispatcher) Raise(src Source) error {
	d.mu.Lock()
	if !d.known(src) {
		d.mu.Unlock()
		logger.Error("interrupt from unregistered source", zap.Int("source", int(src)))
		return fmt.Errorf("%w %d", ErrUnknownSource, src)
	}
	if !d.latched[src] {
		d.latched[src] = true
		d.pending = append(d.pending, src)
	}
	d.mu.Unlock()

	d.kick()
	return nil
}

// Mask defers delivery until the matching Unmask. Calls nest.
func (d *Dispatcher) Mask() {
	d.mu.Lock()
	d.masked++
	d.mu.Unlock()
}

// Unmask undoes one Mask and delivers latched raises once fully unmasked.
func (d *Dispatcher) Unmask() {
	d.mu.Lock()
	if d.masked > 0 {
		d.masked--
	}
	d.mu.Unlock()
	d.kick()
}

// Masked runs fn with delivery deferred.
func (d *Dispatcher) Masked(fn func()) {
	d.Mask()
	defer d.Unmask()
	fn()
}

// Pending returns the number of latched, undelivered raises.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Fired returns how many times src has been delivered.
func (d *Dispatcher) Fired(src Source) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired[src]
}

// Wait blocks until no handler is running and nothing deliverable is
// pending.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.running || (d.deliverable() && len(d.pending) > 0) {
		d.fireDone.Wait()
	}
}

func (d *Dispatcher) known(src Source) bool {
	for _, e := range d.table {
		if e.src == src {
			return true
		}
	}
	return false
}

func (d *Dispatcher) deliverable() bool {
	return d.enabled && d.masked == 0
}

// kick starts draining on the calling goroutine unless a drain is already
// running elsewhere.
func (d *Dispatcher) kick() {
	d.mu.Lock()
	if d.running || !d.deliverable() || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()
	d.drain()
}

func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		if !d.deliverable() || len(d.pending) == 0 {
			d.running = false
			d.fireDone.Broadcast()
			d.mu.Unlock()
			return
		}
		src := d.pending[0]
		d.pending = d.pending[1:]
		delete(d.latched, src)
		d.fired[src]++

		var handlers []Handler
		for _, e := range d.table {
			if e.src == src && e.onFire != nil {
				handlers = append(handlers, e.onFire)
			}
		}
		d.mu.Unlock()

		for _, h := range handlers {
			h()
		}
	}
}
