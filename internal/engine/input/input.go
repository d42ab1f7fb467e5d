// Package input collects keyboard and pointer events from the window or the
// terminal into one queue.
package input

import "sync"

// EventType identifies an input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
)

// Key is a backend-neutral key code.
type Key int

const (
	KeyNone Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeySpace
	KeyShift
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEscape
	KeyTab // cycle rasterizer
	KeyP   // screenshot
	KeyH   // toggle overlay
)

var keyNames = [...]string{
	KeyNone:   "none",
	KeyW:      "w",
	KeyA:      "a",
	KeyS:      "s",
	KeyD:      "d",
	KeySpace:  "space",
	KeyShift:  "shift",
	KeyUp:     "up",
	KeyDown:   "down",
	KeyLeft:   "left",
	KeyRight:  "right",
	KeyEscape: "escape",
	KeyTab:    "tab",
	KeyP:      "p",
	KeyH:      "h",
}

func (k Key) String() string {
	if k >= 0 && int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "unknown"
}

// Repeats reports whether auto-repeat should deliver further KeyDown events
// while k is held. Movement and rotation keys repeat; toggles do not.
func (k Key) Repeats() bool {
	switch k {
	case KeyW, KeyA, KeyS, KeyD, KeySpace, KeyShift, KeyUp, KeyDown, KeyLeft, KeyRight:
		return true
	}
	return false
}

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    Key
	Width  int
	Height int
	MouseX int
	MouseY int
	// DX and DY are relative pointer motion in device counts.
	DX     int
	DY     int
	Button uint8
}

// Input queues events between the producers and the frame loop. Push may be
// called from any goroutine.
type Input struct {
	mu      sync.Mutex
	pending []Event
	events  []Event
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		pending: make([]Event, 0, 16),
		events:  make([]Event, 0, 16),
	}
}

// Push queues an event for the next Update.
func (i *Input) Push(e Event) {
	i.mu.Lock()
	i.pending = append(i.pending, e)
	i.mu.Unlock()
}

// Update moves queued events into the current set.
// Returns true if a quit was requested.
func (i *Input) Update() bool {
	i.mu.Lock()
	i.events, i.pending = i.pending, i.events[:0]
	i.mu.Unlock()

	for _, e := range i.events {
		if e.Type == EventQuit {
			return true
		}
	}
	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(k Key) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == k {
			return true
		}
	}
	return false
}
