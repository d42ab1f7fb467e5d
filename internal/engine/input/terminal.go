package input

import (
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// TerminalKeys feeds key presses typed into a raw-mode terminal to an Input.
// Terminals report no key releases and no modifiers, so Shift is bound to
// 'c' and only EventKeyDown is produced.
//
//	w a s d   move        space / c   up / down
//	arrows    rotate      tab         next rasterizer
//	p         screenshot  q, esc, ^C  quit
type TerminalKeys struct {
	in       io.Reader
	fd       int
	oldState *term.State
	once     sync.Once
}

// NewTerminalKeys puts f into raw mode when it is a terminal. Other readers
// are consumed as-is.
func NewTerminalKeys(f *os.File) (*TerminalKeys, error) {
	t := &TerminalKeys{in: f, fd: int(f.Fd())}
	if term.IsTerminal(t.fd) {
		state, err := term.MakeRaw(t.fd)
		if err != nil {
			return nil, err
		}
		t.oldState = state
	}
	return t, nil
}

// Run pushes decoded keys to dst until ctx is done or the reader fails.
// A blocked read is only abandoned on the next byte or on Close.
func (t *TerminalKeys) Run(ctx context.Context, dst *Input) error {
	buf := make([]byte, 64)
	var carry []byte
	for {
		n, err := t.in.Read(buf)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if n > 0 {
			var events []Event
			events, carry = ParseKeys(append(carry, buf[:n]...))
			for _, e := range events {
				dst.Push(e)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// Close restores the terminal state.
func (t *TerminalKeys) Close() error {
	var err error
	t.once.Do(func() {
		if t.oldState != nil {
			err = term.Restore(t.fd, t.oldState)
		}
	})
	return err
}

var byteKeys = map[byte]Key{
	'w': KeyW, 'W': KeyW,
	'a': KeyA, 'A': KeyA,
	's': KeyS, 'S': KeyS,
	'd': KeyD, 'D': KeyD,
	' ': KeySpace,
	'c': KeyShift, 'C': KeyShift,
	'\t': KeyTab,
	'p': KeyP, 'P': KeyP,
	'h': KeyH, 'H': KeyH,
}

var arrowKeys = map[byte]Key{
	'A': KeyUp,
	'B': KeyDown,
	'C': KeyRight,
	'D': KeyLeft,
}

const (
	esc   = 0x1b
	ctrlC = 0x03
)

// ParseKeys decodes raw terminal bytes. An incomplete escape sequence at the
// end of data is returned as rest to be prefixed to the next read.
func ParseKeys(data []byte) (events []Event, rest []byte) {
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch {
		case b == ctrlC || b == 'q' || b == 'Q':
			events = append(events, Event{Type: EventQuit})
		case b == esc:
			if i+1 >= len(data) {
				return events, append([]byte(nil), data[i:]...)
			}
			if data[i+1] != '[' {
				events = append(events, Event{Type: EventKeyDown, Key: KeyEscape})
				continue
			}
			if i+2 >= len(data) {
				return events, append([]byte(nil), data[i:]...)
			}
			if k, ok := arrowKeys[data[i+2]]; ok {
				events = append(events, Event{Type: EventKeyDown, Key: k})
			}
			i += 2
		default:
			if k, ok := byteKeys[b]; ok {
				events = append(events, Event{Type: EventKeyDown, Key: k})
			}
		}
	}
	return events, nil
}
