package input

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(events []Event) []Key {
	var out []Key
	for _, e := range events {
		if e.Type == EventKeyDown {
			out = append(out, e.Key)
		}
	}
	return out
}

func TestParseKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Key
	}{
		{"movement", "wasd", []Key{KeyW, KeyA, KeyS, KeyD}},
		{"vertical", " c", []Key{KeySpace, KeyShift}},
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []Key{KeyUp, KeyDown, KeyRight, KeyLeft}},
		{"unknown bytes ignored", "xyz1", nil},
		{"escape then key", "\x1bw", []Key{KeyEscape, KeyW}},
		{"unknown csi dropped", "\x1b[Zw", []Key{KeyW}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, rest := ParseKeys([]byte(tt.in))
			assert.Equal(t, tt.want, keys(events))
			assert.Empty(t, rest)
		})
	}
}

func TestParseKeysSplitSequence(t *testing.T) {
	events, rest := ParseKeys([]byte("w\x1b["))
	assert.Equal(t, []Key{KeyW}, keys(events))
	assert.Equal(t, []byte("\x1b["), rest)

	events, rest = ParseKeys(append(rest, 'D'))
	assert.Equal(t, []Key{KeyLeft}, keys(events))
	assert.Empty(t, rest)
}

func TestParseKeysQuit(t *testing.T) {
	for _, in := range []string{"q", "Q", "\x03"} {
		events, _ := ParseKeys([]byte(in))
		require.Len(t, events, 1)
		assert.Equal(t, EventQuit, events[0].Type)
	}
}

func TestTerminalKeysRun(t *testing.T) {
	in := New()
	tk := &TerminalKeys{in: bytes.NewBufferString("w\x1b[Cq")}
	require.NoError(t, tk.Run(context.Background(), in))
	require.NoError(t, tk.Close())

	assert.True(t, in.Update())
	assert.True(t, in.IsKeyPressed(KeyW))
	assert.True(t, in.IsKeyPressed(KeyRight))
	assert.False(t, in.IsKeyPressed(KeyLeft))
}

func TestUpdateSwapsQueues(t *testing.T) {
	in := New()
	in.Push(Event{Type: EventKeyDown, Key: KeyA})
	assert.Empty(t, in.Events(), "events appear only after Update")

	assert.False(t, in.Update())
	assert.True(t, in.IsKeyPressed(KeyA))

	assert.False(t, in.Update())
	assert.Empty(t, in.Events())
}

func TestPushConcurrent(t *testing.T) {
	in := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				in.Push(Event{Type: EventMouseMove, DX: 1})
			}
		}()
	}
	wg.Wait()
	in.Update()
	assert.Len(t, in.Events(), 800)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "space", KeySpace.String())
	assert.Equal(t, "unknown", Key(99).String())
}
