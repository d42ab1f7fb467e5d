package game

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/voxelray/internal/config"
	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/input"
	"github.com/Faultbox/voxelray/pkg/math"
)

const eps = 5e-3

func testControls() Controls {
	return NewControls(config.CameraConfig{
		MoveSpeed:         4,
		MouseSensitivity:  0.5,
		RotateStepDegrees: 30,
	})
}

func keyDown(k input.Key) input.Event {
	return input.Event{Type: input.EventKeyDown, Key: k}
}

func TestNewControls(t *testing.T) {
	c := testControls()
	assert.Equal(t, float32(4), c.MoveSpeed)
	assert.InDelta(t, math32.Pi/6, c.RotateStep, 1e-6)
}

func TestControlsTranslate(t *testing.T) {
	tests := []struct {
		key  input.Key
		want math.Vec3
	}{
		{input.KeyW, math.Vec3{Z: 252}},
		{input.KeyS, math.Vec3{Z: 260}},
		{input.KeyA, math.Vec3{X: -4, Z: 256}},
		{input.KeyD, math.Vec3{X: 4, Z: 256}},
		{input.KeySpace, math.Vec3{Y: 4, Z: 256}},
		{input.KeyShift, math.Vec3{Y: -4, Z: 256}},
	}
	c := testControls()
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			cam := camera.Default()
			assert.True(t, c.Apply(&cam, keyDown(tt.key)))
			assert.InDelta(t, tt.want.X, cam.Pos.X, eps)
			assert.InDelta(t, tt.want.Y, cam.Pos.Y, eps)
			assert.InDelta(t, tt.want.Z, cam.Pos.Z, eps)
		})
	}
}

func TestControlsArrowsRotate(t *testing.T) {
	c := testControls()

	// Up/down turn about the up axis: look leaves the YZ plane, y stays 0.
	cam := camera.Default()
	assert.True(t, c.Apply(&cam, keyDown(input.KeyUp)))
	assert.InDelta(t, 0.5, math32.Abs(cam.Look.X), eps)
	assert.InDelta(t, 0, cam.Look.Y, eps)
	assert.Equal(t, math.Vec3{Z: 256}, cam.Pos, "rotation must not move the camera")

	c.Apply(&cam, keyDown(input.KeyDown))
	assert.InDelta(t, 0, cam.Look.X, eps)
	assert.InDelta(t, -1, cam.Look.Z, eps)

	// Left/right tilt about the right axis: look leaves the XZ plane.
	cam = camera.Default()
	assert.True(t, c.Apply(&cam, keyDown(input.KeyLeft)))
	assert.InDelta(t, 0.5, math32.Abs(cam.Look.Y), eps)
	assert.InDelta(t, 0, cam.Look.X, eps)
	assert.InDelta(t, 0, cam.Look.Dot(cam.Up), eps)

	c.Apply(&cam, keyDown(input.KeyRight))
	assert.InDelta(t, 0, cam.Look.Y, eps)
	assert.InDelta(t, 1, cam.Up.Y, eps)
}

func TestControlsPointer(t *testing.T) {
	c := testControls()
	cam := camera.Default()

	// 60 counts at 0.5 degrees per count is 30 degrees.
	assert.True(t, c.Apply(&cam, input.Event{Type: input.EventMouseMove, DX: 60}))
	assert.InDelta(t, 0.5, math32.Abs(cam.Look.X), eps)
	assert.InDelta(t, 0, cam.Look.Y, eps)

	cam = camera.Default()
	c.Apply(&cam, input.Event{Type: input.EventMouseMove, DY: 60})
	assert.InDelta(t, 0.5, math32.Abs(cam.Look.Y), eps)

	assert.False(t, c.Apply(&cam, input.Event{Type: input.EventMouseMove}))
}

func TestControlsIgnoresOtherEvents(t *testing.T) {
	c := testControls()
	cam := camera.Default()
	for _, e := range []input.Event{
		{Type: input.EventKeyUp, Key: input.KeyW},
		keyDown(input.KeyTab),
		keyDown(input.KeyP),
		{Type: input.EventWindowResize, Width: 10, Height: 10},
	} {
		assert.False(t, c.Apply(&cam, e))
	}
	assert.Equal(t, camera.Default(), cam)
}
