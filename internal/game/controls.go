package game

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelray/internal/config"
	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/internal/engine/input"
)

// Controls maps input events onto camera motion. Every KeyDown moves or
// turns the camera by one step; held keys repeat through auto-repeat.
type Controls struct {
	// MoveSpeed is the translation per key press in voxel units.
	MoveSpeed float32
	// Sensitivity converts pointer counts to degrees.
	Sensitivity float32
	// RotateStep is the arrow key rotation in radians.
	RotateStep float32
}

// NewControls reads the camera bindings from config.
func NewControls(cfg config.CameraConfig) Controls {
	return Controls{
		MoveSpeed:   cfg.MoveSpeed,
		Sensitivity: cfg.MouseSensitivity,
		RotateStep:  cfg.RotateStepDegrees * math32.Pi / 180,
	}
}

var moveKeys = map[input.Key]camera.Direction{
	input.KeyW:     camera.Forward,
	input.KeyS:     camera.Backward,
	input.KeyA:     camera.Left,
	input.KeyD:     camera.Right,
	input.KeySpace: camera.Up,
	input.KeyShift: camera.Down,
}

// Apply updates cam for one event and reports whether it changed.
func (c Controls) Apply(cam *camera.Camera, e input.Event) bool {
	switch e.Type {
	case input.EventKeyDown:
		if dir, ok := moveKeys[e.Key]; ok {
			cam.Translate(dir, c.MoveSpeed)
			return true
		}
		// Left/right tilt about the right axis, up/down turn about up.
		switch e.Key {
		case input.KeyLeft:
			cam.RotateVertical(c.RotateStep)
		case input.KeyRight:
			cam.RotateVertical(-c.RotateStep)
		case input.KeyUp:
			cam.RotateHorizontal(c.RotateStep)
		case input.KeyDown:
			cam.RotateHorizontal(-c.RotateStep)
		default:
			return false
		}
		return true

	case input.EventMouseMove:
		if e.DX == 0 && e.DY == 0 {
			return false
		}
		if e.DX != 0 {
			cam.RotateHorizontal(c.pointerAngle(e.DX))
		}
		if e.DY != 0 {
			cam.RotateVertical(c.pointerAngle(e.DY))
		}
		return true
	}
	return false
}

func (c Controls) pointerAngle(counts int) float32 {
	return c.Sensitivity * float32(counts) * math32.Pi / 180
}
