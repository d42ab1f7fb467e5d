package device

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"

	"github.com/Faultbox/voxelray/internal/engine/camera"
	"github.com/Faultbox/voxelray/pkg/math"
)

// RegisterFormat selects how camera values are packed into 32-bit words.
type RegisterFormat int

const (
	// FormatFloat stores raw IEEE-754 float32 bits.
	FormatFloat RegisterFormat = iota
	// FormatFixed stores Q8.8 values sign-extended to 32 bits.
	FormatFixed
)

func (f RegisterFormat) String() string {
	switch f {
	case FormatFloat:
		return "float"
	case FormatFixed:
		return "fixed"
	}
	return fmt.Sprintf("RegisterFormat(%d)", int(f))
}

// ParseRegisterFormat accepts "float" or "fixed".
func ParseRegisterFormat(s string) (RegisterFormat, error) {
	switch strings.ToLower(s) {
	case "", "float":
		return FormatFloat, nil
	case "fixed":
		return FormatFixed, nil
	}
	return 0, fmt.Errorf("unknown register format %q", s)
}

// CameraRegCount is the number of camera register words: the eye position
// followed by the top-left, top-right, bottom-left and bottom-right rays.
const CameraRegCount = 15

// CameraRegs is the camera register block.
type CameraRegs struct {
	Format RegisterFormat
	Words  [CameraRegCount]uint32
}

// EncodeCamera packs the view's position and corner rays.
func EncodeCamera(view camera.View, format RegisterFormat) CameraRegs {
	regs := CameraRegs{Format: format}
	vecs := [5]math.Vec3{
		view.Pos,
		view.Corners[camera.TopLeft],
		view.Corners[camera.TopRight],
		view.Corners[camera.BottomLeft],
		view.Corners[camera.BottomRight],
	}
	for i, v := range vecs {
		for axis := 0; axis < 3; axis++ {
			regs.Words[i*3+axis] = encodeWord(v.Axis(axis), format)
		}
	}
	return regs
}

// DecodeCamera unpacks the register block into a view for a w x h raster.
func DecodeCamera(regs CameraRegs, w, h int) camera.View {
	var vecs [5]math.Vec3
	for i := range vecs {
		vecs[i] = math.Vec3{
			X: decodeWord(regs.Words[i*3], regs.Format),
			Y: decodeWord(regs.Words[i*3+1], regs.Format),
			Z: decodeWord(regs.Words[i*3+2], regs.Format),
		}
	}
	corners := [4]math.Vec3{vecs[1], vecs[2], vecs[3], vecs[4]}
	return camera.ViewFromCorners(vecs[0], corners, w, h)
}

func encodeWord(f float32, format RegisterFormat) uint32 {
	if format == FormatFixed {
		return uint32(int32(math.FloatToFixed(f)))
	}
	return math32.Float32bits(f)
}

func decodeWord(w uint32, format RegisterFormat) float32 {
	if format == FormatFixed {
		return math.Fixed88(int16(w)).Float()
	}
	return math32.Float32frombits(w)
}

// Control word bits.
const (
	ControlStart uint32 = 1 << 0
)

// Status is the coprocessor status word.
type Status uint32

// Status bits.
const (
	StatusBusy Status = 1 << iota
	StatusDone
	StatusError
)

// EncodeStatus builds a status word from its flags.
func EncodeStatus(busy, done, failed bool) Status {
	var s Status
	if busy {
		s |= StatusBusy
	}
	if done {
		s |= StatusDone
	}
	if failed {
		s |= StatusError
	}
	return s
}

// DecodeStatus splits a raw status word into its flags.
func DecodeStatus(w uint32) (busy, done, failed bool) {
	s := Status(w)
	return s.Busy(), s.Done(), s.Failed()
}

// Busy reports whether a render is in progress.
func (s Status) Busy() bool { return s&StatusBusy != 0 }

// Done reports whether the last render finished.
func (s Status) Done() bool { return s&StatusDone != 0 }

// Failed reports whether the last render was rejected.
func (s Status) Failed() bool { return s&StatusError != 0 }

func (s Status) String() string {
	var parts []string
	if s.Busy() {
		parts = append(parts, "busy")
	}
	if s.Done() {
		parts = append(parts, "done")
	}
	if s.Failed() {
		parts = append(parts, "error")
	}
	if len(parts) == 0 {
		return "idle"
	}
	return strings.Join(parts, "|")
}
