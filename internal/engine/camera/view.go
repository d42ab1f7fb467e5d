package camera

import "github.com/Faultbox/voxelray/pkg/math"

// Corner indices into View.Corners.
const (
	TopLeft = iota
	TopRight
	BottomLeft
	BottomRight
)

// View is the immutable per-frame projection basis: the eye position and the
// four screen-corner rays, plus the camera frame they were built from.
type View struct {
	Pos     math.Vec3
	Corners [4]math.Vec3
	Width   int
	Height  int

	Look  math.Vec3
	Right math.Vec3
	Up    math.Vec3
	Focal float32
	ClipX float32
	ClipY float32

	stepX math.Vec3 // ray change per pixel to the right
	stepY math.Vec3 // ray change per pixel down
}

// NewView snapshots cam under projection p for a w x h raster.
func NewView(cam Camera, p *Projection, w, h int) View {
	fw, fh := float32(w), float32(h)
	v := View{
		Pos:    cam.Pos,
		Width:  w,
		Height: h,
		Look:   cam.Look,
		Right:  cam.Right,
		Up:     cam.Up,
		Focal:  p.Focal,
		ClipX:  p.ClipX,
		ClipY:  p.ClipY,
	}
	v.Corners[TopLeft] = cam.CornerRay(p, 0, 0, fw, fh)
	v.Corners[TopRight] = cam.CornerRay(p, fw, 0, fw, fh)
	v.Corners[BottomLeft] = cam.CornerRay(p, 0, fh, fw, fh)
	v.Corners[BottomRight] = cam.CornerRay(p, fw, fh, fw, fh)
	v.initSteps()
	return v
}

// ViewFromCorners rebuilds a view from the eye position and corner rays, the
// form the coprocessor receives through its camera registers.
func ViewFromCorners(pos math.Vec3, corners [4]math.Vec3, w, h int) View {
	v := View{Pos: pos, Corners: corners, Width: w, Height: h}

	center := corners[TopLeft].Add(corners[TopRight]).Add(corners[BottomLeft]).Add(corners[BottomRight]).Scale(0.25)
	v.Focal = center.Length()
	v.Look = center.Normalized()

	across := corners[TopRight].Sub(corners[TopLeft])
	v.ClipX = across.Length() / 2
	v.Right = across.Normalized()

	upward := corners[TopLeft].Sub(corners[BottomLeft])
	v.ClipY = upward.Length() / 2
	v.Up = upward.Normalized()

	v.initSteps()
	return v
}

func (v *View) initSteps() {
	if v.Width > 0 {
		v.stepX = v.Corners[TopRight].Sub(v.Corners[TopLeft]).Scale(1 / float32(v.Width))
	}
	if v.Height > 0 {
		v.stepY = v.Corners[BottomLeft].Sub(v.Corners[TopLeft]).Scale(1 / float32(v.Height))
	}
}

// PixelRay interpolates the corner rays at screen position (x, y). Pass
// x+0.5, y+0.5 for pixel centres. The result is not normalized.
func (v View) PixelRay(x, y float32) math.Vec3 {
	return v.Corners[TopLeft].Add(v.stepX.Scale(x)).Add(v.stepY.Scale(y))
}

// ToCamera returns p in camera space: x along Right, y along Up, z along Look.
func (v View) ToCamera(p math.Vec3) math.Vec3 {
	d := p.Sub(v.Pos)
	return math.Vec3{X: d.Dot(v.Right), Y: d.Dot(v.Up), Z: d.Dot(v.Look)}
}

// Project maps a world point to screen coordinates with a perspective
// divide. ok is false when the point is at or behind the near limit.
func (v View) Project(p math.Vec3, near float32) (screen math.Vec2, depth float32, ok bool) {
	c := v.ToCamera(p)
	if c.Z <= near || v.ClipX == 0 || v.ClipY == 0 {
		return math.Vec2{}, c.Z, false
	}
	sx := (c.X*v.Focal/v.ClipX/c.Z + 1) * float32(v.Width) / 2
	sy := (1 - c.Y*v.Focal/v.ClipY/c.Z) * float32(v.Height) / 2
	return math.Vec2{X: sx, Y: sy}, c.Z, true
}
