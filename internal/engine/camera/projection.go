package camera

import "github.com/chewxy/math32"

// DefaultAspect is the 4:3 ratio of the 320x240 raster.
const DefaultAspect = float32(4.0 / 3.0)

// Projection holds the near clip plane half-extents derived from the field of
// view and focal length.
type Projection struct {
	Focal  float32
	Aspect float32
	ClipX  float32
	ClipY  float32

	fov     float32
	tanHalf float32
	cached  bool
}

// NewProjection returns a projection for the given settings. A non-positive
// aspect uses DefaultAspect.
func NewProjection(fovDegrees, focal, aspect float32) *Projection {
	if aspect <= 0 {
		aspect = DefaultAspect
	}
	p := &Projection{Aspect: aspect}
	p.Set(fovDegrees, focal)
	return p
}

// Set recomputes the clip extents. The tangent is reused while the field of
// view is unchanged.
func (p *Projection) Set(fovDegrees, focal float32) {
	if !p.cached || fovDegrees != p.fov {
		p.tanHalf = math32.Tan(fovDegrees / 2 * math32.Pi / 180)
		p.fov = fovDegrees
		p.cached = true
	}
	p.Focal = focal
	p.ClipX = p.tanHalf * focal
	p.ClipY = p.ClipX / p.Aspect
}

// FOV returns the field of view in degrees.
func (p *Projection) FOV() float32 { return p.fov }
