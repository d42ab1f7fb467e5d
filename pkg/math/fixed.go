package math

import "github.com/chewxy/math32"

// Fixed88 is a signed Q8.8 fixed-point number: 8 integer bits, 8 fraction bits.
type Fixed88 int16

// FixedOne is 1.0 in Q8.8.
const FixedOne Fixed88 = 1 << 8

// FloatToFixed converts a float to Q8.8, saturating at the int16 range.
func FloatToFixed(a float32) Fixed88 {
	v := a * float32(FixedOne)
	switch {
	case math32.IsNaN(v):
		return 0
	case v >= 32767:
		return 32767
	case v <= -32768:
		return -32768
	}
	return Fixed88(int16(v))
}

// Float returns the value as float32.
func (f Fixed88) Float() float32 {
	return float32(f) / float32(FixedOne)
}

// Vec3Fixed is a Vec3 in Q8.8.
type Vec3Fixed struct {
	X, Y, Z Fixed88
}

// ToFixed converts v component-wise to Q8.8.
func (v Vec3) ToFixed() Vec3Fixed {
	return Vec3Fixed{FloatToFixed(v.X), FloatToFixed(v.Y), FloatToFixed(v.Z)}
}

// Float converts back to Vec3.
func (v Vec3Fixed) Float() Vec3 {
	return Vec3{v.X.Float(), v.Y.Float(), v.Z.Float()}
}
