package math

import "github.com/chewxy/math32"

// rsqrtMagic is the bit-level seed constant for the fast inverse square root.
const rsqrtMagic = 0x5f3759df

// InvSqrt approximates 1/sqrt(x) with a bit-level seed and exactly one
// Newton-Raphson step. Relative error stays below 0.2% for positive x.
func InvSqrt(x float32) float32 {
	half := x * 0.5
	i := math32.Float32bits(x)
	i = rsqrtMagic - i>>1
	y := math32.Float32frombits(i)
	return y * (1.5 - half*y*y)
}

// Sqrt approximates sqrt(x) through InvSqrt. Non-positive input yields 0.
func Sqrt(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return x * InvSqrt(x)
}
