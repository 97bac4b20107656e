package game

import "math"

// mod returns positive modulo (Go's % can return negative).
// The result is always in [0, b) even after rounding to float32.
func mod(a, b float32) float32 {
	if b <= 0 {
		return a
	}
	r := float32(math.Mod(math.Mod(float64(a), float64(b))+float64(b), float64(b)))
	if r >= b {
		return 0
	}
	return r
}
