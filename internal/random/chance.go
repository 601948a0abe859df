package random

import (
	"errors"
	"math"
)

var ErrInvalidProb = errors.New("invalid probability p; must be 0..1")

// Chance rolls a Bernoulli trial under p: 0 never hits, 1 always does,
// anything between hits when src.Float64() < p. NaN and values outside
// [0,1] (infinities included) are rejected.
func Chance(p float64, src Source) (bool, error) {
	switch {
	case math.IsNaN(p) || p < 0 || p > 1:
		return false, ErrInvalidProb
	case p == 0:
		return false, nil
	case p == 1:
		return true, nil
	}
	if src == nil {
		src = Default()
	}
	return src.Float64() < p, nil
}

// Intn returns a uniform int in [0, n). n <= 0 returns 0.
func Intn(n int, src Source) int {
	if n <= 0 {
		return 0
	}
	if src == nil {
		src = Default()
	}
	v := int(src.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}
