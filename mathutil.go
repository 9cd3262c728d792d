package tensorviz

import (
	"math"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
)

// Min returns the smallest of the given values.
func Min[T constraints.Ordered](values ...T) T {
	var acc T = values[0]

	for _, v := range values {
		if v < acc {
			acc = v
		}
	}
	return acc
}

// Max returns the biggest of the given values.
func Max[T constraints.Ordered](values ...T) T {
	var acc T = values[0]

	for _, v := range values {
		if v > acc {
			acc = v
		}
	}
	return acc
}

// Clamp restricts v to the closed interval [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// finite maps NaN and ±Inf to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// spow is the signed power sign(x)·|x|^e. The sign is kept because the
// superquadric exponents are fractional.
func spow(x, e float64) float64 {
	v := math.Pow(math.Abs(x), e)
	if x < 0 {
		return -v
	}
	return v
}

// linspace returns n evenly spaced values over [lo, hi], both ends included.
func linspace(lo, hi float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{lo}
	}
	dst := floats.Span(make([]float64, n), lo, hi)
	// Span accumulates rounding error towards hi.
	dst[n-1] = hi
	return dst
}

// toUint8 converts a color channel in [0, 1] to a byte, truncating like a
// float to uint8 cast does.
func toUint8(v float64) uint8 {
	return uint8(Clamp(finite(v), 0, 1) * 255)
}
