package tensorviz

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/spatial/r3"
)

// GlyphAxis selects which local axis carries the axis of symmetry of a
// superquadric glyph.
type GlyphAxis int

const (
	// AxisX is used when linear anisotropy dominates (cl >= cp): the glyph
	// is a rod around local x, which the transform sends to the major
	// eigenvector.
	AxisX GlyphAxis = iota
	// AxisZ is used when planar anisotropy dominates (cl < cp): the glyph
	// is a disk around local z, which the transform sends to the minor
	// eigenvector.
	AxisZ
)

func (a GlyphAxis) String() string {
	if a == AxisZ {
		return "z"
	}
	return "x"
}

// glyphColumnOrder maps local glyph axes x, y, z onto eigenvector columns
// 2, 1, 0 (major, medium, minor).
var glyphColumnOrder = [3]int{2, 1, 0}

// exponentSnap is the threshold under which 1-c is treated as zero.
const exponentSnap = 1e-15

// ShapeExponents returns the superquadric exponents alpha and beta for the
// anisotropy coefficients cl and cp, and the axis of symmetry.
func ShapeExponents(cl, cp, gamma float64) (alpha, beta float64, axis GlyphAxis) {
	cmin, cmax := math.Min(cl, cp), math.Max(cl, cp)
	axis = AxisX
	if cl < cp {
		axis = AxisZ
	}
	if 1-cmin >= exponentSnap {
		alpha = math.Pow(1-cmin, gamma)
	}
	if 1-cmax >= exponentSnap {
		beta = math.Pow(1-cmax, gamma)
	}
	return finite(alpha), finite(beta), axis
}

// SuperquadricVolume returns the volume enclosed by the unit superquadric
// with exponents alpha and beta (Barr, Graphics Gems III):
//
//	V = 2/3 · α · β · B(α/2, α/2) · B(β, β/2)
//
// A degenerate exponent gives 0.
func SuperquadricVolume(alpha, beta float64) float64 {
	v := 2. / 3. * alpha * beta * mathext.Beta(alpha/2, alpha/2) * mathext.Beta(beta, beta/2)
	return finite(v)
}

// superquadric evaluates the glyph surface at every (theta, phi) pair.
func superquadric(angles [][2]float64, alpha, beta float64, axis GlyphAxis, scale float64) []r3.Vec {
	pts := make([]r3.Vec, len(angles))
	for n, ang := range angles {
		st, ct := math.Sincos(ang[0])
		sp, cp := math.Sincos(ang[1])

		ring := spow(sp, beta)
		a := finite(spow(ct, alpha) * ring)
		b := finite(spow(st, alpha) * ring)
		c := finite(spow(cp, beta))

		p := r3.Vec{X: a, Y: b, Z: c}
		if axis == AxisX {
			p = r3.Vec{X: c, Y: -b, Z: a}
		}
		pts[n] = r3.Scale(scale, p)
	}
	return pts
}
