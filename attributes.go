package tensorviz

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// RGB is an 8 bit per channel color.
type RGB [3]uint8

// Eigen holds the eigenvalues of a symmetric tensor in ascending order and
// the matching unit eigenvectors: Vectors[i] belongs to Values[i].
// Values are never negative.
type Eigen struct {
	Values  [3]float64
	Vectors [3]r3.Vec
}

// Major returns the eigenvector of the largest eigenvalue.
func (e Eigen) Major() r3.Vec { return e.Vectors[2] }

// identityEigen is used for tensors that cannot be factorized.
var identityEigen = Eigen{
	Vectors: [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}},
}

// Decompose computes the eigendecomposition of t using its lower triangle.
// Negative eigenvalues (numerical noise on positive semi-definite data) are
// set to zero. A tensor with non-finite entries decomposes to zero
// eigenvalues and the identity basis.
func Decompose(t Tensor) Eigen {
	sym := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j <= i; j++ {
			v := t.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return identityEigen
			}
			sym.SetSym(i, j, v)
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return identityEigen
	}
	var e Eigen
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)
	for i := 0; i < 3; i++ {
		e.Values[i] = math.Max(finite(vals[i]), 0)
		e.Vectors[i] = r3.Vec{
			X: finite(vecs.At(0, i)),
			Y: finite(vecs.At(1, i)),
			Z: finite(vecs.At(2, i)),
		}
	}
	return e
}

// FractionalAnisotropy returns the FA of three eigenvalues, clamped to [0, 1].
// All zero eigenvalues give 0.
func FractionalAnisotropy(l [3]float64) float64 {
	num := (l[0]-l[1])*(l[0]-l[1]) + (l[1]-l[2])*(l[1]-l[2]) + (l[2]-l[0])*(l[2]-l[0])
	den := 2 * (l[0]*l[0] + l[1]*l[1] + l[2]*l[2])
	if den == 0 {
		return 0
	}
	return Clamp(finite(math.Sqrt(num/den)), 0, 1)
}

// Attributes are the per tensor quantities used by glyphs and tensor lines.
type Attributes struct {
	Eigen
	Trace float64
	Det   float64
	// CL and CP are the linear and planar anisotropy coefficients.
	CL, CP float64
	FA     float64
	// Color is the absolute major eigenvector, desaturated and darkened
	// with decreasing FA.
	Color RGB
}

// ComputeAttributes decomposes t and derives its anisotropy measures.
func ComputeAttributes(t Tensor) Attributes {
	e := Decompose(t)
	l := e.Values
	a := Attributes{
		Eigen: e,
		Trace: l[0] + l[1] + l[2],
		Det:   l[0] * l[1] * l[2],
	}
	if a.Trace != 0 {
		a.CL = finite((l[2] - l[1]) / a.Trace)
		a.CP = finite(2 * (l[1] - l[0]) / a.Trace)
	}
	a.FA = FractionalAnisotropy(l)

	major := e.Major()
	dir := [3]float64{math.Abs(major.X), math.Abs(major.Y), math.Abs(major.Z)}
	fa := a.FA
	for c, v := range dir {
		a.Color[c] = toUint8(fa * (fa*v + (1 - fa)))
	}
	return a
}

// TensorAttributes computes the attributes of every sample.
func TensorAttributes(s Samples) []Attributes {
	attrs := make([]Attributes, s.NumPoints())
	for i := range attrs {
		attrs[i] = ComputeAttributes(s.TensorAt(i))
	}
	return attrs
}

// FAMap returns the fractional anisotropy of every sample.
func FAMap(s Samples) []float64 {
	fa := make([]float64, s.NumPoints())
	for i := range fa {
		fa[i] = FractionalAnisotropy(Decompose(s.TensorAt(i)).Values)
	}
	return fa
}
