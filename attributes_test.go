package tensorviz

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestDecomposeDiagonal(t *testing.T) {
	e := Decompose(Diag(3, 1, 2))

	assert.InDeltaSlice(t, []float64{1, 2, 3}, e.Values[:], 1e-12)
	axes := []r3.Vec{{Y: 1}, {Z: 1}, {X: 1}}
	for i, want := range axes {
		assert.InDelta(t, 1, math.Abs(r3.Dot(want, e.Vectors[i])), 1e-12, "eigenvector %d", i)
	}
	assert.InDelta(t, 1, math.Abs(e.Major().X), 1e-12)
}

func TestDecomposeRotated(t *testing.T) {
	// Eigenvalues 1 and 3 in the xy plane along (1,1,0)/√2 and (1,-1,0)/√2.
	tensor := Tensor{
		2, -1, 0,
		-1, 2, 0,
		0, 0, 0.5,
	}
	e := Decompose(tensor)

	assert.InDeltaSlice(t, []float64{0.5, 1, 3}, e.Values[:], 1e-12)
	major := e.Major()
	assert.InDelta(t, 1/math.Sqrt2, math.Abs(major.X), 1e-12)
	assert.InDelta(t, -1, major.X*major.Y*2, 1e-12)
}

func TestDecomposeClampsNegative(t *testing.T) {
	e := Decompose(Diag(-1e-9, 1, 2))
	assert.Equal(t, 0.0, e.Values[0])
}

func TestDecomposeNonFinite(t *testing.T) {
	e := Decompose(Diag(math.NaN(), 1, 1))
	assert.Equal(t, identityEigen, e)

	a := ComputeAttributes(Diag(math.Inf(1), 1, 1))
	assert.Equal(t, 0.0, a.FA)
	assert.Equal(t, RGB{}, a.Color)
}

func TestFractionalAnisotropy(t *testing.T) {
	assert.Equal(t, 0.0, FractionalAnisotropy([3]float64{1, 1, 1}))
	assert.Equal(t, 0.0, FractionalAnisotropy([3]float64{}))
	assert.InDelta(t, 1, FractionalAnisotropy([3]float64{0, 0, 1}), 1e-12)
	assert.InDelta(t, math.Sqrt(162./204.), FractionalAnisotropy([3]float64{1, 1, 10}), 1e-12)

	for _, l := range [][3]float64{{0, 1, 2}, {0.3, 0.3, 5}, {1e-9, 4, 4}, {7, 7, 7.5}} {
		fa := FractionalAnisotropy(l)
		assert.GreaterOrEqual(t, fa, 0.0)
		assert.LessOrEqual(t, fa, 1.0)
	}
}

func TestComputeAttributes(t *testing.T) {
	iso := ComputeAttributes(Diag(2, 2, 2))
	assert.InDelta(t, 0, iso.CL, 1e-12)
	assert.InDelta(t, 0, iso.CP, 1e-12)
	assert.InDelta(t, 0, iso.FA, 1e-12)
	assert.InDelta(t, 6, iso.Trace, 1e-12)
	assert.InDelta(t, 8, iso.Det, 1e-9)
	assert.Equal(t, RGB{}, iso.Color)

	line := ComputeAttributes(Diag(0, 0, 1))
	assert.InDelta(t, 1, line.CL, 1e-12)
	assert.InDelta(t, 0, line.CP, 1e-12)
	assert.LessOrEqual(t, line.Color[0], uint8(1))
	assert.LessOrEqual(t, line.Color[1], uint8(1))
	assert.GreaterOrEqual(t, line.Color[2], uint8(254))

	plane := ComputeAttributes(Diag(1, 1, 0))
	assert.InDelta(t, 0, plane.CL, 1e-12)
	assert.InDelta(t, 1, plane.CP, 1e-12)

	zero := ComputeAttributes(Tensor{})
	assert.Equal(t, 0.0, zero.CL)
	assert.Equal(t, 0.0, zero.CP)
	assert.Equal(t, 0.0, zero.FA)
}

func TestAttributeColor(t *testing.T) {
	a := ComputeAttributes(Diag(1, 1, 10))
	fa := math.Sqrt(162. / 204.)
	assert.InDelta(t, fa, a.FA, 1e-12)
	assert.Equal(t, RGB{24, 24, 227}, a.Color)
}

func TestTensorAttributes(t *testing.T) {
	ps := &PointSet{}
	ps.Append(r3.Vec{}, Diag(1, 1, 1))
	ps.Append(r3.Vec{X: 1}, Diag(0, 0, 1))

	attrs := TensorAttributes(ps)
	assert.Len(t, attrs, 2)
	assert.InDelta(t, 1, attrs[1].FA, 1e-12)

	fa := FAMap(ps)
	assert.InDeltaSlice(t, []float64{0, 1}, fa, 1e-12)
}
