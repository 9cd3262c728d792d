package tensorviz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestImageFieldSlice(t *testing.T) {
	f := linearField(t)

	ps, err := f.Slice(SliceZ, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, ps.NumPoints())
	for i, p := range ps.Points {
		assert.Equal(t, 1.0, p.Z)
		assert.Equal(t, Diag(p.X+1, p.Y+1, 2), ps.TensorAt(i))
	}
	assert.Equal(t, r3.Vec{X: 1, Y: 0, Z: 1}, ps.Point(1))

	ps, err = f.Slice(SliceX, 2)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 2, Y: 1, Z: 0}, ps.Point(1))

	_, err = f.Slice(SliceY, 3)
	assert.Error(t, err)
	_, err = f.Slice(SliceAxis(4), 0)
	assert.Error(t, err)
}

func TestProbeSlice(t *testing.T) {
	f := constantField(t, [3]int{4, 4, 4}, Diag(1, 2, 3))

	ps, err := ProbeSlice(f, SliceZ, 1.5, 4, 4)
	require.NoError(t, err)
	// The outer ring of the grid lies on the domain boundary and is kept.
	require.Equal(t, 16, ps.NumPoints())
	assert.Equal(t, r3.Vec{X: 0, Y: 0, Z: 1.5}, ps.Points[0])
	assert.Equal(t, r3.Vec{X: 1, Y: 0, Z: 1.5}, ps.Points[1])
	assert.Equal(t, r3.Vec{X: 3, Y: 3, Z: 1.5}, ps.Points[15])
	for i := range ps.Points {
		got := ps.TensorAt(i)
		assert.InDeltaSlice(t, []float64{1, 0, 0, 0, 2, 0, 0, 0, 3}, got[:], 1e-9)
	}

	ps, err = ProbeSlice(f, SliceY, 1, 7, 7)
	require.NoError(t, err)
	assert.Equal(t, 49, ps.NumPoints())

	// A slice on a face of the domain.
	ps, err = ProbeSlice(f, SliceX, 3, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 16, ps.NumPoints())

	ps, err = ProbeSlice(f, SliceX, 3.5, 4, 4)
	require.NoError(t, err)
	assert.Zero(t, ps.NumPoints())

	_, err = ProbeSlice(f, SliceX, 1, 1, 4)
	assert.Error(t, err)
	_, err = ProbeSlice(nil, SliceX, 1, 4, 4)
	assert.Error(t, err)
}

func TestProbeSliceBoundaryValues(t *testing.T) {
	f := linearField(t)

	ps, err := ProbeSlice(f, SliceZ, 2, 3, 3)
	require.NoError(t, err)
	require.Equal(t, 9, ps.NumPoints())
	// The far corner of the top face holds diag(3, 3, 3).
	assert.Equal(t, r3.Vec{X: 2, Y: 2, Z: 2}, ps.Points[8])
	got := ps.TensorAt(8)
	assert.InDeltaSlice(t, []float64{3, 0, 0, 0, 3, 0, 0, 0, 3}, got[:], 1e-6)

	// Interpolation itself stays strict on the boundary.
	_, err = f.Interpolate(ps.Points[8])
	var oe *OutOfDomainError
	assert.ErrorAs(t, err, &oe)
}

func TestParseSliceAxis(t *testing.T) {
	a, err := ParseSliceAxis("Y")
	require.NoError(t, err)
	assert.Equal(t, SliceY, a)
	assert.Equal(t, "y", a.String())
	_, err = ParseSliceAxis("w")
	assert.Error(t, err)
}

func TestSampleSeeds(t *testing.T) {
	big := samplesOf(10, Diag(1, 1, 1))
	small := samplesOf(3, Diag(1, 1, 1))
	for i := range small.Points {
		small.Points[i].Y = 1
	}

	seeds := SampleSeeds([]*PointSet{big, nil, {}, small}, 9, NewRand(3))
	require.Len(t, seeds, 8)

	// Five distinct points from the first plane, then all of the second.
	seen := make(map[r3.Vec]bool)
	for _, s := range seeds[:5] {
		assert.Contains(t, big.Points, s)
		assert.False(t, seen[s])
		seen[s] = true
	}
	assert.Equal(t, small.Points, seeds[5:])

	assert.Nil(t, SampleSeeds(nil, 10, nil))
	assert.Nil(t, SampleSeeds([]*PointSet{big}, 0, nil))
	assert.Len(t, SampleSeeds([]*PointSet{big}, 100, nil), 10)
}
