package tensorviz

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dtiviz/tensorviz/nrrd"
)

func tensorVolume(ncomp int) *nrrd.Volume {
	v := &nrrd.Volume{Header: nrrd.Header{
		Type:            "float",
		Dimension:       4,
		Sizes:           []int{ncomp, 2, 2, 3},
		Encoding:        "gzip",
		SpaceOrigin:     []float64{1, 2, 3},
		SpaceDirections: [][]float64{nil, {0.5, 0, 0}, {0, 2, 0}, {0, 0, 1}},
	}}
	v.Data = make([]float64, v.Len())
	for i := 0; i < 12; i++ {
		c := v.Data[i*ncomp : (i+1)*ncomp]
		switch ncomp {
		case 7:
			c[0] = float64(i % 2)
			c = c[1:]
			fallthrough
		case 6:
			copy(c, []float64{1, 0.5, 0.25, 2, 0.125, float64(i)})
		}
	}
	return v
}

func TestFieldFromNRRD(t *testing.T) {
	f, err := FieldFromNRRD(tensorVolume(6))
	require.NoError(t, err)

	assert.Equal(t, [3]int{2, 2, 3}, f.Dims)
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: 3}, f.Origin)
	assert.Equal(t, r3.Vec{X: 0.5, Y: 2, Z: 1}, f.Spacing)
	assert.Equal(t, Tensor{
		1, 0.5, 0.25,
		0.5, 2, 0.125,
		0.25, 0.125, 5,
	}, f.TensorAt(5))
}

func TestFieldFromNRRDMasked(t *testing.T) {
	f, err := FieldFromNRRD(tensorVolume(7))
	require.NoError(t, err)
	assert.Equal(t, Tensor{}, f.TensorAt(4))
	assert.Equal(t, 5.0, f.TensorAt(5).At(2, 2))
}

func TestFieldFromNRRDErrors(t *testing.T) {
	v := tensorVolume(6)
	v.Dimension = 3
	_, err := FieldFromNRRD(v)
	assert.Error(t, err)

	v = tensorVolume(6)
	v.Sizes[0] = 5
	_, err = FieldFromNRRD(v)
	assert.Error(t, err)
}

func TestLoadNRRD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dti.nrrd")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, nrrd.Write(file, tensorVolume(6)))
	require.NoError(t, file.Close())

	f, err := LoadNRRD(path)
	require.NoError(t, err)
	assert.Equal(t, 12, f.NumPoints())
	assert.Equal(t, r3.Vec{X: 1.5, Y: 4, Z: 5}, f.Bounds().Max)

	_, err = LoadNRRD(filepath.Join(t.TempDir(), "missing.nrrd"))
	assert.Error(t, err)
}

func TestFAVolume(t *testing.T) {
	f, err := FieldFromNRRD(tensorVolume(6))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, nrrd.Write(&buf, FAVolume(f)))
	vol, err := nrrd.Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 3}, vol.Sizes)
	assert.Equal(t, []float64{1, 2, 3}, vol.SpaceOrigin)
	assert.Equal(t, [][]float64{{0.5, 0, 0}, {0, 2, 0}, {0, 0, 1}}, vol.SpaceDirections)
	require.Len(t, vol.Data, f.NumPoints())
	for i, fa := range vol.Data {
		want := FractionalAnisotropy(Decompose(f.TensorAt(i)).Values)
		assert.InDelta(t, want, fa, 1e-6, "point %d", i)
		assert.True(t, fa >= 0 && fa <= 1)
	}
}
