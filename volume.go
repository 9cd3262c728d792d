package tensorviz

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dtiviz/tensorviz/nrrd"
)

// LoadNRRD reads a tensor volume from a NRRD file.
func LoadNRRD(path string) (*ImageField, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vol, err := nrrd.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	field, err := FieldFromNRRD(vol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	Logger().Debug("volume loaded", "path", path, "dims", field.Dims, "origin", field.Origin, "spacing", field.Spacing)
	return field, nil
}

// FieldFromNRRD converts a 4D volume whose first axis holds 6 (symmetric),
// 7 (masked symmetric) or 9 (full) tensor components into an ImageField.
// Masked tensors with a confidence below 0.5 are zeroed.
func FieldFromNRRD(vol *nrrd.Volume) (*ImageField, error) {
	if vol.Dimension != 4 {
		return nil, fmt.Errorf("tensor volume must have 4 axes, got %d", vol.Dimension)
	}
	ncomp := vol.Sizes[0]
	if ncomp != 6 && ncomp != 7 && ncomp != 9 {
		return nil, fmt.Errorf("first axis must hold 6, 7 or 9 tensor components, got %d", ncomp)
	}
	dims := [3]int{vol.Sizes[1], vol.Sizes[2], vol.Sizes[3]}

	var origin r3.Vec
	if o := vol.SpaceOrigin; len(o) == 3 {
		origin = r3.Vec{X: o[0], Y: o[1], Z: o[2]}
	}
	sp := [3]float64{1, 1, 1}
	switch {
	case vol.SpaceDirections != nil:
		for a := 0; a < 3; a++ {
			d := vol.SpaceDirections[a+1]
			if len(d) != 3 {
				return nil, fmt.Errorf("axis %d has no space direction", a+1)
			}
			sp[a] = math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
			if off := math.Abs(d[0]) + math.Abs(d[1]) + math.Abs(d[2]) - math.Abs(d[a]); off > 1e-6*sp[a] {
				Logger().Warn("oblique space direction treated as axis aligned", "axis", a+1, "direction", d)
			}
		}
	case vol.Spacings != nil:
		for a := 0; a < 3; a++ {
			if s := vol.Spacings[a+1]; s > 0 {
				sp[a] = s
			}
		}
	}
	spacing := r3.Vec{X: sp[0], Y: sp[1], Z: sp[2]}

	n := dims[0] * dims[1] * dims[2]
	tensors := make([]Tensor, n)
	for i := range tensors {
		c := vol.Data[i*ncomp : (i+1)*ncomp]
		switch ncomp {
		case 9:
			copy(tensors[i][:], c)
		case 7:
			if c[0] < 0.5 {
				continue
			}
			c = c[1:]
			fallthrough
		case 6:
			xx, xy, xz, yy, yz, zz := c[0], c[1], c[2], c[3], c[4], c[5]
			tensors[i] = Tensor{xx, xy, xz, xy, yy, yz, xz, yz, zz}
		}
	}
	return NewImageField(dims, origin, spacing, tensors)
}

// FAVolume returns the fractional anisotropy of every grid point of f as a
// scalar volume with the same geometry.
func FAVolume(f *ImageField) *nrrd.Volume {
	return &nrrd.Volume{
		Header: nrrd.Header{
			Type:        "float",
			Dimension:   3,
			Sizes:       []int{f.Dims[0], f.Dims[1], f.Dims[2]},
			Encoding:    "gzip",
			Space:       "3D-right-handed",
			SpaceOrigin: []float64{f.Origin.X, f.Origin.Y, f.Origin.Z},
			SpaceDirections: [][]float64{
				{f.Spacing.X, 0, 0},
				{0, f.Spacing.Y, 0},
				{0, 0, f.Spacing.Z},
			},
			Kinds: []string{"space", "space", "space"},
		},
		Data: FAMap(f),
	}
}
