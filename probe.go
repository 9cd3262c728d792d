package tensorviz

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// SliceAxis is the normal of an axis aligned slice.
type SliceAxis int

const (
	SliceX SliceAxis = iota
	SliceY
	SliceZ
)

func (a SliceAxis) String() string {
	switch a {
	case SliceX:
		return "x"
	case SliceY:
		return "y"
	case SliceZ:
		return "z"
	}
	return fmt.Sprintf("SliceAxis(%d)", int(a))
}

// ParseSliceAxis accepts "x", "y" or "z" in any case.
func ParseSliceAxis(s string) (SliceAxis, error) {
	switch strings.ToLower(s) {
	case "x":
		return SliceX, nil
	case "y":
		return SliceY, nil
	case "z":
		return SliceZ, nil
	}
	return 0, fmt.Errorf("unknown slice axis %q", s)
}

// inPlane returns the two axes spanning a slice, lowest first.
func (a SliceAxis) inPlane() (int, int) {
	switch a {
	case SliceX:
		return 1, 2
	case SliceY:
		return 0, 2
	}
	return 0, 1
}

func component(v r3.Vec, axis int) float64 {
	return [3]float64{v.X, v.Y, v.Z}[axis]
}

func withComponent(v r3.Vec, axis int, x float64) r3.Vec {
	switch axis {
	case 0:
		v.X = x
	case 1:
		v.Y = x
	default:
		v.Z = x
	}
	return v
}

// Slice returns the grid samples with the given index along axis, without
// interpolation.
func (f *ImageField) Slice(axis SliceAxis, index int) (*PointSet, error) {
	if axis < SliceX || axis > SliceZ {
		return nil, fmt.Errorf("unknown slice axis %d", int(axis))
	}
	if index < 0 || index >= f.Dims[axis] {
		return nil, fmt.Errorf("slice %d out of range [0, %d) along %s", index, f.Dims[axis], axis)
	}
	u, v := axis.inPlane()
	ps := &PointSet{}
	var ijk [3]int
	ijk[axis] = index
	for b := 0; b < f.Dims[v]; b++ {
		for a := 0; a < f.Dims[u]; a++ {
			ijk[u], ijk[v] = a, b
			n := f.index(ijk[0], ijk[1], ijk[2])
			ps.Append(f.lattice(ijk[0], ijk[1], ijk[2]), f.Tensors[n])
		}
	}
	return ps, nil
}

// boundaryNudge is the fraction of the distance to the domain center a
// boundary point is moved inwards before probing.
const boundaryNudge = 1e-9

// sampleAt evaluates f at p. Points on the boundary of b are evaluated just
// inside it, so probed slices keep their outer ring.
func sampleAt(f Field, b Bounds, p r3.Vec) (Tensor, error) {
	t, err := f.Interpolate(p)
	var oe *OutOfDomainError
	if err == nil || !errors.As(err, &oe) || !closedContains(b, p) {
		return t, err
	}
	return f.Interpolate(r3.Add(p, r3.Scale(boundaryNudge, r3.Sub(b.Center(), p))))
}

func closedContains(b Bounds, p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ProbeSlice samples the field on an nu×nv grid spanning the bounds of the
// field on the plane normal to axis at position. Grid points on the domain
// boundary are kept; points where the field cannot be evaluated are skipped.
func ProbeSlice(f Field, axis SliceAxis, position float64, nu, nv int) (*PointSet, error) {
	if f == nil {
		return nil, errors.New("no tensor field to probe")
	}
	if axis < SliceX || axis > SliceZ {
		return nil, fmt.Errorf("unknown slice axis %d", int(axis))
	}
	if nu < 2 || nv < 2 {
		return nil, fmt.Errorf("probe grid needs at least 2x2 points, got %dx%d", nu, nv)
	}
	b := f.Bounds()
	u, v := axis.inPlane()
	origin := withComponent(b.Min, int(axis), position)
	du := (component(b.Max, u) - component(b.Min, u)) / float64(nu-1)
	dv := (component(b.Max, v) - component(b.Min, v)) / float64(nv-1)

	ps := &PointSet{}
	skipped := 0
	for j := 0; j < nv; j++ {
		for i := 0; i < nu; i++ {
			p := withComponent(origin, u, component(b.Min, u)+float64(i)*du)
			p = withComponent(p, v, component(b.Min, v)+float64(j)*dv)
			t, err := sampleAt(f, b, p)
			if err != nil {
				skipped++
				continue
			}
			ps.Append(p, t)
		}
	}
	if skipped > 0 {
		Logger().Debug("probe points skipped", "axis", axis, "position", position, "skipped", skipped, "kept", ps.NumPoints())
	}
	return ps, nil
}
