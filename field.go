package tensorviz

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tensor is a 3×3 tensor stored row-major as 9 values.
// It is expected to be symmetric but this is never checked.
type Tensor [9]float64

// At returns the (i, j) entry.
func (t Tensor) At(i, j int) float64 { return t[3*i+j] }

// Diag returns the diagonal tensor diag(a, b, c).
func Diag(a, b, c float64) Tensor {
	return Tensor{a, 0, 0, 0, b, 0, 0, 0, c}
}

// Bounds is an axis aligned box.
type Bounds struct {
	Min, Max r3.Vec
}

// Contains reports whether p lies strictly inside the box.
// Points on a face are outside.
func (b Bounds) Contains(p r3.Vec) bool {
	return p.X > b.Min.X && p.X < b.Max.X &&
		p.Y > b.Min.Y && p.Y < b.Max.Y &&
		p.Z > b.Min.Z && p.Z < b.Max.Z
}

// Distance returns the signed distance from p to the closest face,
// positive inside the box and negative outside.
func (b Bounds) Distance(p r3.Vec) float64 {
	return Min(
		p.X-b.Min.X, p.Y-b.Min.Y, p.Z-b.Min.Z,
		b.Max.X-p.X, b.Max.Y-p.Y, b.Max.Z-p.Z,
	)
}

// Center returns the middle of the box.
func (b Bounds) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// boundsOf returns the bounding box of a point set.
func boundsOf(points []r3.Vec) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// Samples is a set of positions each carrying a tensor.
type Samples interface {
	NumPoints() int
	Point(i int) r3.Vec
	TensorAt(i int) Tensor
}

// Field is a tensor field that can be evaluated anywhere inside its bounds.
// Interpolate returns *OutOfDomainError or *InvalidPositionError when the
// position cannot be evaluated.
type Field interface {
	Samples
	Bounds() Bounds
	Interpolate(p r3.Vec) (Tensor, error)
}

// PointSet is a plain list of samples, e.g. a slice probed out of a volume.
type PointSet struct {
	Points  []r3.Vec
	Tensors []Tensor
}

func (ps *PointSet) NumPoints() int        { return len(ps.Points) }
func (ps *PointSet) Point(i int) r3.Vec    { return ps.Points[i] }
func (ps *PointSet) TensorAt(i int) Tensor { return ps.Tensors[i] }

// Append adds a sample.
func (ps *PointSet) Append(p r3.Vec, t Tensor) {
	ps.Points = append(ps.Points, p)
	ps.Tensors = append(ps.Tensors, t)
}

// ImageField is a tensor field sampled on a regular grid.
// Tensors are stored with x varying fastest, then y, then z.
type ImageField struct {
	Dims    [3]int
	Origin  r3.Vec
	Spacing r3.Vec
	Tensors []Tensor
}

// NewImageField validates the grid description and returns the field.
func NewImageField(dims [3]int, origin, spacing r3.Vec, tensors []Tensor) (*ImageField, error) {
	for i, d := range dims {
		if d < 2 {
			return nil, fmt.Errorf("dimension %d has %d samples, need at least 2", i, d)
		}
	}
	if spacing.X <= 0 || spacing.Y <= 0 || spacing.Z <= 0 {
		return nil, fmt.Errorf("spacing must be positive, got %v", spacing)
	}
	if n := dims[0] * dims[1] * dims[2]; len(tensors) != n {
		return nil, fmt.Errorf("got %d tensors for a %dx%dx%d grid", len(tensors), dims[0], dims[1], dims[2])
	}
	return &ImageField{Dims: dims, Origin: origin, Spacing: spacing, Tensors: tensors}, nil
}

// index returns the flat index of grid sample (i, j, k).
func (f *ImageField) index(i, j, k int) int {
	return i + f.Dims[0]*(j+f.Dims[1]*k)
}

func (f *ImageField) NumPoints() int { return len(f.Tensors) }

func (f *ImageField) TensorAt(n int) Tensor { return f.Tensors[n] }

func (f *ImageField) Point(n int) r3.Vec {
	i := n % f.Dims[0]
	j := (n / f.Dims[0]) % f.Dims[1]
	k := n / (f.Dims[0] * f.Dims[1])
	return f.lattice(i, j, k)
}

func (f *ImageField) lattice(i, j, k int) r3.Vec {
	return r3.Vec{
		X: f.Origin.X + float64(i)*f.Spacing.X,
		Y: f.Origin.Y + float64(j)*f.Spacing.Y,
		Z: f.Origin.Z + float64(k)*f.Spacing.Z,
	}
}

func (f *ImageField) Bounds() Bounds {
	return Bounds{Min: f.Origin, Max: f.lattice(f.Dims[0]-1, f.Dims[1]-1, f.Dims[2]-1)}
}

// Interpolate returns the trilinearly interpolated tensor at p.
func (f *ImageField) Interpolate(p r3.Vec) (Tensor, error) {
	if !f.Bounds().Contains(p) {
		return Tensor{}, &OutOfDomainError{Pos: p}
	}
	x := [3]float64{
		(p.X - f.Origin.X) / f.Spacing.X,
		(p.Y - f.Origin.Y) / f.Spacing.Y,
		(p.Z - f.Origin.Z) / f.Spacing.Z,
	}
	var cell [3]int
	var frac [3]float64
	for a := 0; a < 3; a++ {
		c := math.Floor(x[a])
		if x[a] < 0 || int(c) > f.Dims[a]-2 {
			return Tensor{}, &OutOfDomainError{Pos: p}
		}
		cell[a] = int(c)
		frac[a] = x[a] - c
	}
	u, v, w := frac[0], frac[1], frac[2]
	i, j, k := cell[0], cell[1], cell[2]

	corners := [8]struct {
		weight  float64
		i, j, k int
	}{
		{(1 - u) * (1 - v) * (1 - w), i, j, k},
		{u * (1 - v) * (1 - w), i + 1, j, k},
		{u * v * (1 - w), i + 1, j + 1, k},
		{(1 - u) * v * (1 - w), i, j + 1, k},
		{(1 - u) * (1 - v) * w, i, j, k + 1},
		{u * (1 - v) * w, i + 1, j, k + 1},
		{u * v * w, i + 1, j + 1, k + 1},
		{(1 - u) * v * w, i, j + 1, k + 1},
	}
	var t Tensor
	for _, c := range corners {
		if c.weight == 0 {
			continue
		}
		s := f.Tensors[f.index(c.i, c.j, c.k)]
		for n := range t {
			t[n] += c.weight * s[n]
		}
	}
	return t, nil
}
