package tensorviz

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// UnstructuredField is a tensor field on a tetrahedral mesh. Tensors are
// attached to the mesh points and interpolated linearly inside each cell.
type UnstructuredField struct {
	Points  []r3.Vec
	Cells   [][4]int
	Tensors []Tensor

	bounds  Bounds
	locator *cellLocator
}

// NewUnstructuredField validates the mesh and builds its cell locator.
func NewUnstructuredField(points []r3.Vec, cells [][4]int, tensors []Tensor) (*UnstructuredField, error) {
	if len(points) != len(tensors) {
		return nil, fmt.Errorf("got %d tensors for %d points", len(tensors), len(points))
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("unstructured field has no cells")
	}
	for c, cell := range cells {
		for _, id := range cell {
			if id < 0 || id >= len(points) {
				return nil, fmt.Errorf("cell %d references point %d, have %d points", c, id, len(points))
			}
		}
	}
	f := &UnstructuredField{
		Points:  points,
		Cells:   cells,
		Tensors: tensors,
		bounds:  boundsOf(points),
	}
	f.locator = newCellLocator(points, cells, f.bounds)
	return f, nil
}

func (f *UnstructuredField) NumPoints() int        { return len(f.Points) }
func (f *UnstructuredField) Point(i int) r3.Vec    { return f.Points[i] }
func (f *UnstructuredField) TensorAt(i int) Tensor { return f.Tensors[i] }
func (f *UnstructuredField) Bounds() Bounds        { return f.bounds }

// Interpolate returns the tensor at p as the weighted sum of the tensors
// of the cell containing p.
func (f *UnstructuredField) Interpolate(p r3.Vec) (Tensor, error) {
	if !f.bounds.Contains(p) {
		return Tensor{}, &OutOfDomainError{Pos: p}
	}
	c, weights, ok := f.locator.find(p)
	if !ok {
		return Tensor{}, &InvalidPositionError{Pos: p}
	}
	var t Tensor
	for v, id := range f.Cells[c] {
		s := f.Tensors[id]
		for n := range t {
			t[n] += weights[v] * s[n]
		}
	}
	return t, nil
}
