package tensorviz

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// OutOfDomainError is returned when a position lies on or outside the
// bounding box of a field, or when the interpolation stencil around it
// would need samples outside the grid.
type OutOfDomainError struct {
	Pos r3.Vec
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("position (%g, %g, %g) is outside of the field domain", e.Pos.X, e.Pos.Y, e.Pos.Z)
}

// InvalidPositionError is returned by unstructured fields when no cell
// contains the queried position.
type InvalidPositionError struct {
	Pos r3.Vec
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("no cell contains position (%g, %g, %g)", e.Pos.X, e.Pos.Y, e.Pos.Z)
}
