package tensorviz

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// EigenvectorField is the direction field followed by a tensor line: the
// major eigenvector of the interpolated tensor, with its sign chosen to
// agree with the previous evaluation along the same trajectory.
//
// An EigenvectorField carries per trajectory state and must not be shared
// between concurrent integrations.
type EigenvectorField struct {
	field Field
	sign  float64
	last  r3.Vec
	fresh bool
}

// NewEigenvectorField returns a direction field for a trajectory traced in
// the direction of sign (+1 forward, -1 backward).
func NewEigenvectorField(f Field, sign float64) *EigenvectorField {
	e := &EigenvectorField{field: f}
	e.Reset(sign)
	return e
}

// Reset starts a new trajectory.
func (e *EigenvectorField) Reset(sign float64) {
	e.sign = 1
	if sign < 0 {
		e.sign = -1
	}
	e.last = r3.Vec{}
	e.fresh = true
}

// Eval returns the direction at p. Positions the field cannot evaluate give
// the zero vector.
func (e *EigenvectorField) Eval(p r3.Vec) r3.Vec {
	t, err := e.field.Interpolate(p)
	if err != nil {
		return r3.Vec{}
	}
	major := Decompose(t).Major()
	switch {
	case e.fresh:
		e.last = r3.Scale(e.sign, major)
		e.fresh = false
	case r3.Dot(e.last, major) < 0:
		e.last = r3.Scale(-1, major)
	default:
		e.last = major
	}
	return e.last
}

// Func adapts Eval to the ode package calling convention.
func (e *EigenvectorField) Func(_ float64, y, dy []float64) {
	d := e.Eval(r3.Vec{X: y[0], Y: y[1], Z: y[2]})
	dy[0], dy[1], dy[2] = d.X, d.Y, d.Z
}

// FAAt returns the fractional anisotropy at p, or 0 where the field cannot
// be evaluated.
func FAAt(f Field, p r3.Vec) float64 {
	t, err := f.Interpolate(p)
	if err != nil {
		return 0
	}
	return FractionalAnisotropy(Decompose(t).Values)
}

// AnisotropyEvent is positive while the fractional anisotropy stays above
// minFA and crosses zero when the trajectory enters isotropic tissue.
func AnisotropyEvent(f Field, minFA float64) func(p r3.Vec) float64 {
	return func(p r3.Vec) float64 {
		return FAAt(f, p) - minFA
	}
}

// DomainEvent is the signed distance to the faces of b: it crosses zero
// when the trajectory leaves the box.
func DomainEvent(b Bounds) func(p r3.Vec) float64 {
	return b.Distance
}
