package tensorviz

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// barycentricTol accepts points that are a rounding error outside a face.
const barycentricTol = 1e-10

// cellLocator buckets tetrahedra into a uniform grid of bins over the mesh
// bounds. A cell is registered in every bin its bounding box overlaps.
type cellLocator struct {
	points []r3.Vec
	cells  [][4]int
	bounds Bounds
	n      [3]int
	size   r3.Vec
	bins   [][]int
}

func newCellLocator(points []r3.Vec, cells [][4]int, bounds Bounds) *cellLocator {
	l := &cellLocator{points: points, cells: cells, bounds: bounds}

	// Aim for a handful of cells per bin.
	per := int(math.Ceil(math.Cbrt(float64(len(cells)) / 4)))
	per = Max(per, 1)
	ext := r3.Sub(bounds.Max, bounds.Min)
	for a, e := range [3]float64{ext.X, ext.Y, ext.Z} {
		l.n[a] = per
		if e <= 0 {
			l.n[a] = 1
		}
	}
	l.size = r3.Vec{
		X: ext.X / float64(l.n[0]),
		Y: ext.Y / float64(l.n[1]),
		Z: ext.Z / float64(l.n[2]),
	}
	l.bins = make([][]int, l.n[0]*l.n[1]*l.n[2])

	for c, cell := range cells {
		cb := boundsOf([]r3.Vec{points[cell[0]], points[cell[1]], points[cell[2]], points[cell[3]]})
		lo, hi := l.bin(cb.Min), l.bin(cb.Max)
		for k := lo[2]; k <= hi[2]; k++ {
			for j := lo[1]; j <= hi[1]; j++ {
				for i := lo[0]; i <= hi[0]; i++ {
					b := i + l.n[0]*(j+l.n[1]*k)
					l.bins[b] = append(l.bins[b], c)
				}
			}
		}
	}
	return l
}

// bin returns the clamped bin coordinates holding p.
func (l *cellLocator) bin(p r3.Vec) [3]int {
	rel := r3.Sub(p, l.bounds.Min)
	var b [3]int
	for a, v := range [3]float64{rel.X, rel.Y, rel.Z} {
		s := [3]float64{l.size.X, l.size.Y, l.size.Z}[a]
		if s > 0 {
			b[a] = int(math.Floor(v / s))
		}
		b[a] = Clamp(b[a], 0, l.n[a]-1)
	}
	return b
}

// find returns the cell containing p along with the barycentric weights
// of its four vertices.
func (l *cellLocator) find(p r3.Vec) (int, [4]float64, bool) {
	b := l.bin(p)
	for _, c := range l.bins[b[0]+l.n[0]*(b[1]+l.n[1]*b[2])] {
		if w, ok := l.weights(c, p); ok {
			return c, w, true
		}
	}
	return -1, [4]float64{}, false
}

// weights evaluates the linear tetrahedron shape functions at p.
func (l *cellLocator) weights(c int, p r3.Vec) ([4]float64, bool) {
	cell := l.cells[c]
	v0 := l.points[cell[0]]
	e1 := r3.Sub(l.points[cell[1]], v0)
	e2 := r3.Sub(l.points[cell[2]], v0)
	e3 := r3.Sub(l.points[cell[3]], v0)
	d := r3.Sub(p, v0)

	det := r3.Dot(e1, r3.Cross(e2, e3))
	if det == 0 {
		return [4]float64{}, false
	}
	b1 := r3.Dot(d, r3.Cross(e2, e3)) / det
	b2 := r3.Dot(e1, r3.Cross(d, e3)) / det
	b3 := r3.Dot(e1, r3.Cross(e2, d)) / det
	w := [4]float64{1 - b1 - b2 - b3, b1, b2, b3}
	for _, v := range w {
		if v < -barycentricTol {
			return w, false
		}
	}
	return w, true
}
