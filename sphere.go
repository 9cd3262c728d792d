package tensorviz

import (
	"fmt"
	"math"
)

// SphereMesh is the parametric (longitude, latitude) sampling shared by all
// glyphs. It has nlat latitude rings of nlon points each, followed by the
// two poles. The triangle table is built once and reused, offset by
// NumPoints, for every glyph instance.
type SphereMesh struct {
	nlat, nlon int
	angles     [][2]float64
	triangles  [][3]int
}

// NewSphereMesh builds the angle table and connectivity. A non-positive
// nlon defaults to 2*(nlat-2). Both counts must end up at least 2.
func NewSphereMesh(nlat, nlon int) (*SphereMesh, error) {
	if nlon <= 0 {
		nlon = 2 * (nlat - 2)
	}
	if nlat < 2 || nlon < 2 {
		return nil, fmt.Errorf("sphere needs at least 2 latitudes and 2 longitudes, got %dx%d", nlat, nlon)
	}
	m := &SphereMesh{nlat: nlat, nlon: nlon}
	m.computeAngles()
	m.computeTriangles()
	return m, nil
}

// NumPoints returns nlat*nlon + 2.
func (m *SphereMesh) NumPoints() int { return m.nlat*m.nlon + 2 }

// Angles returns (theta, phi) pairs: theta is the longitude in [0, 2π),
// phi the polar angle in [0, π].
func (m *SphereMesh) Angles() [][2]float64 { return m.angles }

// Triangles returns the connectivity of a single instance.
func (m *SphereMesh) Triangles() [][3]int { return m.triangles }

// Resolution returns the number of latitude rings and longitudes.
func (m *SphereMesh) Resolution() (nlat, nlon int) { return m.nlat, m.nlon }

// id maps a (latitude ring, longitude) pair to a point index.
func (m *SphereMesh) id(lat, lon int) int { return lat*m.nlon + lon }

func (m *SphereMesh) topPole() int    { return m.nlat * m.nlon }
func (m *SphereMesh) bottomPole() int { return m.nlat*m.nlon + 1 }

func (m *SphereMesh) computeAngles() {
	m.angles = make([][2]float64, 0, m.NumPoints())
	phis := linspace(0, math.Pi, m.nlat+2)
	for _, phi := range phis[1 : len(phis)-1] {
		for i := 0; i < m.nlon; i++ {
			theta := 2 * math.Pi * float64(i) / float64(m.nlon)
			m.angles = append(m.angles, [2]float64{theta, phi})
		}
	}
	m.angles = append(m.angles, [2]float64{0, 0}, [2]float64{0, math.Pi})
}

func (m *SphereMesh) computeTriangles() {
	m.triangles = make([][3]int, 0, 2*m.nlat*m.nlon)
	for j := 0; j < m.nlat-1; j++ {
		for i := 0; i < m.nlon; i++ {
			ii := (i + 1) % m.nlon
			m.triangles = append(m.triangles,
				[3]int{m.id(j, i), m.id(j, ii), m.id(j+1, ii)},
				[3]int{m.id(j, i), m.id(j+1, ii), m.id(j+1, i)},
			)
		}
	}
	// Fans closing the first ring on phi = 0 and the last ring on phi = π.
	for i := 0; i < m.nlon; i++ {
		ii := (i + 1) % m.nlon
		m.triangles = append(m.triangles, [3]int{m.id(0, i), m.id(0, ii), m.topPole()})
	}
	for i := 0; i < m.nlon; i++ {
		ii := (i + 1) % m.nlon
		m.triangles = append(m.triangles, [3]int{m.id(m.nlat-1, i), m.id(m.nlat-1, ii), m.bottomPole()})
	}
}
