package tensorviz

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

const vtkHeader = "# vtk DataFile Version 3.0\n%s\nASCII\nDATASET POLYDATA\n"

// WriteVTK writes the mesh as a legacy ASCII VTK polydata file with the
// per point colors as COLOR_SCALARS.
func (m *Mesh) WriteVTK(w io.Writer, title string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, vtkHeader, title)
	writeVTKPoints(bw, m.Points)
	fmt.Fprintf(bw, "POLYGONS %d %d\n", len(m.Triangles), 4*len(m.Triangles))
	for _, t := range m.Triangles {
		fmt.Fprintf(bw, "3 %d %d %d\n", t[0], t[1], t[2])
	}
	writeVTKColors(bw, m.Colors)
	return bw.Flush()
}

// WriteVTK writes the lines as a legacy ASCII VTK polydata file.
func (pl *Polylines) WriteVTK(w io.Writer, title string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, vtkHeader, title)
	writeVTKPoints(bw, pl.Points)
	n := pl.NumLines()
	fmt.Fprintf(bw, "LINES %d %d\n", n, n+len(pl.Points))
	for i := 0; i < n; i++ {
		bw.WriteString(strconv.Itoa(pl.Offsets[i+1] - pl.Offsets[i]))
		for k := pl.Offsets[i]; k < pl.Offsets[i+1]; k++ {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(k))
		}
		bw.WriteByte('\n')
	}
	writeVTKColors(bw, pl.Colors)
	return bw.Flush()
}

func writeVTKPoints(bw *bufio.Writer, points []r3.Vec) {
	fmt.Fprintf(bw, "POINTS %d double\n", len(points))
	for _, p := range points {
		fmt.Fprintf(bw, "%s %s %s\n", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}
}

func writeVTKColors(bw *bufio.Writer, colors []RGB) {
	if len(colors) == 0 {
		return
	}
	fmt.Fprintf(bw, "POINT_DATA %d\nCOLOR_SCALARS colors 3\n", len(colors))
	for _, c := range colors {
		fmt.Fprintf(bw, "%s %s %s\n", ftoa(float64(c[0])/255), ftoa(float64(c[1])/255), ftoa(float64(c[2])/255))
	}
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
