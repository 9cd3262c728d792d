/*
Package tensorviz turns fields of symmetric 3x3 diffusion tensors into renderable geometry:
superquadric tensor glyphs and tensor lines (hyperstreamlines) traced along the major eigenvector.

The package provides a command line utility which reads NRRD tensor volumes and writes
the geometry as VTK polydata, optionally with a PNG preview.
Check the supported commands by typing:

	$ tensorviz --help

Example to build glyphs on a slice of a tensor volume:

	package main

	import (
		"fmt"
		"os"

		"github.com/dtiviz/tensorviz"
	)

	func main() {
		field, err := tensorviz.LoadNRRD("dti.nrrd")
		if err != nil {
			fmt.Printf("Error loading the volume: %s", err.Error())
			return
		}
		slice, err := field.Slice(tensorviz.SliceZ, field.Dims[2]/2)
		if err != nil {
			fmt.Printf("Error extracting the slice: %s", err.Error())
			return
		}

		p := tensorviz.DefaultGlyphParams()
		p.Gamma = 5
		p.Scale = 1000
		p.MaxSize = 10
		mesh, err := tensorviz.SynthesizeGlyphs(slice, p)
		if err != nil {
			fmt.Printf("Error generating glyphs: %s", err.Error())
			return
		}
		mesh.WriteVTK(os.Stdout, "glyphs")
	}

Example to trace tensor lines from seeds sampled on the same slice:

	seeds := tensorviz.SampleSeeds([]*tensorviz.PointSet{slice}, 1000, nil)
	lines, stats, err := tensorviz.IntegrateFibers(field, seeds, tensorviz.DefaultLineParams())
	if err != nil {
		fmt.Printf("Error integrating fibers: %s", err.Error())
		return
	}
	fmt.Printf("%d fibers in %s\n", stats.Fibers, stats.Total)
	lines.WriteVTK(os.Stdout, "fibers")

The package is silent by default; install a logger with SetLogger to see stage timings
and run summaries.
*/
package tensorviz
