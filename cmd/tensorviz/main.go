package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/term"

	"github.com/dtiviz/tensorviz"
	"github.com/dtiviz/tensorviz/nrrd"
	"github.com/dtiviz/tensorviz/utils"
)

var (
	// Flags
	source      = flag.String("in", "", "Source NRRD tensor volume or directory of volumes")
	destination = flag.String("out", "", "Destination directory")
	mode        = flag.String("mode", "both", "Geometry to generate: glyphs, fibers or both")
	slices      = flag.String("slices", "xyz", "Slice normals used for glyphs and seeding")
	sliceX      = flag.Float64("x", math.NaN(), "X slice position in world coordinates (default: volume center)")
	sliceY      = flag.Float64("y", math.NaN(), "Y slice position in world coordinates (default: volume center)")
	sliceZ      = flag.Float64("z", math.NaN(), "Z slice position in world coordinates (default: volume center)")
	numSeeds    = flag.Int("seeds", 5000, "Number of fiber seeds sampled on the slices")
	randSeed    = flag.Int64("seed", 0, "Random seed for subsampling (0: time based)")
	configFile  = flag.String("config", "", "TOML or YAML parameter file")
	preview     = flag.Bool("preview", false, "Write a PNG preview of the generated geometry")
	faVolume    = flag.Bool("fa", false, "Write the fractional anisotropy volume")
	view        = flag.String("view", "z", "Preview view axis")
	wireframe   = flag.Int("wireframe", tensorviz.WithoutWireframe, "Preview wireframe mode")
	verbose     = flag.Bool("v", false, "Verbose logging")
)

func main() {
	flag.Parse()

	if len(*source) == 0 || len(*destination) == 0 {
		log.Fatal("Usage: tensorviz -in volume.nrrd -out dir")
	}
	switch *mode {
	case "glyphs", "fibers", "both":
	default:
		log.Fatalf("Unknown mode %q", *mode)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	tensorviz.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := tensorviz.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = tensorviz.LoadConfig(*configFile); err != nil {
			log.Fatalf("Unable to read parameters: %v", err)
		}
	}
	if *randSeed != 0 {
		cfg.Glyph.Rand = tensorviz.NewRand(*randSeed)
	}

	in, err := homedir.Expand(*source)
	if err != nil {
		log.Fatalf("Unable to expand source path: %v", err)
	}
	out, err := homedir.Expand(*destination)
	if err != nil {
		log.Fatalf("Unable to expand destination path: %v", err)
	}

	fs, err := os.Stat(in)
	if err != nil {
		log.Fatalf("Unable to open source: %v", err)
	}

	toProcess := make(map[string]string)
	switch fm := fs.Mode(); {
	case fm.IsDir():
		files, err := os.ReadDir(in)
		if err != nil {
			log.Fatalf("Unable to read dir: %v", err)
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".nrrd" {
				continue
			}
			name := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
			toProcess[filepath.Join(in, f.Name())] = filepath.Join(out, name)
		}
	case fm.IsRegular():
		toProcess[in] = out
	}

	interactive := term.IsTerminal(int(os.Stderr.Fd())) && !*verbose
	for src, dst := range toProcess {
		var s *utils.Spinner
		if interactive {
			s = utils.NewSpinner()
			s.Start("Generating geometry from " + filepath.Base(src) + "...")
		}
		start := time.Now()
		sum, err := process(src, dst, cfg)
		if s != nil {
			s.Stop()
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", utils.Failure("Error processing"), src, err)
			continue
		}
		fmt.Printf("\n%s generated in: %s\n", utils.Bold(filepath.Base(src)), utils.Success(utils.FormatTime(time.Since(start))))
		if sum.glyphs > 0 {
			fmt.Printf("Total number of %s glyphs from %s tensors\n",
				utils.Success(fmt.Sprint(sum.glyphs)), utils.Success(fmt.Sprint(sum.tensors)))
		}
		if sum.seeds > 0 {
			fmt.Printf("Total number of %s fibers from %s seeds (%.1f seeds/s)\n",
				utils.Success(fmt.Sprint(sum.stats.Fibers)), utils.Success(fmt.Sprint(sum.seeds)),
				utils.Rate(sum.seeds, sum.stats.Total))
		}
		for _, f := range sum.files {
			fmt.Printf("Saved as: %s %s\n", f, utils.Success("✓"))
		}
		fmt.Println()
	}
}

type summary struct {
	tensors int
	glyphs  int
	seeds   int
	stats   tensorviz.LineStats
	files   []string
}

func process(src, dst string, cfg tensorviz.Config) (*summary, error) {
	field, err := tensorviz.LoadNRRD(src)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, err
	}

	planes, err := probeSlices(field)
	if err != nil {
		return nil, err
	}
	sum := &summary{}

	var glyphs *tensorviz.Mesh
	if *mode != "fibers" {
		glyphs = &tensorviz.Mesh{}
		for _, pl := range planes {
			m, err := tensorviz.SynthesizeGlyphs(pl, cfg.Glyph)
			if err != nil {
				return nil, err
			}
			glyphs.Append(m)
			sum.tensors += pl.NumPoints()
		}
		sphere, err := tensorviz.NewSphereMesh(cfg.Glyph.Resolution, cfg.Glyph.Longitudes)
		if err != nil {
			return nil, err
		}
		sum.glyphs = len(glyphs.Points) / sphere.NumPoints()
		path := filepath.Join(dst, "glyphs.vtk")
		if err := writeFile(path, func(f *os.File) error { return glyphs.WriteVTK(f, "superquadric tensor glyphs") }); err != nil {
			return nil, err
		}
		sum.files = append(sum.files, path)
	}

	var fibers *tensorviz.Polylines
	if *mode != "glyphs" {
		var rnd tensorviz.Rand
		if *randSeed != 0 {
			rnd = tensorviz.NewRand(*randSeed + 1)
		}
		seeds := tensorviz.SampleSeeds(planes, *numSeeds, rnd)
		sum.seeds = len(seeds)
		fibers, sum.stats, err = tensorviz.IntegrateFibers(field, seeds, cfg.Lines)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dst, "fibers.vtk")
		if err := writeFile(path, func(f *os.File) error { return fibers.WriteVTK(f, "tensor lines") }); err != nil {
			return nil, err
		}
		sum.files = append(sum.files, path)
	}

	if *faVolume {
		path := filepath.Join(dst, "fa.nrrd")
		if err := writeFile(path, func(f *os.File) error { return nrrd.Write(f, tensorviz.FAVolume(field)) }); err != nil {
			return nil, err
		}
		sum.files = append(sum.files, path)
	}

	if *preview {
		axis, err := tensorviz.ParseSliceAxis(*view)
		if err != nil {
			return nil, err
		}
		p := tensorviz.DefaultPreview()
		p.View = axis
		p.Wireframe = *wireframe
		path := filepath.Join(dst, "preview.png")
		if err := writeFile(path, func(f *os.File) error { return p.Encode(f, glyphs, fibers) }); err != nil {
			return nil, err
		}
		sum.files = append(sum.files, path)
	}
	return sum, nil
}

// probeSlices samples the volume on the selected orthogonal planes at the
// resolution of the grid.
func probeSlices(field *tensorviz.ImageField) ([]*tensorviz.PointSet, error) {
	center := field.Bounds().Center()
	positions := map[tensorviz.SliceAxis]float64{
		tensorviz.SliceX: pick(*sliceX, center.X),
		tensorviz.SliceY: pick(*sliceY, center.Y),
		tensorviz.SliceZ: pick(*sliceZ, center.Z),
	}
	var planes []*tensorviz.PointSet
	for _, r := range *slices {
		axis, err := tensorviz.ParseSliceAxis(string(r))
		if err != nil {
			return nil, err
		}
		u, v := inPlaneDims(field, axis)
		pl, err := tensorviz.ProbeSlice(field, axis, positions[axis], u, v)
		if err != nil {
			return nil, err
		}
		planes = append(planes, pl)
	}
	return planes, nil
}

func inPlaneDims(field *tensorviz.ImageField, axis tensorviz.SliceAxis) (int, int) {
	switch axis {
	case tensorviz.SliceX:
		return field.Dims[1], field.Dims[2]
	case tensorviz.SliceY:
		return field.Dims[0], field.Dims[2]
	}
	return field.Dims[0], field.Dims[1]
}

func pick(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return v
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
