package tensorviz

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	WithoutWireframe = iota
	WithWireframe
	WireframeOnly
)

// Preview renders generated geometry as a static orthographic image seen
// along one of the coordinate axes.
type Preview struct {
	Width  int
	Height int
	// View is the axis the scene is looked along, from its positive side.
	View      SliceAxis
	Wireframe int
	LineWidth float64
	// Supersample renders at a multiple of the output size before
	// downscaling. Values below 2 disable it.
	Supersample int
	Background  color.Color
}

// DefaultPreview returns an 800x600 filled preview looking down the z axis.
func DefaultPreview() *Preview {
	return &Preview{
		Width:       800,
		Height:      600,
		View:        SliceZ,
		Wireframe:   WithoutWireframe,
		LineWidth:   1,
		Supersample: 2,
		Background:  color.Black,
	}
}

// projection maps world points to pixel coordinates and depth.
type projection struct {
	u, v, w int
	scale   float64
	min     r3.Vec
	ox, oy  float64
	height  float64
}

func newProjection(b Bounds, view SliceAxis, width, height int) projection {
	u, v := view.inPlane()
	pr := projection{u: u, v: v, w: int(view), min: b.Min, height: float64(height)}
	du := component(b.Max, u) - component(b.Min, u)
	dv := component(b.Max, v) - component(b.Min, v)
	const margin = 0.9
	pr.scale = margin * math.Min(float64(width)/math.Max(du, 1e-12), float64(height)/math.Max(dv, 1e-12))
	pr.ox = (float64(width) - pr.scale*du) / 2
	pr.oy = (float64(height) - pr.scale*dv) / 2
	return pr
}

func (pr projection) project(p r3.Vec) (x, y, depth float64) {
	x = pr.ox + pr.scale*(component(p, pr.u)-component(pr.min, pr.u))
	y = pr.height - pr.oy - pr.scale*(component(p, pr.v)-component(pr.min, pr.v))
	return x, y, component(p, pr.w)
}

func toColor(c RGB, a uint8) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: a}
}

// Draw renders the mesh and the lines, either of which may be nil.
func (p *Preview) Draw(mesh *Mesh, lines *Polylines) (image.Image, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, errors.New("preview size must be positive")
	}
	var all []r3.Vec
	if mesh != nil {
		all = append(all, mesh.Points...)
	}
	if lines != nil {
		all = append(all, lines.Points...)
	}
	if len(all) == 0 {
		return nil, errors.New("nothing to preview")
	}

	ss := Max(p.Supersample, 1)
	width, height := p.Width*ss, p.Height*ss
	pr := newProjection(boundsOf(all), p.View, width, height)

	ctx := gg.NewContext(width, height)
	bg := p.Background
	if bg == nil {
		bg = color.Black
	}
	ctx.SetColor(bg)
	ctx.Clear()
	lineWidth := p.LineWidth * float64(ss)

	if mesh != nil {
		type face struct {
			tri   [3]int
			depth float64
		}
		faces := make([]face, len(mesh.Triangles))
		for i, t := range mesh.Triangles {
			var d float64
			for _, k := range t {
				_, _, z := pr.project(mesh.Points[k])
				d += z
			}
			faces[i] = face{tri: t, depth: d / 3}
		}
		sort.SliceStable(faces, func(i, j int) bool { return faces[i].depth < faces[j].depth })

		for _, f := range faces {
			var xs, ys [3]float64
			var rgb [3]int
			for n, k := range f.tri {
				xs[n], ys[n], _ = pr.project(mesh.Points[k])
				if k < len(mesh.Colors) {
					for c := range rgb {
						rgb[c] += int(mesh.Colors[k][c])
					}
				}
			}
			fill := color.RGBA{R: uint8(rgb[0] / 3), G: uint8(rgb[1] / 3), B: uint8(rgb[2] / 3), A: 255}

			ctx.Push()
			ctx.MoveTo(xs[0], ys[0])
			ctx.LineTo(xs[1], ys[1])
			ctx.LineTo(xs[2], ys[2])
			ctx.ClosePath()

			switch p.Wireframe {
			case WithoutWireframe:
				ctx.SetFillStyle(gg.NewSolidPattern(fill))
				ctx.Fill()
			case WithWireframe:
				ctx.SetFillStyle(gg.NewSolidPattern(fill))
				ctx.SetStrokeStyle(gg.NewSolidPattern(color.RGBA{R: 0, G: 0, B: 0, A: 60}))
				ctx.SetLineWidth(lineWidth)
				ctx.FillPreserve()
				ctx.Stroke()
			case WireframeOnly:
				ctx.SetStrokeStyle(gg.NewSolidPattern(fill))
				ctx.SetLineWidth(lineWidth)
				ctx.Stroke()
			}
			ctx.Pop()
		}
	}

	if lines != nil {
		ctx.SetLineWidth(lineWidth)
		for i := 0; i < lines.NumLines(); i++ {
			for k := lines.Offsets[i]; k+1 < lines.Offsets[i+1]; k++ {
				x0, y0, _ := pr.project(lines.Points[k])
				x1, y1, _ := pr.project(lines.Points[k+1])
				if k < len(lines.Colors) {
					ctx.SetColor(toColor(lines.Colors[k], 255))
				}
				ctx.DrawLine(x0, y0, x1, y1)
				ctx.Stroke()
			}
		}
	}

	img := ctx.Image()
	if ss == 1 {
		return img, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// Encode renders the geometry and writes it as PNG.
func (p *Preview) Encode(w io.Writer, mesh *Mesh, lines *Polylines) error {
	img, err := p.Draw(mesh, lines)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
