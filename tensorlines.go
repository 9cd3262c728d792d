package tensorviz

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dtiviz/tensorviz/ode"
)

// LineParams controls tensor line integration.
type LineParams struct {
	// StepSize is the first integration step and the spacing of the output
	// samples along the line.
	StepSize  float64 `toml:"step_size" yaml:"step_size"`
	MaxLength float64 `toml:"max_length" yaml:"max_length"`
	// MaxSteps bounds the number of internal solver steps per trajectory.
	MaxSteps int `toml:"max_steps" yaml:"max_steps"`
	// MinFA stops a trajectory when the anisotropy falls below it.
	MinFA float64 `toml:"min_fa" yaml:"min_fa"`
	RTol  float64 `toml:"rtol" yaml:"rtol"`
	ATol  float64 `toml:"atol" yaml:"atol"`
	// ControlSaturation fades line colors to white with decreasing FA.
	ControlSaturation bool `toml:"control_saturation" yaml:"control_saturation"`
	// MinPoints discards trajectories with MinPoints samples or fewer.
	MinPoints int `toml:"min_points" yaml:"min_points"`
	// Workers is the number of seeds integrated concurrently.
	// Zero uses GOMAXPROCS.
	Workers int `toml:"workers" yaml:"workers"`
}

// DefaultLineParams returns the default tensor line settings.
func DefaultLineParams() LineParams {
	return LineParams{
		StepSize:  1,
		MaxLength: 100,
		MaxSteps:  500,
		MinFA:     0.3,
		RTol:      1e-3,
		ATol:      1e-3,
		MinPoints: 50,
	}
}

// Validate reports the first invalid setting.
func (p LineParams) Validate() error {
	switch {
	case !(p.StepSize > 0):
		return fmt.Errorf("step size must be positive, got %g", p.StepSize)
	case !(p.MaxLength > 0):
		return fmt.Errorf("maximum length must be positive, got %g", p.MaxLength)
	case p.MaxSteps < 0:
		return fmt.Errorf("maximum number of steps must not be negative, got %d", p.MaxSteps)
	case p.MinFA < 0 || p.MinFA > 1:
		return fmt.Errorf("minimum FA must be in [0, 1], got %g", p.MinFA)
	case !(p.RTol > 0) || !(p.ATol > 0):
		return fmt.Errorf("tolerances must be positive, got rtol=%g atol=%g", p.RTol, p.ATol)
	case p.MinPoints < 0:
		return fmt.Errorf("minimum number of points must not be negative, got %d", p.MinPoints)
	case p.Workers < 0:
		return fmt.Errorf("number of workers must not be negative, got %d", p.Workers)
	}
	return nil
}

// samples returns the output parameter grid along the line.
func (p LineParams) samples() []float64 {
	return linspace(0, p.MaxLength, int(p.MaxLength/p.StepSize))
}

// Trajectory is a single integrated tensor line.
type Trajectory struct {
	Points []r3.Vec
	Status ode.Status
	// Stop is the reason of a terminal event: "anisotropy" or "domain".
	Stop string
}

// Polylines is a set of colored lines sharing one point buffer. Line i
// spans Points[Offsets[i]:Offsets[i+1]].
type Polylines struct {
	Points  []r3.Vec
	Offsets []int
	Colors  []RGB
}

// NumLines returns the number of lines.
func (pl *Polylines) NumLines() int {
	if len(pl.Offsets) == 0 {
		return 0
	}
	return len(pl.Offsets) - 1
}

// Line returns the points of line i.
func (pl *Polylines) Line(i int) []r3.Vec {
	return pl.Points[pl.Offsets[i]:pl.Offsets[i+1]]
}

func (pl *Polylines) append(points []r3.Vec, colors []RGB) {
	if len(pl.Offsets) == 0 {
		pl.Offsets = append(pl.Offsets, 0)
	}
	pl.Points = append(pl.Points, points...)
	pl.Colors = append(pl.Colors, colors...)
	pl.Offsets = append(pl.Offsets, len(pl.Points))
}

// LineStats summarizes a run of IntegrateFibers.
type LineStats struct {
	Seeds  int
	Fibers int
	// Integrations counts the trajectories integrated (two per seed).
	Integrations int
	// Integrate and Color are summed over all workers.
	Integrate time.Duration
	Color     time.Duration
	Total     time.Duration
}

// IntegrateLine traces one tensor line from seed in the direction of sign.
func IntegrateLine(f Field, seed r3.Vec, sign float64, p LineParams) (*Trajectory, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return integrateLine(f, NewEigenvectorField(f, sign), seed, p)
}

func integrateLine(f Field, rhs *EigenvectorField, seed r3.Vec, p LineParams) (*Trajectory, error) {
	fa := AnisotropyEvent(f, p.MinFA)
	domain := DomainEvent(f.Bounds())
	events := []ode.Event{
		{Func: func(_ float64, y []float64) float64 { return fa(vec(y)) }, Terminal: true, Direction: -1},
		{Func: func(_ float64, y []float64) float64 { return domain(vec(y)) }, Terminal: true, Direction: -1},
	}
	sol, err := ode.Solve(rhs.Func, 0, p.MaxLength, []float64{seed.X, seed.Y, seed.Z}, ode.Options{
		RTol:      p.RTol,
		ATol:      p.ATol,
		FirstStep: p.StepSize,
		MaxSteps:  p.MaxSteps,
		TEval:     p.samples(),
		Events:    events,
	})
	if err != nil {
		return nil, err
	}
	tr := &Trajectory{Points: make([]r3.Vec, len(sol.Y)), Status: sol.Status}
	for i, y := range sol.Y {
		tr.Points[i] = vec(y)
	}
	if sol.Status == ode.Terminated && len(sol.Hits) > 0 {
		tr.Stop = [...]string{"anisotropy", "domain"}[sol.Hits[len(sol.Hits)-1].Event]
	}
	return tr, nil
}

func vec(y []float64) r3.Vec { return r3.Vec{X: y[0], Y: y[1], Z: y[2]} }

// CurveColors colors a line by its absolute unit tangent. With fa non nil
// each color is blended towards white by 1-FA.
func CurveColors(points []r3.Vec, fa []float64) []RGB {
	n := len(points)
	colors := make([]RGB, n)
	if n == 0 {
		return colors
	}
	for i := range points {
		var d r3.Vec
		switch {
		case n == 1:
		case i == 0:
			d = r3.Sub(points[1], points[0])
		case i == n-1:
			d = r3.Sub(points[n-1], points[n-2])
		default:
			d = r3.Sub(points[i+1], points[i-1])
		}
		norm := r3.Norm(d)
		tangent := [3]float64{
			finite(math.Abs(d.X / norm)),
			finite(math.Abs(d.Y / norm)),
			finite(math.Abs(d.Z / norm)),
		}
		sat := 1.0
		if fa != nil {
			sat = Clamp(fa[i], 0, 1)
		}
		for c, v := range tangent {
			colors[i][c] = toUint8(sat*v + (1 - sat))
		}
	}
	return colors
}

// fiber is the outcome of one seed: up to two kept trajectories.
type fiber struct {
	points    [][]r3.Vec
	colors    [][]RGB
	integrate time.Duration
	color     time.Duration
}

// IntegrateFibers traces a tensor line forward and backward from every
// seed and returns the trajectories longer than p.MinPoints samples.
// Seeds are spread over p.Workers goroutines; the output keeps seed order,
// forward line first.
func IntegrateFibers(f Field, seeds []r3.Vec, p LineParams) (*Polylines, LineStats, error) {
	if f == nil {
		return nil, LineStats{}, errors.New("no tensor field to integrate")
	}
	if err := p.Validate(); err != nil {
		return nil, LineStats{}, err
	}
	start := time.Now()
	workers := p.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]fiber, len(seeds))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, seed := range seeds {
		g.Go(func() error {
			rhs := NewEigenvectorField(f, 1)
			res := &results[i]
			for _, sign := range [2]float64{1, -1} {
				t0 := time.Now()
				rhs.Reset(sign)
				tr, err := integrateLine(f, rhs, seed, p)
				if err != nil {
					return fmt.Errorf("seed %d: %w", i, err)
				}
				res.integrate += time.Since(t0)
				if len(tr.Points) <= p.MinPoints {
					continue
				}

				t1 := time.Now()
				var fa []float64
				if p.ControlSaturation {
					fa = make([]float64, len(tr.Points))
					for k, q := range tr.Points {
						fa[k] = FAAt(f, q)
					}
				}
				res.points = append(res.points, tr.Points)
				res.colors = append(res.colors, CurveColors(tr.Points, fa))
				res.color += time.Since(t1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, LineStats{}, err
	}

	out := &Polylines{}
	stats := LineStats{Seeds: len(seeds), Integrations: 2 * len(seeds)}
	for _, res := range results {
		for k := range res.points {
			out.append(res.points[k], res.colors[k])
		}
		stats.Integrate += res.integrate
		stats.Color += res.color
	}
	stats.Fibers = out.NumLines()
	stats.Total = time.Since(start)

	Logger().Info("fibers integrated",
		"seeds", stats.Seeds,
		"fibers", stats.Fibers,
		"points", len(out.Points),
		"total", stats.Total,
		"integration", stats.Integrate,
		"coloring", stats.Color,
		"workers", workers,
	)
	return out, stats, nil
}
