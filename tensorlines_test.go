package tensorviz

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dtiviz/tensorviz/ode"
)

// constantField returns a unit spaced grid of the given size holding the
// same tensor everywhere.
func constantField(t testing.TB, dims [3]int, tensor Tensor) *ImageField {
	t.Helper()
	tensors := make([]Tensor, dims[0]*dims[1]*dims[2])
	for i := range tensors {
		tensors[i] = tensor
	}
	f, err := NewImageField(dims, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, tensors)
	require.NoError(t, err)
	return f
}

func TestEigenvectorFieldSign(t *testing.T) {
	f := constantField(t, [3]int{5, 5, 5}, Diag(1, 1, 10))
	p := r3.Vec{X: 2, Y: 2, Z: 2}

	fwd := NewEigenvectorField(f, 1).Eval(p)
	bwd := NewEigenvectorField(f, -1).Eval(p)
	assert.InDelta(t, 1, math.Abs(fwd.Z), 1e-12)
	assert.Equal(t, r3.Scale(-1, fwd), bwd)

	// Later evaluations keep the orientation of the first one.
	e := NewEigenvectorField(f, -1)
	first := e.Eval(p)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, e.Eval(r3.Vec{X: 2, Y: 2, Z: 1.5 + float64(i)}))
	}

	assert.Equal(t, r3.Vec{}, e.Eval(r3.Vec{X: 9, Y: 2, Z: 2}))
}

func TestEigenvectorFieldFlip(t *testing.T) {
	// The major eigenvector rotates by 90 degrees across the grid; the
	// chosen direction must stay continuous.
	dims := [3]int{5, 5, 5}
	tensors := make([]Tensor, 125)
	for k := 0; k < 5; k++ {
		for j := 0; j < 5; j++ {
			for i := 0; i < 5; i++ {
				a := float64(i) / 4 * math.Pi / 2
				c, s := math.Cos(a), math.Sin(a)
				// 10·u·uᵀ + I with u = (cos a, sin a, 0).
				tensors[i+5*(j+5*k)] = Tensor{
					1 + 10*c*c, 10 * c * s, 0,
					10 * c * s, 1 + 10*s*s, 0,
					0, 0, 1,
				}
			}
		}
	}
	f, err := NewImageField(dims, r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, tensors)
	require.NoError(t, err)

	e := NewEigenvectorField(f, 1)
	prev := e.Eval(r3.Vec{X: 0.5, Y: 2, Z: 2})
	for x := 0.6; x < 3.5; x += 0.1 {
		d := e.Eval(r3.Vec{X: x, Y: 2, Z: 2})
		assert.GreaterOrEqual(t, r3.Dot(prev, d), 0.0, "x=%g", x)
		prev = d
	}
}

func TestEvents(t *testing.T) {
	f := constantField(t, [3]int{5, 5, 5}, Diag(1, 1, 10))
	fa := AnisotropyEvent(f, 0.3)
	assert.InDelta(t, math.Sqrt(162./204.)-0.3, fa(r3.Vec{X: 2, Y: 2, Z: 2}), 1e-12)
	assert.InDelta(t, -0.3, fa(r3.Vec{X: 7, Y: 2, Z: 2}), 1e-12)

	domain := DomainEvent(f.Bounds())
	assert.Equal(t, 1.0, domain(r3.Vec{X: 1, Y: 2, Z: 3}))
	assert.Equal(t, -1.0, domain(r3.Vec{X: 5, Y: 2, Z: 2}))
}

func TestIntegrateLineStraight(t *testing.T) {
	f := constantField(t, [3]int{21, 21, 201}, Diag(1, 1, 10))
	p := DefaultLineParams()
	p.MaxLength = 80
	seed := r3.Vec{X: 10, Y: 10, Z: 100}

	fwd, err := IntegrateLine(f, seed, 1, p)
	require.NoError(t, err)
	bwd, err := IntegrateLine(f, seed, -1, p)
	require.NoError(t, err)

	for _, tr := range []*Trajectory{fwd, bwd} {
		assert.Equal(t, ode.Finished, tr.Status)
		require.Len(t, tr.Points, 80)
		assert.Equal(t, seed, tr.Points[0])
		end := tr.Points[len(tr.Points)-1]
		assert.InDelta(t, 10, end.X, 1e-9)
		assert.InDelta(t, 10, end.Y, 1e-9)
		assert.InDelta(t, 80, math.Abs(end.Z-100), 1e-6)
	}
	// Opposite directions.
	assert.InDelta(t, 200, fwd.Points[79].Z+bwd.Points[79].Z, 1e-6)
}

func TestIntegrateLineReachesMaxLength(t *testing.T) {
	f := constantField(t, [3]int{21, 21, 401}, Diag(1, 1, 10))
	p := DefaultLineParams()
	p.MaxLength = 150
	seed := r3.Vec{X: 10, Y: 10, Z: 200}

	tr, err := IntegrateLine(f, seed, 1, p)
	require.NoError(t, err)
	assert.Equal(t, ode.Finished, tr.Status)
	require.Len(t, tr.Points, 150)
	end := tr.Points[len(tr.Points)-1]
	assert.InDelta(t, 150, math.Abs(end.Z-200), 1e-6)
}

func TestLinspaceEndpoint(t *testing.T) {
	for _, n := range []int{27, 29, 30, 31, 47, 55, 88, 89, 107, 150, 182, 202} {
		xs := linspace(0, float64(n), n)
		require.Len(t, xs, n)
		assert.Equal(t, 0.0, xs[0])
		assert.Equal(t, float64(n), xs[n-1], "n=%d", n)
	}
	assert.Equal(t, []float64{2}, linspace(2, 5, 1))
	assert.Nil(t, linspace(2, 5, 0))
}

func TestIntegrateLineLeavesDomain(t *testing.T) {
	f := constantField(t, [3]int{21, 21, 201}, Diag(1, 1, 10))
	p := DefaultLineParams()
	seed := r3.Vec{X: 10, Y: 10, Z: 190}

	var stopped *Trajectory
	for _, sign := range []float64{1, -1} {
		tr, err := IntegrateLine(f, seed, sign, p)
		require.NoError(t, err)
		if tr.Status == ode.Terminated {
			stopped = tr
		}
		for _, q := range tr.Points {
			assert.Less(t, q.Z, 200.0)
		}
	}
	require.NotNil(t, stopped)
	assert.Equal(t, "domain", stopped.Stop)
	assert.Less(t, len(stopped.Points), 12)
}

func TestIntegrateLineIsotropic(t *testing.T) {
	f := constantField(t, [3]int{11, 11, 11}, Diag(1, 1, 1))
	tr, err := IntegrateLine(f, r3.Vec{X: 5, Y: 5, Z: 5}, 1, DefaultLineParams())
	require.NoError(t, err)
	assert.Equal(t, ode.Terminated, tr.Status)
	assert.Equal(t, "anisotropy", tr.Stop)
	assert.Len(t, tr.Points, 1)
}

func TestIntegrateFibers(t *testing.T) {
	f := constantField(t, [3]int{21, 21, 201}, Diag(1, 1, 10))
	p := DefaultLineParams()
	p.MaxLength = 80
	p.Workers = 2
	seeds := []r3.Vec{
		{X: 10, Y: 10, Z: 100},
		{X: 5, Y: 5, Z: 100},
		{X: 10, Y: 10, Z: 30}, // one side leaves the volume early
	}

	lines, stats, err := IntegrateFibers(f, seeds, p)
	require.NoError(t, err)
	assert.Equal(t, 5, lines.NumLines())
	assert.Equal(t, 5, stats.Fibers)
	assert.Equal(t, 3, stats.Seeds)
	assert.Equal(t, 6, stats.Integrations)
	assert.Len(t, lines.Colors, len(lines.Points))

	// Seed order is kept.
	assert.Equal(t, seeds[0], lines.Line(0)[0])
	assert.Equal(t, seeds[0], lines.Line(1)[0])
	assert.Equal(t, seeds[1], lines.Line(2)[0])
	assert.Equal(t, seeds[2], lines.Line(4)[0])

	for i := 0; i < lines.NumLines(); i++ {
		assert.Greater(t, len(lines.Line(i)), p.MinPoints)
	}
	// Lines run along z.
	for _, c := range lines.Colors {
		assert.Equal(t, RGB{0, 0, 255}, c)
	}
}

func TestIntegrateFibersDeterministic(t *testing.T) {
	f := constantField(t, [3]int{21, 21, 201}, Diag(1, 1, 10))
	p := DefaultLineParams()
	p.MaxLength = 60
	var seeds []r3.Vec
	for i := 0; i < 8; i++ {
		seeds = append(seeds, r3.Vec{X: 2 + 2*float64(i), Y: 10, Z: 100})
	}

	p.Workers = 1
	serial, _, err := IntegrateFibers(f, seeds, p)
	require.NoError(t, err)
	p.Workers = 4
	parallel, _, err := IntegrateFibers(f, seeds, p)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestIntegrateFibersIsotropic(t *testing.T) {
	f := constantField(t, [3]int{11, 11, 11}, Diag(2, 2, 2))
	lines, stats, err := IntegrateFibers(f, []r3.Vec{{X: 5, Y: 5, Z: 5}, {X: 3, Y: 4, Z: 5}}, DefaultLineParams())
	require.NoError(t, err)
	assert.Zero(t, lines.NumLines())
	assert.Empty(t, lines.Points)
	assert.Zero(t, stats.Fibers)
}

func TestIntegrateFibersInvalid(t *testing.T) {
	f := constantField(t, [3]int{3, 3, 3}, Diag(1, 1, 10))
	for _, mutate := range []func(*LineParams){
		func(p *LineParams) { p.StepSize = 0 },
		func(p *LineParams) { p.MaxLength = -1 },
		func(p *LineParams) { p.MinFA = 2 },
		func(p *LineParams) { p.RTol = 0 },
		func(p *LineParams) { p.Workers = -1 },
	} {
		p := DefaultLineParams()
		mutate(&p)
		_, _, err := IntegrateFibers(f, []r3.Vec{{X: 1, Y: 1, Z: 1}}, p)
		assert.Error(t, err)
	}
	_, _, err := IntegrateFibers(nil, nil, DefaultLineParams())
	assert.Error(t, err)
}

func TestCurveColors(t *testing.T) {
	line := []r3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 2, Y: 1}}
	colors := CurveColors(line, nil)
	assert.Equal(t, RGB{255, 0, 0}, colors[0])
	assert.Equal(t, RGB{255, 0, 0}, colors[1])
	assert.Equal(t, RGB{0, 255, 0}, colors[3])
	// Central difference (1, 1, 0)/√2 at the corner.
	assert.Equal(t, RGB{180, 180, 0}, colors[2])

	faded := CurveColors(line, []float64{0, 0.5, 1, 1})
	assert.Equal(t, RGB{255, 255, 255}, faded[0])
	assert.Equal(t, RGB{255, 127, 127}, faded[1])
	assert.Equal(t, RGB{0, 255, 0}, faded[3])

	assert.Equal(t, []RGB{{0, 0, 0}}, CurveColors([]r3.Vec{{}}, nil))
	assert.Empty(t, CurveColors(nil, nil))
}

func TestPolylines(t *testing.T) {
	var pl Polylines
	assert.Zero(t, pl.NumLines())
	pl.append([]r3.Vec{{}, {X: 1}}, []RGB{{}, {}})
	pl.append([]r3.Vec{{Y: 1}, {Y: 2}, {Y: 3}}, []RGB{{}, {}, {}})
	assert.Equal(t, 2, pl.NumLines())
	assert.Equal(t, []int{0, 2, 5}, pl.Offsets)
	assert.Equal(t, []r3.Vec{{Y: 1}, {Y: 2}, {Y: 3}}, pl.Line(1))
}
