// Package ode integrates systems of ordinary differential equations with
// the explicit Runge-Kutta 4(5) pair of Dormand and Prince.
//
// The solver adapts its step to keep the local error under
// ATol + RTol·|y|, resamples the trajectory on a caller supplied time grid
// through the 4th order continuous extension of the method, and stops on
// terminal events (zero crossings of scalar functions of the state).
package ode

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Func evaluates dy/dt at (t, y) and stores it in dy.
type Func func(t float64, y, dy []float64)

// Event is a scalar function of the state whose zero crossings are
// detected during integration.
type Event struct {
	Func func(t float64, y []float64) float64
	// Terminal events stop the integration at the crossing.
	Terminal bool
	// Direction restricts detection to decreasing (-1) or increasing (+1)
	// crossings. Zero detects both.
	//
	// A terminal event with a direction that is already past its crossing
	// at the initial point (<= 0 for decreasing, >= 0 for increasing)
	// stops the integration before the first step.
	Direction int
}

// Options configures Solve. Zero values select the defaults.
type Options struct {
	// RTol and ATol are the relative and absolute tolerances (1e-3, 1e-6).
	RTol, ATol float64
	// FirstStep is the initial step size. Zero estimates it from the problem.
	FirstStep float64
	// MaxStep bounds the step size. Zero means unbounded.
	MaxStep float64
	// MaxSteps bounds the number of attempted steps. Zero means unbounded.
	MaxSteps int
	// TEval lists increasing times at which the solution is reported.
	// When nil every accepted step is reported.
	TEval  []float64
	Events []Event
}

// Status tells why the integration stopped.
type Status int

const (
	// Finished means the end of the interval was reached.
	Finished Status = iota
	// Terminated means a terminal event fired.
	Terminated
	// MaxStepsReached means Options.MaxSteps steps were attempted.
	MaxStepsReached
	// StepTooSmall means the step size underflowed the spacing of floats at t.
	StepTooSmall
)

func (s Status) String() string {
	switch s {
	case Finished:
		return "finished"
	case Terminated:
		return "terminated by event"
	case MaxStepsReached:
		return "maximum number of steps reached"
	case StepTooSmall:
		return "step size too small"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Hit records an event crossing.
type Hit struct {
	Event int
	T     float64
}

// Solution is the sampled trajectory.
type Solution struct {
	T      []float64
	Y      [][]float64
	Status Status
	// Hits lists the detected crossings in time order. When Status is
	// Terminated the last hit is the terminal one.
	Hits []Hit

	NFev      int
	NSteps    int
	NRejected int
}

const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 10
	// errExponent is -1/(order+1) for the embedded 4th order estimate.
	errExponent = -1.0 / 5
)

// Dormand-Prince coefficients.
var (
	tabC = [6]float64{0, 1. / 5, 3. / 10, 4. / 5, 8. / 9, 1}
	tabA = [6][5]float64{
		{},
		{1. / 5},
		{3. / 40, 9. / 40},
		{44. / 45, -56. / 15, 32. / 9},
		{19372. / 6561, -25360. / 2187, 64448. / 6561, -212. / 729},
		{9017. / 3168, -355. / 33, 46732. / 5247, 49. / 176, -5103. / 18656},
	}
	tabB = [6]float64{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84}
	tabE = [7]float64{-71. / 57600, 0, 71. / 16695, -71. / 1920, 17253. / 339200, -22. / 525, 1. / 40}
	// tabP gives the continuous extension: y(t_old + x·h) = y_old + h·Σ_k (K^T P)_k x^(k+1).
	tabP = [7][4]float64{
		{1, -8048581381. / 2820520608, 8663915743. / 2820520608, -12715105075. / 11282082432},
		{0, 0, 0, 0},
		{0, 131558114200. / 32700410799, -68118460800. / 10900136933, 87487479700. / 32700410799},
		{0, -1754552775. / 470086768, 14199869525. / 1410260304, -10690763975. / 1880347072},
		{0, 127303824393. / 49829197408, -318862633887. / 49829197408, 701980252875. / 199316789632},
		{0, -282668133. / 205662961, 2019193451. / 616988883, -1453857185. / 822651844},
		{0, 40617522. / 29380423, -110615467. / 29380423, 69997945. / 29380423},
	}
)

// solver holds the integration state.
type solver struct {
	f    Func
	n    int
	rtol float64
	atol float64
	nfev int

	k    [7][]float64
	tmp  []float64
	yNew []float64
	q    [4][]float64
}

func (s *solver) eval(t float64, y, dy []float64) {
	s.f(t, y, dy)
	s.nfev++
}

// step attempts a step of size h from (t, y), filling yNew and the stages.
// It returns the scaled error norm.
func (s *solver) step(t float64, y []float64, h float64) float64 {
	for i := 1; i < 6; i++ {
		copy(s.tmp, y)
		for j := 0; j < i; j++ {
			if a := tabA[i][j]; a != 0 {
				floats.AddScaled(s.tmp, h*a, s.k[j])
			}
		}
		s.eval(t+tabC[i]*h, s.tmp, s.k[i])
	}
	copy(s.yNew, y)
	for i, b := range tabB {
		if b != 0 {
			floats.AddScaled(s.yNew, h*b, s.k[i])
		}
	}
	s.eval(t+h, s.yNew, s.k[6])

	var sum float64
	for i := 0; i < s.n; i++ {
		var e float64
		for j, c := range tabE {
			e += c * s.k[j][i]
		}
		e *= h
		sc := s.atol + math.Max(math.Abs(y[i]), math.Abs(s.yNew[i]))*s.rtol
		sum += (e / sc) * (e / sc)
	}
	return math.Sqrt(sum / float64(s.n))
}

// prepareDense computes K^T P for the last accepted step.
func (s *solver) prepareDense() {
	for c := 0; c < 4; c++ {
		for i := range s.q[c] {
			s.q[c][i] = 0
		}
		for j := 0; j < 7; j++ {
			if p := tabP[j][c]; p != 0 {
				floats.AddScaled(s.q[c], p, s.k[j])
			}
		}
	}
}

// dense interpolates the last step [t0, t0+h] at t into dst.
func (s *solver) dense(t0, h float64, y0 []float64, t float64, dst []float64) []float64 {
	x := (t - t0) / h
	copy(dst, y0)
	xp := x
	for c := 0; c < 4; c++ {
		floats.AddScaled(dst, h*xp, s.q[c])
		xp *= x
	}
	return dst
}

// initialStep estimates a first step size from the local behavior of f.
func (s *solver) initialStep(t0 float64, y0, f0 []float64) float64 {
	rms := func(v []float64, scale []float64) float64 {
		var sum float64
		for i := range v {
			r := v[i] / scale[i]
			sum += r * r
		}
		return math.Sqrt(sum / float64(len(v)))
	}
	scale := make([]float64, s.n)
	for i := range scale {
		scale[i] = s.atol + math.Abs(y0[i])*s.rtol
	}
	d0, d1 := rms(y0, scale), rms(f0, scale)
	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	y1 := floats.AddScaledTo(make([]float64, s.n), y0, h0, f0)
	f1 := make([]float64, s.n)
	s.eval(t0+h0, y1, f1)
	d2 := rms(floats.SubTo(make([]float64, s.n), f1, f0), scale) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1./5)
	}
	return math.Min(100*h0, h1)
}

// crossed reports whether an event changed sign in its direction.
func crossed(dir int, g0, g1 float64) bool {
	down := g0 > 0 && g1 <= 0
	up := g0 < 0 && g1 >= 0
	switch {
	case dir < 0:
		return down
	case dir > 0:
		return up
	}
	return down || up
}

// Solve integrates y' = f(t, y) from t0 towards t1 > t0.
func Solve(f Func, t0, t1 float64, y0 []float64, opts Options) (*Solution, error) {
	if f == nil {
		return nil, errors.New("ode: nil function")
	}
	if len(y0) == 0 {
		return nil, errors.New("ode: empty initial state")
	}
	if !(t1 > t0) {
		return nil, fmt.Errorf("ode: end time %g must be after start time %g", t1, t0)
	}
	if opts.RTol == 0 {
		opts.RTol = 1e-3
	}
	if opts.ATol == 0 {
		opts.ATol = 1e-6
	}
	if opts.RTol < 0 || opts.ATol < 0 {
		return nil, fmt.Errorf("ode: tolerances must be positive, got rtol=%g atol=%g", opts.RTol, opts.ATol)
	}
	maxStep := opts.MaxStep
	if maxStep <= 0 {
		maxStep = math.Inf(1)
	}

	n := len(y0)
	s := &solver{f: f, n: n, rtol: opts.RTol, atol: opts.ATol, tmp: make([]float64, n), yNew: make([]float64, n)}
	for i := range s.k {
		s.k[i] = make([]float64, n)
	}
	for i := range s.q {
		s.q[i] = make([]float64, n)
	}

	sol := &Solution{}
	t := t0
	y := append([]float64(nil), y0...)
	tevalIdx := 0
	emit := func(te float64, ye []float64) {
		sol.T = append(sol.T, te)
		sol.Y = append(sol.Y, append([]float64(nil), ye...))
	}
	// Report the initial point.
	if opts.TEval == nil {
		emit(t, y)
	} else {
		for tevalIdx < len(opts.TEval) && opts.TEval[tevalIdx] <= t0 {
			if opts.TEval[tevalIdx] == t0 {
				emit(t0, y)
			}
			tevalIdx++
		}
	}
	defer func() { sol.NFev = s.nfev }()

	g := make([]float64, len(opts.Events))
	for i, ev := range opts.Events {
		g[i] = ev.Func(t, y)
		if ev.Terminal && ((ev.Direction < 0 && g[i] <= 0) || (ev.Direction > 0 && g[i] >= 0)) {
			sol.Hits = append(sol.Hits, Hit{Event: i, T: t})
			sol.Status = Terminated
			return sol, nil
		}
	}

	s.eval(t, y, s.k[0])
	h := opts.FirstStep
	if h <= 0 {
		h = s.initialStep(t, y, s.k[0])
	}
	h = math.Min(h, maxStep)

	gNew := make([]float64, len(opts.Events))
	yEv := make([]float64, n)
	for {
		// Attempt steps until one is accepted.
		var err float64
		rejected := false
		var tNew float64
		for {
			if opts.MaxSteps > 0 && sol.NSteps+sol.NRejected >= opts.MaxSteps {
				sol.Status = MaxStepsReached
				return sol, nil
			}
			minStep := 10 * math.Abs(math.Nextafter(t, math.Inf(1))-t)
			if h < minStep {
				sol.Status = StepTooSmall
				return sol, nil
			}
			tNew = t + h
			if tNew > t1 {
				tNew = t1
			}
			h = tNew - t
			err = s.step(t, y, h)
			if err < 1 {
				break
			}
			sol.NRejected++
			h *= math.Max(minFactor, safety*math.Pow(err, errExponent))
			rejected = true
		}
		sol.NSteps++

		factor := float64(maxFactor)
		if err > 0 {
			factor = math.Min(maxFactor, safety*math.Pow(err, errExponent))
		}
		if rejected {
			factor = math.Min(1, factor)
		}
		s.prepareDense()

		// Locate the earliest terminal crossing inside the step.
		tEnd := tNew
		stop := -1
		first := len(sol.Hits)
		for i, ev := range opts.Events {
			gNew[i] = ev.Func(tNew, s.yNew)
			if !crossed(ev.Direction, g[i], gNew[i]) {
				continue
			}
			root := s.findRoot(ev, t, tNew, g[i], h, y, yEv)
			sol.Hits = append(sol.Hits, Hit{Event: i, T: root})
			if ev.Terminal && root <= tEnd {
				tEnd, stop = root, i
			}
		}
		hits := sol.Hits[first:]
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].T < hits[j].T })
		if stop >= 0 {
			// Keep only hits up to the terminal one.
			kept := sol.Hits[:0]
			for _, hit := range sol.Hits {
				if hit.T < tEnd || hit.Event == stop {
					kept = append(kept, hit)
				}
			}
			sol.Hits = kept
		}

		if opts.TEval == nil {
			if stop >= 0 {
				emit(tEnd, s.dense(t, h, y, tEnd, yEv))
			} else {
				emit(tNew, s.yNew)
			}
		} else {
			for tevalIdx < len(opts.TEval) && opts.TEval[tevalIdx] <= tEnd {
				emit(opts.TEval[tevalIdx], s.dense(t, h, y, opts.TEval[tevalIdx], yEv))
				tevalIdx++
			}
		}

		if stop >= 0 {
			sol.Status = Terminated
			return sol, nil
		}

		t = tNew
		copy(y, s.yNew)
		copy(s.k[0], s.k[6])
		copy(g, gNew)
		if t >= t1 {
			sol.Status = Finished
			return sol, nil
		}
		h = math.Min(h*factor, maxStep)
	}
}

// findRoot brackets the crossing of ev within [ta, tb] by bisection on the
// continuous extension of the last step.
func (s *solver) findRoot(ev Event, ta, tb, ga, h float64, y0, buf []float64) float64 {
	a, b := ta, tb
	for i := 0; i < 100; i++ {
		if b-a <= 4*math.Abs(math.Nextafter(b, math.Inf(1))-b) {
			break
		}
		m := 0.5 * (a + b)
		gm := ev.Func(m, s.dense(ta, h, y0, m, buf))
		if crossed(ev.Direction, ga, gm) || (ev.Direction == 0 && gm == 0) {
			b = m
		} else {
			a, ga = m, gm
		}
	}
	return 0.5 * (a + b)
}
