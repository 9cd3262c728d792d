package tensorviz

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// SampleSeeds picks up to total seed points from the given planes. The
// budget is split evenly over the non empty planes, the remainder going one
// by one to the first planes. Points are drawn without replacement; a plane
// with fewer points than its share contributes all of them.
func SampleSeeds(planes []*PointSet, total int, rnd Rand) []r3.Vec {
	var active []*PointSet
	for _, pl := range planes {
		if pl != nil && pl.NumPoints() > 0 {
			active = append(active, pl)
		}
	}
	if len(active) == 0 || total <= 0 {
		return nil
	}
	rnd = defaultRand(rnd)

	quota := total / len(active)
	remainder := total % len(active)

	var seeds []r3.Vec
	for i, pl := range active {
		n := quota
		if i < remainder {
			n++
		}
		if n >= pl.NumPoints() {
			seeds = append(seeds, pl.Points...)
			continue
		}
		for _, j := range sampleIndices(pl.NumPoints(), n, rnd) {
			seeds = append(seeds, pl.Points[j])
		}
	}
	return seeds
}
