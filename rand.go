package tensorviz

import (
	"math/rand"
	"time"
)

// Rand is the subset of *rand.Rand used for subsampling. Supplying a seeded
// source makes glyph and seed selection reproducible.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a source seeded with seed.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// defaultRand returns r or, when nil, a time seeded source.
func defaultRand(r Rand) Rand {
	if r != nil {
		return r
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// sampleIndices returns k distinct indices drawn uniformly from [0, n).
func sampleIndices(n, k int, r Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if k >= n {
		return idx
	}
	r.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx[:k]
}
