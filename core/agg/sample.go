package agg

import (
	"math/rand/v2"
	"sort"

	"github.com/huangsam/datalens/schema"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Sampling parameters for chart building.
const (
	SampleSize = 2000
	SampleSeed = 42
)

// Sample returns at most SampleSize rows of t, drawn uniformly with a fixed seed
// and kept in their original order. Small tables are returned as is.
func Sample(t *schema.Table) *schema.Table {
	n := t.Rows()
	if n <= SampleSize {
		return t
	}
	idx := make([]int, SampleSize)
	sampleuv.WithoutReplacement(idx, n, rand.NewPCG(SampleSeed, SampleSeed))
	sort.Ints(idx)
	return t.Take(idx)
}
