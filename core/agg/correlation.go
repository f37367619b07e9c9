package agg

import (
	"math"

	"github.com/huangsam/datalens/schema"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"
)

// Correlations returns the pairwise-complete Pearson matrix of cols.
// Undefined coefficients (constant or too short series) are 0.
func Correlations(cols []*schema.Column) [][]float64 {
	n := len(cols)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := range n {
		for j := i; j < n; j++ {
			r := Pearson(cols[i], cols[j])
			m[i][j], m[j][i] = r, r
		}
	}
	return m
}

// Pearson correlates two columns over rows where both are non-null.
func Pearson(a, b *schema.Column) float64 {
	xs, ys := pairs(a, b, -1)
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// pairs collects rows where both columns hold a value, up to limit (-1 for all).
func pairs(a, b *schema.Column, limit int) ([]float64, []float64) {
	var xs, ys []float64
	for i := range a.Len() {
		if limit >= 0 && len(xs) == limit {
			break
		}
		x, okX := a.Float(i)
		y, okY := b.Float(i)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

func heatmapOf(cols []*schema.Column, corr [][]float64) *schema.Heatmap {
	names := make([]string, len(cols))
	matrix := make([][]float64, len(corr))
	for i, row := range corr {
		names[i] = cols[i].Name
		matrix[i] = make([]float64, len(row))
		for j, r := range row {
			matrix[i][j] = scalar.Round(r, correlationDigits)
		}
	}
	return &schema.Heatmap{Columns: names, Matrix: matrix}
}

// StrongestPair finds the off-diagonal cell with the largest |r|, first in
// row-major order on ties. ok is false for matrices smaller than 2x2.
func StrongestPair(corr [][]float64) (row, col int, r float64, ok bool) {
	best := -1.0
	for i := range corr {
		for j := range corr[i] {
			if i == j {
				continue
			}
			if v := math.Abs(corr[i][j]); v > best {
				best, row, col, r = v, i, j, corr[i][j]
			}
		}
	}
	return row, col, r, best >= 0
}

func scatterOf(cols []*schema.Column, corr [][]float64) *schema.Scatter {
	i, j, _, ok := StrongestPair(corr)
	if !ok {
		return nil
	}
	xs, ys := pairs(cols[i], cols[j], MaxScatterPoints)
	if xs == nil {
		xs, ys = []float64{}, []float64{}
	}
	return &schema.Scatter{XCol: cols[i].Name, YCol: cols[j].Name, X: xs, Y: ys}
}
