package stats

import (
	"math"
	"sort"

	"github.com/TobiSchelling/fitdash/internal/dataset"
)

// CorrMatrix is a symmetric Pearson correlation matrix.
type CorrMatrix struct {
	Metrics []dataset.Metric
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is one off-diagonal entry of a CorrMatrix.
type PairCorr struct {
	A, B dataset.Metric
	R    float64
}

// Correlation computes Pearson coefficients between every pair of metrics
// using pairwise-complete rows. Pairs with fewer than two complete rows or
// a constant side are NaN.
func Correlation(t *dataset.Table, metrics []dataset.Metric) *CorrMatrix {
	cols := make([][]float64, len(metrics))
	for i, m := range metrics {
		cols[i] = t.Column(m)
	}
	n := len(metrics)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			r := pearson(cols[a], cols[b])
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Metrics: metrics, Values: mat}
}

func pearson(xs, ys []float64) float64 {
	var n, sumX, sumY float64
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		n++
		sumX += xs[i]
		sumY += ys[i]
	}
	if n < 2 {
		return math.NaN()
	}
	meanX, meanY := sumX/n, sumY/n
	var sxx, syy, sxy float64
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		dx, dy := xs[i]-meanX, ys[i]-meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	denom := math.Sqrt(sxx * syy)
	if denom == 0 {
		return math.NaN()
	}
	r := sxy / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// Get returns the coefficient for (a, b), NaN if either is absent.
func (c *CorrMatrix) Get(a, b dataset.Metric) float64 {
	ia, ib := -1, -1
	for i, m := range c.Metrics {
		if m == a {
			ia = i
		}
		if m == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return math.NaN()
	}
	return c.Values[ia][ib]
}

// TopPairs lists the off-diagonal pairs ordered by |r| descending, skipping
// NaN entries. limit <= 0 returns all.
func (c *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	for i := 0; i < len(c.Metrics); i++ {
		for j := i + 1; j < len(c.Metrics); j++ {
			r := c.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: c.Metrics[i], B: c.Metrics[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
