// Package stats holds the descriptive statistics behind the dashboard:
// NaN-aware moments, the period KPIs and the chart series.
//
// Missing values are NaN throughout. Every function skips them and returns
// NaN where there is nothing to compute, so callers never see an error.
package stats

import (
	"math"

	"github.com/TobiSchelling/fitdash/internal/dataset"
)

// Count returns the number of non-missing values.
func Count(xs []float64) int {
	n := 0
	for _, x := range xs {
		if !math.IsNaN(x) {
			n++
		}
	}
	return n
}

// Sum adds the non-missing values. The sum of nothing is 0.
func Sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		if !math.IsNaN(x) {
			s += x
		}
	}
	return s
}

// Mean is the arithmetic mean of the non-missing values, NaN when there are
// none.
func Mean(xs []float64) float64 {
	n := Count(xs)
	if n == 0 {
		return math.NaN()
	}
	return Sum(xs) / float64(n)
}

// StdDev is the sample standard deviation (n-1 denominator) of the
// non-missing values, NaN with fewer than two of them.
func StdDev(xs []float64) float64 {
	n := Count(xs)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(xs)
	var ss float64
	for _, x := range xs {
		if !math.IsNaN(x) {
			d := x - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n-1))
}

// KPIs are the quick stats shown for a reporting period.
type KPIs struct {
	TotalSteps    float64
	AvgSleepHours float64
	TotalCalories float64
	Days          int
}

// ComputeKPIs summarises a (month-filtered) table.
func ComputeKPIs(t *dataset.Table) KPIs {
	return KPIs{
		TotalSteps:    Sum(t.Column(dataset.Steps)),
		AvgSleepHours: Mean(t.Column(dataset.SleepHours)),
		TotalCalories: Sum(t.Column(dataset.Calories)),
		Days:          t.Len(),
	}
}
