package stats

import (
	"math"
	"time"

	"github.com/TobiSchelling/fitdash/internal/dataset"
)

// Frame is a date-indexed block of metric values, the shape chart series
// are handed to the presentation surface in.
type Frame struct {
	Metrics []dataset.Metric
	Dates   []time.Time // zero time for rows without a date
	Values  [][]float64 // Values[row][metric index]
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Dates) }

// Series returns the column of metric m, nil when m is not in the frame.
func (f *Frame) Series(m dataset.Metric) []float64 {
	idx := -1
	for i, fm := range f.Metrics {
		if fm == m {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(f.Values))
	for i, row := range f.Values {
		out[i] = row[idx]
	}
	return out
}

// WeekEnd returns the Sunday closing the calendar week of d.
func WeekEnd(d time.Time) time.Time {
	offset := (7 - int(d.Weekday())) % 7
	y, mo, day := d.AddDate(0, 0, offset).Date()
	return time.Date(y, mo, day, 0, 0, 0, 0, time.UTC)
}

// Weekly sums each metric per calendar week (weeks end on Sunday and are
// labelled by that Sunday). Weeks between the first and the last dated row
// are all present; a week without data sums to 0. Undated rows are ignored.
func Weekly(t *dataset.Table, metrics []dataset.Metric) *Frame {
	f := &Frame{Metrics: metrics}
	var first, last time.Time
	for _, o := range t.Rows {
		if !o.HasDate() {
			continue
		}
		we := WeekEnd(o.Date)
		if first.IsZero() || we.Before(first) {
			first = we
		}
		if last.IsZero() || we.After(last) {
			last = we
		}
	}
	if first.IsZero() {
		return f
	}

	weeks := daysBetween(first, last)/7 + 1
	f.Dates = make([]time.Time, weeks)
	f.Values = make([][]float64, weeks)
	for i := range f.Dates {
		f.Dates[i] = first.AddDate(0, 0, 7*i)
		f.Values[i] = make([]float64, len(metrics))
	}
	for _, o := range t.Rows {
		if !o.HasDate() {
			continue
		}
		i := daysBetween(first, WeekEnd(o.Date)) / 7
		for j, m := range metrics {
			if v := o.Value(m); !math.IsNaN(v) {
				f.Values[i][j] += v
			}
		}
	}
	return f
}

// daysBetween counts whole days from a to b, both UTC midnights, for spans
// of any number of years.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / 86400)
}

// Rolling computes a trailing mean over window rows for each metric. The
// first window-1 rows, and any window containing a missing value, are NaN.
func Rolling(t *dataset.Table, metrics []dataset.Metric, window int) *Frame {
	f := &Frame{Metrics: metrics}
	n := t.Len()
	f.Dates = make([]time.Time, n)
	f.Values = make([][]float64, n)
	for i := 0; i < n; i++ {
		f.Dates[i] = t.Rows[i].Date
		f.Values[i] = make([]float64, len(metrics))
	}
	for j, m := range metrics {
		col := t.Column(m)
		for i := range col {
			f.Values[i][j] = windowMean(col, i, window)
		}
	}
	return f
}

func windowMean(col []float64, end, window int) float64 {
	if window <= 0 || end+1 < window {
		return math.NaN()
	}
	var s float64
	for k := end - window + 1; k <= end; k++ {
		if math.IsNaN(col[k]) {
			return math.NaN()
		}
		s += col[k]
	}
	return s / float64(window)
}
